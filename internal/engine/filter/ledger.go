package filter

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"rf2boot/internal/core/ports"
	"rf2boot/internal/engine/rf2"
	"rf2boot/internal/shared/observability"
)

// FarFuture stands in for a blank effective time, so unpublished content
// always counts as the latest version.
const FarFuture = 30000101

// EncodeTime converts an effective time to the integer compared by the
// ledger. Blank is FarFuture; a value that is not a number encodes as 0.
func EncodeTime(s string) int32 {
	if s == "" {
		return FarFuture
	}
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int32(n)
}

type memberEntry struct {
	latest int32
	seen   int32
}

// Ledger records the latest effective time of every component seen during
// the pre-pass. Core components are keyed by numeric id, refset members by
// member id and alternate identifiers by identifier and scheme. After Seal
// it only answers InEffect.
type Ledger struct {
	ports.NopConsumer

	mu           sync.RWMutex
	core         map[int64]int32
	coreOther    map[string]int32
	members      map[uuid.UUID]*memberEntry
	membersOther map[string]*memberEntry
	identifiers  map[string]int32
	invalidTimes int
	sealed       bool
}

func NewLedger() *Ledger {
	return &Ledger{
		core:         make(map[int64]int32),
		coreOther:    make(map[string]int32),
		members:      make(map[uuid.UUID]*memberEntry),
		membersOther: make(map[string]*memberEntry),
		identifiers:  make(map[string]int32),
	}
}

func (l *Ledger) Concept(r rf2.ConceptRow)                           { l.storeCore(r.ID, r.EffectiveTime) }
func (l *Ledger) Description(r rf2.DescriptionRow)                   { l.storeCore(r.ID, r.EffectiveTime) }
func (l *Ledger) Relationship(r rf2.RelationshipRow)                 { l.storeCore(r.ID, r.EffectiveTime) }
func (l *Ledger) ConcreteRelationship(r rf2.ConcreteRelationshipRow) { l.storeCore(r.ID, r.EffectiveTime) }
func (l *Ledger) RefsetMember(r rf2.RefsetMemberRow)                 { l.storeMember(r.ID, r.EffectiveTime) }
func (l *Ledger) Identifier(r rf2.IdentifierRow)                     { l.storeIdentifier(r.Key(), r.EffectiveTime) }

func (l *Ledger) encode(s string) int32 {
	t := EncodeTime(s)
	if t == 0 {
		l.invalidTimes++
	}
	return t
}

func (l *Ledger) storeCore(id, effectiveTime string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.encode(effectiveTime)
	if n, err := strconv.ParseInt(id, 10, 64); err == nil {
		if cur, ok := l.core[n]; !ok || t > cur {
			l.core[n] = t
		}
		return
	}
	if cur, ok := l.coreOther[id]; !ok || t > cur {
		l.coreOther[id] = t
	}
}

func (l *Ledger) storeMember(id, effectiveTime string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.encode(effectiveTime)
	var e *memberEntry
	if key, err := uuid.Parse(id); err == nil {
		if e = l.members[key]; e == nil {
			e = &memberEntry{latest: t}
			l.members[key] = e
		}
	} else if e = l.membersOther[id]; e == nil {
		e = &memberEntry{latest: t}
		l.membersOther[id] = e
	}
	e.seen++
	if t > e.latest {
		e.latest = t
	}
}

func (l *Ledger) storeIdentifier(key, effectiveTime string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.encode(effectiveTime)
	if cur, ok := l.identifiers[key]; !ok || t > cur {
		l.identifiers[key] = t
	}
}

// Seal ends the pre-pass. Members seen only once are dropped, since there is
// nothing to choose between for them.
func (l *Ledger) Seal() {
	l.mu.Lock()
	defer l.mu.Unlock()
	pruned := 0
	for k, e := range l.members {
		if e.seen < 2 {
			delete(l.members, k)
			pruned++
		}
	}
	for k, e := range l.membersOther {
		if e.seen < 2 {
			delete(l.membersOther, k)
			pruned++
		}
	}
	l.sealed = true

	observability.LedgerEntries.WithLabelValues("core").Set(float64(len(l.core) + len(l.coreOther)))
	observability.LedgerEntries.WithLabelValues("member").Set(float64(len(l.members) + len(l.membersOther)))
	observability.LedgerEntries.WithLabelValues("identifier").Set(float64(len(l.identifiers)))
	slog.Info("effective version ledger sealed",
		"core", len(l.core)+len(l.coreOther),
		"members", len(l.members)+len(l.membersOther),
		"members_pruned", pruned,
		"identifiers", len(l.identifiers))
	if l.invalidTimes > 0 {
		slog.Warn("effective times that are not numbers were treated as earliest", "count", l.invalidTimes)
	}
}

func (l *Ledger) Sealed() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.sealed
}

// InEffect reports whether row is the latest recorded version of its
// component. Unknown core components and identifiers are not in effect;
// unknown refset members are, because only repeated members are kept.
func (l *Ledger) InEffect(row rf2.Row) bool {
	meta := row.Meta()
	t := EncodeTime(meta.EffectiveTime)
	l.mu.RLock()
	defer l.mu.RUnlock()

	switch r := row.(type) {
	case rf2.RefsetMemberRow:
		var e *memberEntry
		if key, err := uuid.Parse(r.ID); err == nil {
			e = l.members[key]
		} else {
			e = l.membersOther[r.ID]
		}
		return e == nil || e.latest == t
	case rf2.IdentifierRow:
		cur, ok := l.identifiers[r.Key()]
		return ok && cur == t
	default:
		var cur int32
		var ok bool
		if n, err := strconv.ParseInt(meta.ID, 10, 64); err == nil {
			cur, ok = l.core[n]
		} else {
			cur, ok = l.coreOther[meta.ID]
		}
		return ok && cur == t
	}
}

// Len returns the number of entries held per ledger.
func (l *Ledger) Len() (core, members, identifiers int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.core) + len(l.coreOther), len(l.members) + len(l.membersOther), len(l.identifiers)
}
