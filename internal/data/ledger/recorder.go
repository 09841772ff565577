package ledger

import (
	"log/slog"
	"maps"
	"strconv"
	"sync"

	"rf2boot/internal/core/errors"
	"rf2boot/internal/core/ports"
	"rf2boot/internal/engine/rf2"
)

// Recorder passes every row on to next and remembers, per module, the latest
// published effective time it saw. When loading finishes successfully the
// times are merged into store. Rows with a blank effective time are not
// recorded; they are never skipped by a later run.
type Recorder struct {
	next    ports.Consumer
	history ports.HistoryConsumer
	store   *Store

	mu    sync.Mutex
	times map[string]int
}

var _ ports.HistoryConsumer = (*Recorder)(nil)

// NewRecorder wraps next. store may be nil, in which case times are only
// kept in memory.
func NewRecorder(next ports.Consumer, store *Store) *Recorder {
	r := &Recorder{next: next, store: store, times: make(map[string]int)}
	r.history, _ = next.(ports.HistoryConsumer)
	return r
}

// ModuleTimes returns a copy of the times recorded so far.
func (r *Recorder) ModuleTimes() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return maps.Clone(r.times)
}

func (r *Recorder) observe(c rf2.Component) {
	if c.EffectiveTime == "" {
		return
	}
	t, err := strconv.Atoi(c.EffectiveTime)
	if err != nil {
		return
	}
	r.mu.Lock()
	if t > r.times[c.ModuleID] {
		r.times[c.ModuleID] = t
	}
	r.mu.Unlock()
}

func (r *Recorder) Preprocessing() { r.next.Preprocessing() }
func (r *Recorder) StartLoading()  { r.next.StartLoading() }

func (r *Recorder) FinishLoading() error {
	if err := r.next.FinishLoading(); err != nil {
		return err
	}
	if r.store == nil {
		return nil
	}
	times := r.ModuleTimes()
	if err := r.store.SaveModuleTimes(times); err != nil {
		return errors.AddContext(errors.Wrap(err, errors.CodeInternal, "failed to save module effective times"),
			errors.CtxPath, r.store.Path())
	}
	slog.Info("module effective times saved", "modules", len(times), "path", r.store.Path())
	return nil
}

func (r *Recorder) StartVersion(v string) {
	if r.history != nil {
		r.history.StartVersion(v)
	}
}

func (r *Recorder) FinishVersion(v string) {
	if r.history != nil {
		r.history.FinishVersion(v)
	}
}

func (r *Recorder) Concept(row rf2.ConceptRow) {
	r.observe(row.Component)
	r.next.Concept(row)
}

func (r *Recorder) Description(row rf2.DescriptionRow) {
	r.observe(row.Component)
	r.next.Description(row)
}

func (r *Recorder) Relationship(row rf2.RelationshipRow) {
	r.observe(row.Component)
	r.next.Relationship(row)
}

func (r *Recorder) ConcreteRelationship(row rf2.ConcreteRelationshipRow) {
	r.observe(row.Component)
	r.next.ConcreteRelationship(row)
}

func (r *Recorder) Identifier(row rf2.IdentifierRow) {
	r.observe(row.Component)
	r.next.Identifier(row)
}

func (r *Recorder) RefsetMember(row rf2.RefsetMemberRow) {
	r.observe(row.Component)
	r.next.RefsetMember(row)
}
