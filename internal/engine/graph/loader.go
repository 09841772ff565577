package graph

import (
	"log/slog"
	"slices"
	"sync"

	"rf2boot/internal/core/config"
	"rf2boot/internal/core/ports"
	"rf2boot/internal/engine/rf2"
)

// Loader is the Consumer that builds a Store from the rows of a load.
// Concurrent tasks touch disjoint parts of a node, and the store serializes
// node creation, so Loader needs no locking of its own beyond the version log.
type Loader struct {
	store   *Store
	profile config.Profile

	mu       sync.Mutex
	versions []string
}

var _ ports.HistoryConsumer = (*Loader)(nil)

func NewLoader(store *Store, profile config.Profile) *Loader {
	return &Loader{store: store, profile: profile}
}

func (l *Loader) Store() *Store { return l.store }

// Versions returns the release versions replayed so far, in order.
func (l *Loader) Versions() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.versions)
}

func (l *Loader) Preprocessing() {}

func (l *Loader) StartLoading() {
	slog.Debug("graph loading started", "nodes", l.store.Len())
}

func (l *Loader) FinishLoading() error {
	slog.Info("graph loaded", "nodes", l.store.Len(), "versions", len(l.Versions()))
	return nil
}

func (l *Loader) StartVersion(version string) {
	slog.Debug("replaying version", "version", version)
}

func (l *Loader) FinishVersion(version string) {
	l.mu.Lock()
	l.versions = append(l.versions, version)
	l.mu.Unlock()
}

func (l *Loader) Concept(r rf2.ConceptRow) {
	l.store.UpsertConceptState(r.ID, ConceptState{
		Active:             r.IsActive(),
		ModuleID:           r.ModuleID,
		EffectiveTime:      r.EffectiveTime,
		DefinitionStatusID: r.DefinitionStatusID,
	})
}

func (l *Loader) Description(r rf2.DescriptionRow) {
	l.store.AddDescription(r.ConceptID, Description{
		ID:            r.ID,
		EffectiveTime: r.EffectiveTime,
		Active:        r.IsActive(),
		LanguageCode:  r.LanguageCode,
		TypeID:        r.TypeID,
		Term:          r.Term,
	})
	if r.TypeID == rf2.FSN && r.IsActive() {
		l.store.SetFSN(r.ConceptID, r.Term)
	}
}

func (l *Loader) attributeMap(form Form) bool {
	if form == Stated {
		return l.profile.StatedAttributeMap()
	}
	return l.profile.InferredAttributeMap()
}

func (l *Loader) Relationship(r rf2.RelationshipRow) {
	l.store.AddRelationship(r.SourceID, Relationship{
		ID:                   r.ID,
		EffectiveTime:        r.EffectiveTime,
		Active:               r.IsActive(),
		DestinationID:        r.DestinationID,
		Group:                r.RelationshipGroup,
		TypeID:               r.TypeID,
		CharacteristicTypeID: r.CharacteristicTypeID,
	})

	form, ok := FormOf(r.CharacteristicTypeID)
	if !ok {
		return
	}
	switch {
	case r.TypeID == rf2.IsA && r.IsActive():
		l.store.LinkParent(r.SourceID, r.DestinationID, form)
	case r.TypeID == rf2.IsA:
		l.store.UnlinkParent(r.SourceID, r.DestinationID, form)
	}
	if !l.attributeMap(form) {
		return
	}
	// The attribute map mirrors the parent edges under the is-a type.
	if r.IsActive() {
		l.store.AddAttribute(r.SourceID, form, r.TypeID, r.DestinationID)
	} else if r.TypeID == rf2.IsA {
		l.store.RemoveAttribute(r.SourceID, form, r.TypeID, r.DestinationID)
	}
}

func (l *Loader) ConcreteRelationship(r rf2.ConcreteRelationshipRow) {
	l.store.AddConcreteRelationship(r.SourceID, Relationship{
		ID:                   r.ID,
		EffectiveTime:        r.EffectiveTime,
		Active:               r.IsActive(),
		Value:                r.Value,
		Group:                r.RelationshipGroup,
		TypeID:               r.TypeID,
		CharacteristicTypeID: r.CharacteristicTypeID,
	})
	if form, ok := FormOf(r.CharacteristicTypeID); ok && r.IsActive() && l.attributeMap(form) {
		l.store.AddAttribute(r.SourceID, form, r.TypeID, r.Value)
	}
}

func (l *Loader) Identifier(r rf2.IdentifierRow) {
	if r.IsActive() && r.ReferencedComponentID != "" {
		l.store.AddIdentifier(r.ReferencedComponentID, r.SchemeID, r.ID)
	}
}

// RefsetMember records membership for active members whose referenced
// component is a concept. Description and relationship members are ignored.
func (l *Loader) RefsetMember(r rf2.RefsetMemberRow) {
	if r.IsActive() && rf2.IsConceptID(r.ReferencedComponentID) {
		l.store.AddRefsetMembership(r.ReferencedComponentID, r.RefsetID)
	}
}
