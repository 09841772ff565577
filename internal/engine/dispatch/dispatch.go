// Package dispatch turns raw release lines into typed Consumer calls.
package dispatch

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"rf2boot/internal/core/config"
	"rf2boot/internal/core/ports"
	"rf2boot/internal/engine/rf2"
	"rf2boot/internal/shared/observability"
)

var dispatched = map[rf2.Kind]prometheus.Counter{}

func init() {
	for _, k := range []rf2.Kind{
		rf2.KindConcept, rf2.KindDescription, rf2.KindRelationship,
		rf2.KindConcreteRelationship, rf2.KindIdentifier, rf2.KindRefsetMember,
	} {
		dispatched[k] = observability.RowsDispatched.WithLabelValues(k.String())
	}
}

// Dispatcher applies the inclusion rules of a profile and forwards the rows
// that pass to a Consumer. It holds no state of its own.
type Dispatcher struct {
	profile  config.Profile
	consumer ports.Consumer
}

func New(profile config.Profile, consumer ports.Consumer) *Dispatcher {
	return &Dispatcher{profile: profile, consumer: consumer}
}

// Handler returns the line handler for files of category c. Refset files
// use RefsetMembers instead.
func (d *Dispatcher) Handler(c rf2.Category) func(rf2.Line) {
	switch c {
	case rf2.CategoryConcept:
		return d.Concept
	case rf2.CategoryDescription, rf2.CategoryTextDefinition:
		return d.Description
	case rf2.CategoryRelationship, rf2.CategoryStatedRelationship:
		return d.Relationship
	case rf2.CategoryConcreteRelationship:
		return d.ConcreteRelationship
	case rf2.CategoryIdentifier:
		return d.Identifier
	case rf2.CategoryRefset:
		return d.RefsetMembers(false)
	}
	return func(rf2.Line) {}
}

func (d *Dispatcher) Concept(l rf2.Line) {
	f := l.Fields
	if !d.profile.InactiveConcepts() && !active(f[2]) {
		return
	}
	d.consumer.Concept(rf2.ConceptRow{
		Component:          component(f),
		DefinitionStatusID: f[4],
	})
	dispatched[rf2.KindConcept].Inc()
}

func (d *Dispatcher) Description(l rf2.Line) {
	f := l.Fields
	if !d.profile.InactiveDescriptions() && !active(f[2]) {
		return
	}
	d.consumer.Description(rf2.DescriptionRow{
		Component:          component(f),
		ConceptID:          f[4],
		LanguageCode:       f[5],
		TypeID:             f[6],
		Term:               f[7],
		CaseSignificanceID: f[8],
	})
	dispatched[rf2.KindDescription].Inc()
}

// Relationship forwards inferred rows, and other characteristic types only
// when the profile asks for stated relationships.
func (d *Dispatcher) Relationship(l rf2.Line) {
	f := l.Fields
	if !d.profile.InactiveRelationships() && !active(f[2]) {
		return
	}
	row := rf2.RelationshipRow{
		Component:            component(f),
		SourceID:             f[4],
		DestinationID:        f[5],
		RelationshipGroup:    f[6],
		TypeID:               f[7],
		CharacteristicTypeID: f[8],
		ModifierID:           f[9],
	}
	if !row.Inferred() && !d.profile.StatedRelationships() {
		return
	}
	d.consumer.Relationship(row)
	dispatched[rf2.KindRelationship].Inc()
}

func (d *Dispatcher) ConcreteRelationship(l rf2.Line) {
	f := l.Fields
	if !d.profile.InactiveRelationships() && !active(f[2]) {
		return
	}
	d.consumer.ConcreteRelationship(rf2.ConcreteRelationshipRow{
		Component:            component(f),
		SourceID:             f[4],
		Value:                f[5],
		RelationshipGroup:    f[6],
		TypeID:               f[7],
		CharacteristicTypeID: f[8],
		ModifierID:           f[9],
	})
	dispatched[rf2.KindConcreteRelationship].Inc()
}

func (d *Dispatcher) Identifier(l rf2.Line) {
	row := identifier(l)
	if !d.profile.InactiveIdentifiers() && !row.IsActive() {
		return
	}
	d.consumer.Identifier(row)
	dispatched[rf2.KindIdentifier].Inc()
}

// RefsetMembers returns the handler for one refset file. matched is true
// when the file name matched one of the profile's filename patterns, which
// admits every member of the file regardless of refset id.
func (d *Dispatcher) RefsetMembers(matched bool) func(rf2.Line) {
	return func(l rf2.Line) {
		f := l.Fields
		if !d.profile.InactiveRefsetMembers() && !active(f[2]) {
			return
		}
		refsetID := f[4]
		if !d.profile.AllRefsets() && !matched && !d.profile.IsRefset(refsetID) {
			return
		}
		d.consumer.RefsetMember(rf2.RefsetMemberRow{
			Component:             component(f),
			Filename:              filepath.Base(l.Path),
			FieldNames:            l.Header,
			RefsetID:              refsetID,
			ReferencedComponentID: f[5],
			OtherValues:           f[6:],
		})
		dispatched[rf2.KindRefsetMember].Inc()
	}
}

func identifier(l rf2.Line) rf2.IdentifierRow {
	f := l.Fields
	if l.Layout == rf2.LayoutLegacyIdentifier {
		return rf2.IdentifierRow{
			Component:             rf2.Component{ID: f[1], EffectiveTime: f[2], Active: f[3], ModuleID: f[4]},
			SchemeID:              f[0],
			ReferencedComponentID: f[5],
		}
	}
	return rf2.IdentifierRow{
		Component:             component(f),
		SchemeID:              f[4],
		ReferencedComponentID: f[5],
	}
}

func component(f []string) rf2.Component {
	return rf2.Component{ID: f[0], EffectiveTime: f[1], Active: f[2], ModuleID: f[3]}
}

func active(v string) bool {
	return v == "1"
}
