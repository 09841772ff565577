package ports

import (
	"rf2boot/internal/engine/rf2"
)

// Consumer receives the rows of a load. Data methods are called concurrently
// from several tasks; implementations must be safe for that.
type Consumer interface {
	// Preprocessing is called before the effective version pre-pass.
	Preprocessing()
	StartLoading()
	FinishLoading() error

	Concept(rf2.ConceptRow)
	Description(rf2.DescriptionRow)
	Relationship(rf2.RelationshipRow)
	ConcreteRelationship(rf2.ConcreteRelationshipRow)
	Identifier(rf2.IdentifierRow)
	RefsetMember(rf2.RefsetMemberRow)
}

// HistoryConsumer is a Consumer that can follow a full release version by
// version.
type HistoryConsumer interface {
	Consumer
	StartVersion(version string)
	FinishVersion(version string)
}

// NopConsumer implements HistoryConsumer with no-op methods. Embed it to
// implement only the calls you care about.
type NopConsumer struct{}

func (NopConsumer) Preprocessing()                                   {}
func (NopConsumer) StartLoading()                                    {}
func (NopConsumer) FinishLoading() error                             { return nil }
func (NopConsumer) StartVersion(string)                              {}
func (NopConsumer) FinishVersion(string)                             {}
func (NopConsumer) Concept(rf2.ConceptRow)                           {}
func (NopConsumer) Description(rf2.DescriptionRow)                   {}
func (NopConsumer) Relationship(rf2.RelationshipRow)                 {}
func (NopConsumer) ConcreteRelationship(rf2.ConcreteRelationshipRow) {}
func (NopConsumer) Identifier(rf2.IdentifierRow)                     {}
func (NopConsumer) RefsetMember(rf2.RefsetMemberRow)                 {}

// Deliver calls the Consumer method matching the row's kind.
func Deliver(c Consumer, row rf2.Row) {
	switch r := row.(type) {
	case rf2.ConceptRow:
		c.Concept(r)
	case rf2.DescriptionRow:
		c.Description(r)
	case rf2.RelationshipRow:
		c.Relationship(r)
	case rf2.ConcreteRelationshipRow:
		c.ConcreteRelationship(r)
	case rf2.IdentifierRow:
		c.Identifier(r)
	case rf2.RefsetMemberRow:
		c.RefsetMember(r)
	}
}
