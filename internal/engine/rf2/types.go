// Package rf2 reads tab separated terminology release files and classifies
// them by component type and release mode.
package rf2

// Well known concept identifiers used by the loader.
const (
	InferredRelationship = "900000000000011006"
	StatedRelationship   = "900000000000010007"
	IsA                  = "116680003"
	FSN                  = "900000000000003001"
	GBLanguageRefset     = "900000000000508004"
	USLanguageRefset     = "900000000000509007"
)

// Kind identifies a component type.
type Kind int

const (
	KindConcept Kind = iota
	KindDescription
	KindRelationship
	KindConcreteRelationship
	KindIdentifier
	KindRefsetMember
)

var kindNames = [...]string{
	KindConcept:              "concept",
	KindDescription:          "description",
	KindRelationship:         "relationship",
	KindConcreteRelationship: "concrete_relationship",
	KindIdentifier:           "identifier",
	KindRefsetMember:         "refset_member",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Component holds the columns every row starts with. Values are passed
// through exactly as read; a blank EffectiveTime means unpublished.
type Component struct {
	ID            string
	EffectiveTime string
	Active        string
	ModuleID      string
}

func (c Component) IsActive() bool {
	return c.Active == "1"
}

// Row is implemented by every typed row.
type Row interface {
	Kind() Kind
	Meta() Component
}

type ConceptRow struct {
	Component
	DefinitionStatusID string
}

type DescriptionRow struct {
	Component
	ConceptID          string
	LanguageCode       string
	TypeID             string
	Term               string
	CaseSignificanceID string
}

type RelationshipRow struct {
	Component
	SourceID             string
	DestinationID        string
	RelationshipGroup    string
	TypeID               string
	CharacteristicTypeID string
	ModifierID           string
}

// Inferred reports whether the row carries the inferred characteristic type.
func (r RelationshipRow) Inferred() bool {
	return r.CharacteristicTypeID == InferredRelationship
}

type ConcreteRelationshipRow struct {
	Component
	SourceID             string
	Value                string
	RelationshipGroup    string
	TypeID               string
	CharacteristicTypeID string
	ModifierID           string
}

// IdentifierRow carries an alternate identifier. Component.ID holds the
// alternateIdentifier column, which is only unique together with SchemeID.
type IdentifierRow struct {
	Component
	SchemeID              string
	ReferencedComponentID string
}

func (r IdentifierRow) Key() string {
	return r.ID + "-" + r.SchemeID
}

// RefsetMemberRow is one reference set member. FieldNames is the file header;
// OtherValues holds the refset-type-specific trailing columns.
type RefsetMemberRow struct {
	Component
	Filename              string
	FieldNames            []string
	RefsetID              string
	ReferencedComponentID string
	OtherValues           []string
}

func (ConceptRow) Kind() Kind              { return KindConcept }
func (DescriptionRow) Kind() Kind          { return KindDescription }
func (RelationshipRow) Kind() Kind         { return KindRelationship }
func (ConcreteRelationshipRow) Kind() Kind { return KindConcreteRelationship }
func (IdentifierRow) Kind() Kind           { return KindIdentifier }
func (RefsetMemberRow) Kind() Kind         { return KindRefsetMember }

func (r ConceptRow) Meta() Component              { return r.Component }
func (r DescriptionRow) Meta() Component          { return r.Component }
func (r RelationshipRow) Meta() Component         { return r.Component }
func (r ConcreteRelationshipRow) Meta() Component { return r.Component }
func (r IdentifierRow) Meta() Component           { return r.Component }
func (r RefsetMemberRow) Meta() Component         { return r.Component }

// IsConceptID reports whether id uses the concept partition. The partition
// digit is the second last character of an SCTID.
func IsConceptID(id string) bool {
	return len(id) > 3 && id[len(id)-2] == '0'
}
