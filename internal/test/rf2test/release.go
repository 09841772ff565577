// Package rf2test writes small synthetic release directories for tests.
package rf2test

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var (
	ConceptHeader      = []string{"id", "effectiveTime", "active", "moduleId", "definitionStatusId"}
	DescriptionHeader  = []string{"id", "effectiveTime", "active", "moduleId", "conceptId", "languageCode", "typeId", "term", "caseSignificanceId"}
	RelationshipHeader = []string{"id", "effectiveTime", "active", "moduleId", "sourceId", "destinationId", "relationshipGroup", "typeId", "characteristicTypeId", "modifierId"}
	ConcreteHeader     = []string{"id", "effectiveTime", "active", "moduleId", "sourceId", "value", "relationshipGroup", "typeId", "characteristicTypeId", "modifierId"}
	IdentifierHeader   = []string{"alternateIdentifier", "effectiveTime", "active", "moduleId", "identifierSchemeId", "referencedComponentId"}
	LegacyIDHeader     = []string{"identifierSchemeId", "alternateIdentifier", "effectiveTime", "active", "moduleId", "referencedComponentId"}
	RefsetHeader       = []string{"id", "effectiveTime", "active", "moduleId", "refsetId", "referencedComponentId"}
)

// Common identifiers used by fixtures.
const (
	Module      = "900000000000207008"
	Primitive   = "900000000000074008"
	Inferred    = "900000000000011006"
	Stated      = "900000000000010007"
	IsA         = "116680003"
	Existential = "900000000000451002"
	FSNType     = "900000000000003001"
	Synonym     = "900000000000013009"
	CaseInsens  = "900000000000448009"
	Preferred   = "900000000000548007"
)

// Tab joins fields with tabs.
func Tab(fields ...string) string {
	return strings.Join(fields, "\t")
}

// Release writes files named like "sct2_Concept_Snapshot_INT_20170131.txt".
type Release struct {
	t         testing.TB
	Dir       string
	Part      string
	Namespace string
	Date      string
}

func New(t testing.TB, dir, part string) *Release {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create release dir: %v", err)
	}
	return &Release{t: t, Dir: dir, Part: part, Namespace: "INT", Date: "20170131"}
}

func (r *Release) name(prefix, component, suffix string) string {
	return fmt.Sprintf("%s_%s_%s%s_%s_%s.txt", prefix, component, r.Part, suffix, r.Namespace, r.Date)
}

func (r *Release) Concepts(rows ...string) string {
	return r.Write(r.name("sct2", "Concept", ""), ConceptHeader, rows...)
}

func (r *Release) Descriptions(rows ...string) string {
	return r.Write(r.name("sct2", "Description", "-en"), DescriptionHeader, rows...)
}

func (r *Release) TextDefinitions(rows ...string) string {
	return r.Write(r.name("sct2", "TextDefinition", "-en"), DescriptionHeader, rows...)
}

func (r *Release) Relationships(rows ...string) string {
	return r.Write(r.name("sct2", "Relationship", ""), RelationshipHeader, rows...)
}

func (r *Release) StatedRelationships(rows ...string) string {
	return r.Write(r.name("sct2", "StatedRelationship", ""), RelationshipHeader, rows...)
}

func (r *Release) ConcreteRelationships(rows ...string) string {
	return r.Write(r.name("sct2", "RelationshipConcreteValues", ""), ConcreteHeader, rows...)
}

func (r *Release) Identifiers(rows ...string) string {
	return r.Write(r.name("sct2", "Identifier", ""), IdentifierHeader, rows...)
}

func (r *Release) LegacyIdentifiers(rows ...string) string {
	return r.Write(r.name("sct2", "Identifier", ""), LegacyIDHeader, rows...)
}

// Refset writes a "der2_<kind>Refset_<name><Part>" file whose header is the
// six common columns followed by extra.
func (r *Release) Refset(kind, name string, extra []string, rows ...string) string {
	header := append(append([]string{}, RefsetHeader...), extra...)
	filename := fmt.Sprintf("der2_%sRefset_%s%s_%s_%s.txt", kind, name, r.Part, r.Namespace, r.Date)
	return r.Write(filename, header, rows...)
}

// Write writes a file with the given header and tab joined rows and returns
// its path.
func (r *Release) Write(filename string, header []string, rows ...string) string {
	r.t.Helper()
	var b strings.Builder
	b.WriteString(Tab(header...))
	b.WriteString("\r\n")
	for _, row := range rows {
		b.WriteString(row)
		b.WriteString("\r\n")
	}
	path := filepath.Join(r.Dir, filename)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		r.t.Fatalf("write %s: %v", filename, err)
	}
	return path
}

// Concept is a concept row with the fixture module.
func Concept(id, date, active string) string {
	return Tab(id, date, active, Module, Primitive)
}

// IsARow is an is-a relationship row.
func IsARow(id, date, active, child, parent, charType string) string {
	return Tab(id, date, active, Module, child, parent, "0", IsA, charType, Existential)
}

// Description is an English description row.
func Description(id, date, active, conceptID, typeID, term string) string {
	return Tab(id, date, active, Module, conceptID, "en", typeID, term, CaseInsens)
}
