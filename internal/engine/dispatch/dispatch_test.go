package dispatch

import (
	"strings"
	"testing"

	"rf2boot/internal/core/config"
	"rf2boot/internal/core/ports"
	"rf2boot/internal/engine/rf2"
	"rf2boot/internal/test/rf2test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(header []string, row string) rf2.Line {
	return rf2.Line{Fields: strings.Split(row, "\t"), Header: header, Path: "/tmp/x/file.txt", Number: 2}
}

func TestConcept_ActiveRule(t *testing.T) {
	rec := ports.NewRecorder(nil)
	d := New(config.Light(), rec)

	d.Concept(line(rf2test.ConceptHeader, rf2test.Concept("100005", "20170131", "1")))
	d.Concept(line(rf2test.ConceptHeader, rf2test.Concept("200001", "20170131", "0")))
	require.Len(t, rec.Concepts(), 1)
	assert.Equal(t, "100005", rec.Concepts()[0].ID)
	assert.Equal(t, rf2test.Primitive, rec.Concepts()[0].DefinitionStatusID)

	rec = ports.NewRecorder(nil)
	d = New(config.Light().With(config.WithInactiveConcepts(true)), rec)
	d.Concept(line(rf2test.ConceptHeader, rf2test.Concept("200001", "20170131", "0")))
	assert.Len(t, rec.Concepts(), 1)
}

func TestRelationship_Routing(t *testing.T) {
	inferred := rf2test.IsARow("1001", "20170131", "1", "200001", "100005", rf2test.Inferred)
	stated := rf2test.IsARow("1002", "20170131", "1", "200001", "100005", rf2test.Stated)
	inactive := rf2test.IsARow("1003", "20170131", "0", "200001", "100005", rf2test.Inferred)

	tests := []struct {
		name    string
		profile config.Profile
		want    []string
	}{
		{"light", config.Light(), []string{"1001"}},
		{"stated", config.Light().With(config.WithStatedRelationships(true)), []string{"1001", "1002"}},
		{"inactive", config.Light().With(config.WithInactiveRelationships(true)), []string{"1001", "1003"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ports.NewRecorder(nil)
			d := New(tt.profile, rec)
			for _, row := range []string{inferred, stated, inactive} {
				d.Relationship(line(rf2test.RelationshipHeader, row))
			}
			var got []string
			for _, r := range rec.OfKind(rf2.KindRelationship) {
				got = append(got, r.Meta().ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescriptionAndConcrete(t *testing.T) {
	rec := ports.NewRecorder(nil)
	d := New(config.Light(), rec)

	d.Handler(rf2.CategoryTextDefinition)(line(rf2test.DescriptionHeader,
		rf2test.Description("5001", "20170131", "1", "100005", rf2test.FSNType, "Thing (thing)")))
	d.Handler(rf2.CategoryConcreteRelationship)(line(rf2test.ConcreteHeader,
		rf2test.Tab("6001", "20170131", "1", rf2test.Module, "100005", "#500", "1", "1142135004", rf2test.Inferred, rf2test.Existential)))

	rows := rec.Rows()
	require.Len(t, rows, 2)
	desc := rows[0].(rf2.DescriptionRow)
	assert.Equal(t, "Thing (thing)", desc.Term)
	assert.Equal(t, "en", desc.LanguageCode)
	conc := rows[1].(rf2.ConcreteRelationshipRow)
	assert.Equal(t, "#500", conc.Value)
	assert.Equal(t, "1142135004", conc.TypeID)
}

func TestIdentifier_Layouts(t *testing.T) {
	rec := ports.NewRecorder(nil)
	d := New(config.Light(), rec)

	standard := line(rf2test.IdentifierHeader, rf2test.Tab("ALT-1", "20170131", "1", rf2test.Module, "900000000000294009", "100005"))
	legacy := line(rf2test.LegacyIDHeader, rf2test.Tab("900000000000294009", "ALT-2", "20020131", "1", rf2test.Module, "100005"))
	legacy.Layout = rf2.LayoutLegacyIdentifier
	d.Identifier(standard)
	d.Identifier(legacy)

	rows := rec.OfKind(rf2.KindIdentifier)
	require.Len(t, rows, 2)
	for i, alt := range []string{"ALT-1", "ALT-2"} {
		id := rows[i].(rf2.IdentifierRow)
		assert.Equal(t, alt, id.ID)
		assert.Equal(t, "900000000000294009", id.SchemeID)
		assert.Equal(t, "100005", id.ReferencedComponentID)
		assert.Equal(t, alt+"-900000000000294009", id.Key())
	}
	assert.Equal(t, "20020131", rows[1].Meta().EffectiveTime)
}

func TestRefsetMembers(t *testing.T) {
	header := append(append([]string{}, rf2test.RefsetHeader...), "acceptabilityId")
	gb := rf2test.Tab("m-1", "20170131", "1", rf2test.Module, rf2.GBLanguageRefset, "5001", rf2test.Preferred)
	other := rf2test.Tab("m-2", "20170131", "1", rf2test.Module, "723264001", "5001", rf2test.Preferred)
	retired := rf2test.Tab("m-3", "20170131", "0", rf2test.Module, rf2.GBLanguageRefset, "5001", rf2test.Preferred)

	tests := []struct {
		name    string
		profile config.Profile
		matched bool
		want    []string
	}{
		{"allow list", config.Light(), false, []string{"m-1"}},
		{"pattern match", config.Light(), true, []string{"m-1", "m-2"}},
		{"all refsets", config.Light().With(config.WithAllRefsets(true)), false, []string{"m-1", "m-2"}},
		{"inactive members", config.Light().With(config.WithInactiveRefsetMembers(true)), false, []string{"m-1", "m-3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ports.NewRecorder(nil)
			handle := New(tt.profile, rec).RefsetMembers(tt.matched)
			for _, row := range []string{gb, other, retired} {
				handle(line(header, row))
			}
			var got []string
			for _, r := range rec.OfKind(rf2.KindRefsetMember) {
				m := r.(rf2.RefsetMemberRow)
				assert.Equal(t, "file.txt", m.Filename)
				assert.Equal(t, []string{rf2test.Preferred}, m.OtherValues)
				assert.Equal(t, header, m.FieldNames)
				got = append(got, m.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
