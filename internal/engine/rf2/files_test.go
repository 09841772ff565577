package rf2

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"rf2boot/internal/core/errors"
	"rf2boot/internal/test/rf2test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		part string
		want Category
	}{
		{"sct2_Concept_Snapshot_INT_20170131.txt", "Snapshot", CategoryConcept},
		{"xsct2_Concept_Snapshot_INT_20170131.txt", "Snapshot", CategoryConcept},
		{"sct2_Concept_Snapshot_INT_20170131.txt", "Delta", CategoryUnknown},
		{"sct2_Concept_Snapshot_INT_20170131.zip", "Snapshot", CategoryUnknown},
		{"sct2_Description_Snapshot-en_INT_20170131.txt", "Snapshot", CategoryDescription},
		{"sct2_TextDefinition_Delta-en_INT_20170131.txt", "Delta", CategoryTextDefinition},
		{"sct2_Relationship_Full_INT_20170131.txt", "Full", CategoryRelationship},
		{"sct2_RelationshipConcreteValues_Snapshot_INT_20170131.txt", "Snapshot", CategoryConcreteRelationship},
		{"sct2_StatedRelationship_Snapshot_INT_20170131.txt", "Snapshot", CategoryStatedRelationship},
		{"sct2_Identifier_Snapshot_INT_20170131.txt", "Snapshot", CategoryIdentifier},
		{"sct2_sRefset_OWLExpressionSnapshot_INT_20170131.txt", "Snapshot", CategoryRefset},
		{"der2_cRefset_LanguageSnapshot-en_INT_20170131.txt", "Snapshot", CategoryRefset},
		{"der2_Refset_SimpleSnapshot_INT_20170131.txt", "Snapshot", CategoryRefset},
		{"xder2_sscccRefset_MRCMAttributeDomainDelta_INT_20170131.txt", "Delta", CategoryRefset},
		{"der2_cRefset_LanguageSnapshot-en_INT_20170131.txt", "Full", CategoryUnknown},
		{"readme_Snapshot.txt", "Snapshot", CategoryUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.part, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.name, tt.part))
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("Snapshot+Delta")
	require.NoError(t, err)
	assert.Equal(t, ModeSnapshotAndDelta, m)
	assert.Equal(t, []string{"Snapshot", "Delta"}, m.FilenameParts())

	_, err = ParseMode("weekly")
	assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	rel := rf2test.New(t, filepath.Join(root, "Snapshot", "Terminology"), "Snapshot")
	rel.Concepts()
	rel.Descriptions()
	rel.Relationships()
	refsets := rf2test.New(t, filepath.Join(root, "Snapshot", "Refset"), "Snapshot")
	refsets.Refset("c", "Language", []string{"acceptabilityId"})
	ignored := rf2test.New(t, filepath.Join(root, "backup"), "Snapshot")
	ignored.Concepts()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sct2_Unknown_Snapshot_INT_20170131.txt"), []byte("id"), 0o644))

	exclude, err := CompileGlobs([]string{"back*"})
	require.NoError(t, err)

	files, err := Discover([]string{root}, "Snapshot", exclude)
	require.NoError(t, err)
	assert.Len(t, files.Concepts, 1)
	assert.Len(t, files.Descriptions, 1)
	assert.Len(t, files.Relationships, 1)
	assert.Len(t, files.Refsets, 1)
	assert.Equal(t, 4, files.Count())
}

func TestDiscover_MissingDirectory(t *testing.T) {
	_, err := Discover([]string{filepath.Join(t.TempDir(), "nope")}, "Snapshot", nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
}

func TestFind_ChecksEachPart(t *testing.T) {
	root := t.TempDir()
	snap := rf2test.New(t, root, "Snapshot")
	snap.Concepts()
	snap.Relationships()

	req := Requirements{Concepts: true, Relationships: true}
	files, err := Find([]string{root}, ModeSnapshot, req, nil)
	require.NoError(t, err)
	assert.Len(t, files.Concepts, 1)

	_, err = Find([]string{root}, ModeSnapshotAndDelta, req, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
	assert.Contains(t, err.Error(), "concept release file not found")

	delta := rf2test.New(t, root, "Delta")
	delta.Concepts()
	delta.Relationships()
	files, err = Find([]string{root}, ModeSnapshotAndDelta, req, nil)
	require.NoError(t, err)
	require.Len(t, files.Concepts, 2)
	assert.Contains(t, filepath.Base(files.Concepts[0]), "Snapshot", "snapshot files come first")

	_, err = Find([]string{root}, ModeSnapshot, Requirements{Descriptions: true}, nil)
	assert.Error(t, err)
}

func TestGatherVersions(t *testing.T) {
	root := t.TempDir()
	rel := rf2test.New(t, root, "Full")
	rel.Concepts(
		rf2test.Concept("100005", "20170731", "1"),
		rf2test.Concept("100005", "20020131", "1"),
		rf2test.Concept("200001", "", "1"),
	)
	rel.Relationships(rf2test.IsARow("1001", "20030131", "1", "200001", "100005", rf2test.Inferred))
	rel.LegacyIdentifiers(rf2test.Tab("900000000000294009", "ALT", "20040131", "1", rf2test.Module, "100005"))

	files, err := Find([]string{root}, ModeFull, Requirements{Concepts: true}, nil)
	require.NoError(t, err)
	versions, err := GatherVersions(context.Background(), files)
	require.NoError(t, err)
	assert.Equal(t, []string{"20020131", "20030131", "20040131", "20170731", ""}, versions)
}
