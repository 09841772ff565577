package integration

import (
	"context"
	"path/filepath"
	"testing"

	"rf2boot/internal/core/app"
	"rf2boot/internal/core/config"
	"rf2boot/internal/core/errors"
	"rf2boot/internal/data/ledger"
	"rf2boot/internal/engine/graph"
	"rf2boot/internal/test/rf2test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	root     = "138875005"
	finding  = "404684003"
	disorder = "362969004"
)

func newImporter(t *testing.T) *app.Importer {
	t.Helper()
	im, err := app.NewImporter(app.WithWorkers(2))
	require.NoError(t, err)
	return im
}

func TestFullReplayIntoGraphAndLedger(t *testing.T) {
	dir := t.TempDir()
	r := rf2test.New(t, dir, "Full")
	r.Concepts(
		rf2test.Concept(root, "20020131", "1"),
		rf2test.Concept(finding, "20020131", "1"),
		rf2test.Concept(disorder, "20020131", "1"))
	r.Relationships(
		rf2test.IsARow("1001", "20020131", "1", disorder, root, rf2test.Inferred),
		rf2test.IsARow("1002", "20020131", "1", finding, root, rf2test.Inferred),
		rf2test.IsARow("1001", "20030131", "0", disorder, root, rf2test.Inferred),
		rf2test.IsARow("1003", "20030131", "1", disorder, finding, rf2test.Inferred))
	r.Descriptions(
		rf2test.Description("754786011", "20020131", "1", disorder, rf2test.FSNType, "Disease (disorder)"),
		rf2test.Description("754786011", "20030131", "1", disorder, rf2test.FSNType, "Disorder (disorder)"))

	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	defer store.Close()

	profile := config.Complete()
	loader := graph.NewLoader(graph.NewStore(), profile)
	rec := ledger.NewRecorder(loader, store)
	res, err := newImporter(t).LoadFull(context.Background(), []string{dir}, profile, rec)
	require.NoError(t, err)
	assert.Equal(t, []string{"20020131", "20030131"}, res.Versions)
	assert.Equal(t, res.Versions, loader.Versions())

	g := loader.Store()
	assert.Equal(t, []string{finding}, g.Get(disorder).Parents(graph.Inferred))
	ancestors, err := g.Ancestors(disorder, graph.Inferred)
	require.NoError(t, err)
	assert.Equal(t, []string{root, finding}, ancestors)
	assert.Equal(t, "Disorder (disorder)", g.Get(disorder).FSN())

	descendants, err := g.Descendants(root, graph.Inferred)
	require.NoError(t, err)
	assert.Equal(t, []string{disorder, finding}, descendants)

	times, err := store.ModuleTimes()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{rf2test.Module: 20030131}, times)
}

func TestEffectiveSnapshotAndDeltaSurfacesCycle(t *testing.T) {
	base := t.TempDir()
	snap := rf2test.New(t, filepath.Join(base, "snapshot"), "Snapshot")
	snap.Concepts(
		rf2test.Concept(root, "20020131", "1"),
		rf2test.Concept(finding, "20020131", "1"),
		rf2test.Concept(disorder, "20020131", "1"))
	snap.Relationships(
		rf2test.IsARow("1001", "20020131", "1", finding, root, rf2test.Inferred),
		rf2test.IsARow("1002", "20020131", "1", disorder, finding, rf2test.Inferred))
	snap.Descriptions()

	delta := rf2test.New(t, filepath.Join(base, "delta"), "Delta")
	delta.Concepts()
	delta.Relationships(
		rf2test.IsARow("1004", "", "1", finding, disorder, rf2test.Inferred))
	delta.Descriptions()

	loader := graph.NewLoader(graph.NewStore(), config.Light())
	res, err := newImporter(t).LoadEffectiveSnapshotAndDelta(context.Background(), []string{base}, config.Light(), loader)
	require.NoError(t, err)
	assert.Equal(t, []string{"effective_version"}, res.Rules)

	g := loader.Store()
	_, err = g.Ancestors(disorder, graph.Inferred)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeCycleDetected))

	cycles := g.DetectCycles(graph.Inferred)
	require.Len(t, cycles, 1)
	assert.ElementsMatch(t, []string{finding, disorder}, cycles[0][:2])

	_, err = g.Ancestors(root, graph.Inferred)
	assert.NoError(t, err, "root is outside the cycle")
}

func TestInactiveParentIsAnIntegrityError(t *testing.T) {
	base := t.TempDir()
	snap := rf2test.New(t, filepath.Join(base, "snapshot"), "Snapshot")
	snap.Concepts(
		rf2test.Concept(root, "20020131", "1"),
		rf2test.Concept(finding, "20020131", "1"))
	snap.Relationships(
		rf2test.IsARow("1001", "20020131", "1", finding, root, rf2test.Inferred))
	snap.Descriptions()

	later := rf2test.New(t, filepath.Join(base, "later"), "Snapshot")
	later.Date = "20030131"
	later.Concepts(rf2test.Concept(root, "20030131", "0"))
	later.Relationships()
	later.Descriptions()

	profile := config.Light().With(config.WithInactiveConcepts(true))
	loader := graph.NewLoader(graph.NewStore(), profile)
	_, err := newImporter(t).LoadEffectiveSnapshot(context.Background(), []string{base}, profile, loader)
	require.NoError(t, err)

	g := loader.Store()
	assert.False(t, g.Get(root).Active())
	_, err = g.Ancestors(finding, graph.Inferred)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeIntegrity))
}
