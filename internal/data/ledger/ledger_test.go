package ledger

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"rf2boot/internal/core/ports"
	"rf2boot/internal/engine/rf2"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "rf2boot.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_ModuleTimesNeverMoveBackwards(t *testing.T) {
	store := openStore(t)

	require.NoError(t, store.SaveModuleTimes(map[string]int{"a": 20170131, "b": 20020131}))
	require.NoError(t, store.SaveModuleTimes(map[string]int{"a": 20160731, "c": 20180131}))
	require.NoError(t, store.SaveModuleTimes(nil))

	got, err := store.ModuleTimes()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 20170131, "b": 20020131, "c": 20180131}, got)
}

func TestStore_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rf2boot.db")
	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.SaveModuleTimes(map[string]int{"a": 20170131}))
	finished := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordImport(Import{Mode: "snapshot", Dirs: []string{"/r/a", "/r/b"}, Modules: 1, FinishedAt: finished}))
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()

	got, err := store.ModuleTimes()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 20170131}, got)
	imports, err := store.Imports()
	require.NoError(t, err)
	require.Len(t, imports, 1)
	assert.Equal(t, []string{"/r/a", "/r/b"}, imports[0].Dirs)
	assert.True(t, finished.Equal(imports[0].FinishedAt))
}

func TestOpen_RejectsBadPaths(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
	_, err = Open(t.TempDir())
	assert.ErrorContains(t, err, "is a directory")
}

func concept(id, date, module string) rf2.ConceptRow {
	return rf2.ConceptRow{Component: rf2.Component{ID: id, EffectiveTime: date, Active: "1", ModuleID: module}}
}

func TestRecorder_TracksLatestPublishedTimePerModule(t *testing.T) {
	store := openStore(t)
	rec := ports.NewRecorder(nil)
	r := NewRecorder(rec, store)

	r.StartLoading()
	r.StartVersion("20170131")
	r.Concept(concept("1", "20170131", "a"))
	r.Concept(concept("2", "20020131", "a"))
	r.Concept(concept("3", "", "b"))
	r.RefsetMember(rf2.RefsetMemberRow{Component: rf2.Component{ID: "m", EffectiveTime: "20180131", Active: "1", ModuleID: "b"}})
	r.FinishVersion("20170131")
	require.NoError(t, r.FinishLoading())

	assert.Len(t, rec.Rows(), 4)
	assert.Equal(t, []string{"start", "start-version:20170131", "finish-version:20170131", "finish"}, rec.Events())
	want := map[string]int{"a": 20170131, "b": 20180131}
	assert.Equal(t, want, r.ModuleTimes())
	saved, err := store.ModuleTimes()
	require.NoError(t, err)
	assert.Equal(t, want, saved)
}

func TestRecorder_NothingSavedWhenLoadingFails(t *testing.T) {
	store := openStore(t)
	boom := errors.New("boom")
	r := NewRecorder(ports.NewRecorder(boom), store)
	r.Concept(concept("1", "20170131", "a"))

	assert.ErrorIs(t, r.FinishLoading(), boom)
	saved, err := store.ModuleTimes()
	require.NoError(t, err)
	assert.Empty(t, saved)
}
