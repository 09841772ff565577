package rf2

import (
	"context"
	"log/slog"
	"sort"
)

// GatherVersions returns every distinct effective time found in files, in
// ascending order. A blank effective time sorts after every dated version.
func GatherVersions(ctx context.Context, files ReleaseFiles) ([]string, error) {
	seen := make(map[string]struct{})
	var firstErr error
	files.Each(func(c Category, path string) {
		if firstErr != nil {
			return
		}
		_, err := ReadFile(ctx, path, c.Family(), ReadOptions{}, func(l Line) {
			seen[l.Fields[l.Layout.EffectiveTimeColumn()]] = struct{}{}
		})
		if err != nil {
			firstErr = err
		}
	})
	if firstErr != nil {
		return nil, firstErr
	}

	versions := make([]string, 0, len(seen))
	for v := range seen {
		versions = append(versions, v)
	}
	SortVersions(versions)
	slog.Info("release versions found", "count", len(versions), "versions", versions)
	return versions, nil
}

// SortVersions orders effective times ascending with blanks last.
func SortVersions(versions []string) {
	sort.Slice(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if a == "" || b == "" {
			return b == "" && a != ""
		}
		return a < b
	})
}
