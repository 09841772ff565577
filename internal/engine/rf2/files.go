package rf2

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gobwas/glob"

	"rf2boot/internal/core/errors"
)

// Mode is the kind of release being imported.
type Mode int

const (
	ModeSnapshot Mode = iota
	ModeDelta
	ModeFull
	ModeSnapshotAndDelta
)

func (m Mode) String() string {
	switch m {
	case ModeDelta:
		return "delta"
	case ModeFull:
		return "full"
	case ModeSnapshotAndDelta:
		return "snapshot+delta"
	default:
		return "snapshot"
	}
}

// FilenameParts lists the filename markers searched for, in load order.
func (m Mode) FilenameParts() []string {
	switch m {
	case ModeDelta:
		return []string{"Delta"}
	case ModeFull:
		return []string{"Full"}
	case ModeSnapshotAndDelta:
		return []string{"Snapshot", "Delta"}
	default:
		return []string{"Snapshot"}
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "snapshot":
		return ModeSnapshot, nil
	case "delta":
		return ModeDelta, nil
	case "full":
		return ModeFull, nil
	case "snapshot+delta", "snapshot-and-delta", "snapshotanddelta":
		return ModeSnapshotAndDelta, nil
	}
	return ModeSnapshot, errors.Newf(errors.CodeConfiguration, "unknown import mode %q", s)
}

// Category is the file group a release file belongs to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryConcept
	CategoryDescription
	CategoryTextDefinition
	CategoryRelationship
	CategoryConcreteRelationship
	CategoryStatedRelationship
	CategoryIdentifier
	CategoryRefset
)

func (c Category) Family() Family {
	switch c {
	case CategoryIdentifier:
		return FamilyIdentifier
	case CategoryRefset:
		return FamilyRefset
	default:
		return FamilyComponent
	}
}

type classifier struct {
	category Category
	re       *regexp.Regexp
}

var (
	classifiers   = map[string][]classifier{}
	plausibleName = regexp.MustCompile(`^x?(der|sct|rel)2_`)
)

func init() {
	for _, part := range []string{"Snapshot", "Delta", "Full"} {
		classifiers[part] = buildClassifiers(part)
	}
}

func buildClassifiers(part string) []classifier {
	p := regexp.QuoteMeta(part)
	lang := `(-[a-zA-Z\-]*)?`
	mk := func(c Category, expr string) classifier {
		return classifier{category: c, re: regexp.MustCompile("^" + expr + "$")}
	}
	return []classifier{
		mk(CategoryConcept, `x?(sct|rel)2_Concept_[^_]*`+p+`_.*`),
		mk(CategoryDescription, `x?(sct|rel)2_Description_[^_]*`+p+lang+`_.*`),
		mk(CategoryTextDefinition, `x?(sct|rel)2_TextDefinition_[^_]*`+p+lang+`_.*`),
		mk(CategoryRelationship, `x?(sct|rel)2_Relationship_[^_]*`+p+`_.*`),
		mk(CategoryConcreteRelationship, `x?(sct|rel)2_RelationshipConcreteValues_[^_]*`+p+`_.*`),
		mk(CategoryStatedRelationship, `x?(sct|rel)2_StatedRelationship_[^_]*`+p+`_.*`),
		mk(CategoryIdentifier, `x?(sct|rel)2_Identifier_[^_]*`+p+`_.*`),
		mk(CategoryRefset, `x?(sct|rel)2_sRefset_OWL.*[^_]*`+p+`_.*`),
		mk(CategoryRefset, `x?(der|rel)2_[sci]*Refset_[^_]*`+p+lang+`_.*`),
	}
}

// Classify returns the category of a release filename for the given filename
// part ("Snapshot", "Delta" or "Full").
func Classify(name, part string) Category {
	if !strings.HasSuffix(name, ".txt") {
		return CategoryUnknown
	}
	for _, c := range classifiers[part] {
		if c.re.MatchString(name) {
			return c.category
		}
	}
	return CategoryUnknown
}

// ReleaseFiles holds discovered file paths grouped by category.
type ReleaseFiles struct {
	Concepts              []string
	Descriptions          []string
	TextDefinitions       []string
	Relationships         []string
	ConcreteRelationships []string
	StatedRelationships   []string
	Identifiers           []string
	Refsets               []string
}

func (f *ReleaseFiles) add(c Category, path string) {
	switch c {
	case CategoryConcept:
		f.Concepts = append(f.Concepts, path)
	case CategoryDescription:
		f.Descriptions = append(f.Descriptions, path)
	case CategoryTextDefinition:
		f.TextDefinitions = append(f.TextDefinitions, path)
	case CategoryRelationship:
		f.Relationships = append(f.Relationships, path)
	case CategoryConcreteRelationship:
		f.ConcreteRelationships = append(f.ConcreteRelationships, path)
	case CategoryStatedRelationship:
		f.StatedRelationships = append(f.StatedRelationships, path)
	case CategoryIdentifier:
		f.Identifiers = append(f.Identifiers, path)
	case CategoryRefset:
		f.Refsets = append(f.Refsets, path)
	}
}

// Append adds every path of o after the paths already held.
func (f *ReleaseFiles) Append(o ReleaseFiles) {
	o.Each(func(c Category, path string) { f.add(c, path) })
}

// Each calls fn for every path, grouped by category.
func (f ReleaseFiles) Each(fn func(Category, string)) {
	groups := []struct {
		c     Category
		paths []string
	}{
		{CategoryConcept, f.Concepts},
		{CategoryDescription, f.Descriptions},
		{CategoryTextDefinition, f.TextDefinitions},
		{CategoryRelationship, f.Relationships},
		{CategoryConcreteRelationship, f.ConcreteRelationships},
		{CategoryStatedRelationship, f.StatedRelationships},
		{CategoryIdentifier, f.Identifiers},
		{CategoryRefset, f.Refsets},
	}
	for _, g := range groups {
		for _, p := range g.paths {
			fn(g.c, p)
		}
	}
}

func (f ReleaseFiles) Count() int {
	n := 0
	f.Each(func(Category, string) { n++ })
	return n
}

func (f ReleaseFiles) String() string {
	return fmt.Sprintf("concepts=%d descriptions=%d textDefinitions=%d relationships=%d concrete=%d stated=%d identifiers=%d refsets=%d",
		len(f.Concepts), len(f.Descriptions), len(f.TextDefinitions), len(f.Relationships),
		len(f.ConcreteRelationships), len(f.StatedRelationships), len(f.Identifiers), len(f.Refsets))
}

// Requirements names the file groups that must be present for a load.
type Requirements struct {
	Concepts      bool
	Relationships bool
	Descriptions  bool
}

// Check fails with a configuration error when a required group is empty.
func (f ReleaseFiles) Check(req Requirements, where string) error {
	missing := func(what string) error {
		return errors.AddContext(
			errors.Newf(errors.CodeConfiguration, "%s release file not found, %s", what, where),
			errors.CtxComponent, what)
	}
	if req.Concepts && len(f.Concepts) == 0 {
		return missing("concept")
	}
	if req.Relationships && len(f.Relationships) == 0 {
		return missing("relationship")
	}
	if req.Descriptions && len(f.Descriptions) == 0 {
		return missing("description")
	}
	return nil
}

// CompileGlobs compiles directory exclusion patterns.
func CompileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeConfiguration, fmt.Sprintf("invalid glob pattern %q", p))
		}
		out = append(out, g)
	}
	return out, nil
}

// Discover walks every directory and collects the files for one filename part.
// Directories whose name matches an exclude pattern are skipped.
func Discover(dirs []string, part string, exclude []glob.Glob) (ReleaseFiles, error) {
	var files ReleaseFiles
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			return files, errors.AddContext(
				errors.Newf(errors.CodeConfiguration, "could not find release directory '%s'", dir),
				errors.CtxPath, dir)
		}
		err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				slog.Warn("error walking release directory", "path", path, "error", err)
				return nil
			}
			name := d.Name()
			if d.IsDir() {
				if path != dir && matchesAny(exclude, name) {
					return filepath.SkipDir
				}
				return nil
			}
			c := Classify(name, part)
			if c == CategoryUnknown {
				if strings.HasSuffix(name, ".txt") && plausibleName.MatchString(name) && strings.Contains(name, part) {
					slog.Info("release file name not recognised", "path", path)
				}
				return nil
			}
			files.add(c, path)
			return nil
		})
		if err != nil {
			return files, errors.AddContext(errors.Wrap(err, errors.CodeFormat, "failed to walk release directory"), errors.CtxPath, dir)
		}
	}
	return files, nil
}

// Find discovers files for every filename part of mode, checks each part
// against req and concatenates the results in part order.
func Find(dirs []string, mode Mode, req Requirements, exclude []glob.Glob) (ReleaseFiles, error) {
	var combined ReleaseFiles
	where := "looking recursively in: " + strings.Join(dirs, ", ")
	for _, part := range mode.FilenameParts() {
		files, err := Discover(dirs, part, exclude)
		if err != nil {
			return combined, err
		}
		if err := files.Check(req, where); err != nil {
			return combined, errors.AddContext(err, errors.CtxOperation, part)
		}
		combined.Append(files)
	}
	return combined, nil
}

func matchesAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
