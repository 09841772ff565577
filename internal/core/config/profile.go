package config

import (
	"log/slog"
	"maps"
	"slices"
	"sort"

	"rf2boot/internal/engine/rf2"
)

// Profile decides which rows a load delivers. It is immutable: With returns
// a modified copy and never touches the receiver.
type Profile struct {
	concepts            bool
	descriptions        bool
	textDefinitions     bool
	relationships       bool
	identifiers         bool
	statedRelationships bool

	inactiveConcepts      bool
	inactiveDescriptions  bool
	inactiveRelationships bool
	inactiveIdentifiers   bool
	inactiveMembers       bool

	inferredAttributeMap bool
	statedAttributeMap   bool

	allRefsets      bool
	justRefsets     bool
	effectiveFilter bool

	refsetIDs            map[string]struct{}
	refsetPatterns       []string
	moduleIDs            map[string]struct{}
	moduleEffectiveTimes map[string]int
}

// Option modifies the copy being built by Profile.With.
type Option func(*Profile)

// Light loads active concepts, descriptions, text definitions, inferred
// relationships, identifiers and the GB/US English language refsets.
func Light() Profile {
	return Profile{}.With(
		WithConcepts(true),
		WithDescriptions(true),
		WithTextDefinitions(true),
		WithRelationships(true),
		WithIdentifiers(true),
		WithInferredAttributeMap(true),
		WithRefsets(rf2.GBLanguageRefset, rf2.USLanguageRefset),
	)
}

// Complete loads everything, including inactive rows, stated relationships
// and every refset.
func Complete() Profile {
	return Profile{}.With(
		WithConcepts(true),
		WithDescriptions(true),
		WithTextDefinitions(true),
		WithRelationships(true),
		WithIdentifiers(true),
		WithInferredAttributeMap(true),
		WithStatedRelationships(true),
		WithInactiveComponents(),
		WithInactiveRefsetMembers(true),
		WithAllRefsets(true),
	)
}

// ByName returns a preset by name.
func ByName(name string) (Profile, bool) {
	switch name {
	case "light", "":
		return Light(), true
	case "complete":
		return Complete(), true
	}
	return Profile{}, false
}

func (p Profile) With(opts ...Option) Profile {
	c := p.clone()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func (p Profile) clone() Profile {
	c := p
	c.refsetIDs = maps.Clone(p.refsetIDs)
	c.refsetPatterns = slices.Clone(p.refsetPatterns)
	c.moduleIDs = maps.Clone(p.moduleIDs)
	c.moduleEffectiveTimes = maps.Clone(p.moduleEffectiveTimes)
	return c
}

func WithConcepts(on bool) Option            { return func(p *Profile) { p.concepts = on } }
func WithDescriptions(on bool) Option        { return func(p *Profile) { p.descriptions = on } }
func WithTextDefinitions(on bool) Option     { return func(p *Profile) { p.textDefinitions = on } }
func WithRelationships(on bool) Option       { return func(p *Profile) { p.relationships = on } }
func WithIdentifiers(on bool) Option         { return func(p *Profile) { p.identifiers = on } }
func WithStatedRelationships(on bool) Option { return func(p *Profile) { p.statedRelationships = on } }

func WithInactiveConcepts(on bool) Option      { return func(p *Profile) { p.inactiveConcepts = on } }
func WithInactiveDescriptions(on bool) Option  { return func(p *Profile) { p.inactiveDescriptions = on } }
func WithInactiveRelationships(on bool) Option { return func(p *Profile) { p.inactiveRelationships = on } }
func WithInactiveIdentifiers(on bool) Option   { return func(p *Profile) { p.inactiveIdentifiers = on } }
func WithInactiveRefsetMembers(on bool) Option { return func(p *Profile) { p.inactiveMembers = on } }

// WithInactiveComponents turns on inactive rows for every core component type.
func WithInactiveComponents() Option {
	return func(p *Profile) {
		p.inactiveConcepts = true
		p.inactiveDescriptions = true
		p.inactiveRelationships = true
		p.inactiveIdentifiers = true
	}
}

func WithInferredAttributeMap(on bool) Option { return func(p *Profile) { p.inferredAttributeMap = on } }
func WithStatedAttributeMap(on bool) Option   { return func(p *Profile) { p.statedAttributeMap = on } }

func WithAllRefsets(on bool) Option  { return func(p *Profile) { p.allRefsets = on } }
func WithJustRefsets(on bool) Option { return func(p *Profile) { p.justRefsets = on } }

// WithEffectiveFilter toggles effective version resolution. Only snapshot
// and snapshot+delta loads accept it.
func WithEffectiveFilter(on bool) Option { return func(p *Profile) { p.effectiveFilter = on } }

func WithRefsets(ids ...string) Option {
	return func(p *Profile) {
		if p.refsetIDs == nil {
			p.refsetIDs = make(map[string]struct{}, len(ids))
		}
		for _, id := range ids {
			p.refsetIDs[id] = struct{}{}
		}
	}
}

func WithoutRefsets(ids ...string) Option {
	return func(p *Profile) {
		for _, id := range ids {
			delete(p.refsetIDs, id)
		}
	}
}

func WithoutAnyRefsets() Option {
	return func(p *Profile) { p.refsetIDs = nil }
}

// WithRefsetFilenamePatterns adds gobwas/glob patterns matched against the
// base name of each refset file. A file matching any pattern is loaded whole.
// The syntax is glob, not regular expression: write "der2_*Language*" rather
// than "der2_.*Language.*". "*" matches any run of characters, "?" one
// character, "[...]" a class and "{a,b}" alternatives. Matching fewer files
// than there are patterns is logged as a warning.
func WithRefsetFilenamePatterns(patterns ...string) Option {
	return func(p *Profile) {
		for _, pat := range patterns {
			if !slices.Contains(p.refsetPatterns, pat) {
				p.refsetPatterns = append(p.refsetPatterns, pat)
			}
		}
		sort.Strings(p.refsetPatterns)
	}
}

func WithModules(ids ...string) Option {
	return func(p *Profile) {
		if p.moduleIDs == nil {
			p.moduleIDs = make(map[string]struct{}, len(ids))
		}
		for _, id := range ids {
			p.moduleIDs[id] = struct{}{}
		}
	}
}

func WithoutModules(ids ...string) Option {
	return func(p *Profile) {
		for _, id := range ids {
			delete(p.moduleIDs, id)
		}
	}
}

func WithoutAnyModules() Option {
	return func(p *Profile) { p.moduleIDs = nil }
}

// WithModuleEffectiveTimes sets, per module, the effective time already
// imported. Rows of those modules at or before that time are skipped.
func WithModuleEffectiveTimes(times map[string]int) Option {
	return func(p *Profile) { p.moduleEffectiveTimes = maps.Clone(times) }
}

func (p Profile) Concepts() bool              { return p.concepts }
func (p Profile) Descriptions() bool          { return p.descriptions }
func (p Profile) TextDefinitions() bool       { return p.textDefinitions }
func (p Profile) Relationships() bool         { return p.relationships }
func (p Profile) Identifiers() bool           { return p.identifiers }
func (p Profile) StatedRelationships() bool   { return p.statedRelationships }
func (p Profile) InactiveConcepts() bool      { return p.inactiveConcepts }
func (p Profile) InactiveDescriptions() bool  { return p.inactiveDescriptions }
func (p Profile) InactiveRelationships() bool { return p.inactiveRelationships }
func (p Profile) InactiveIdentifiers() bool   { return p.inactiveIdentifiers }
func (p Profile) InactiveRefsetMembers() bool { return p.inactiveMembers }
func (p Profile) InferredAttributeMap() bool  { return p.inferredAttributeMap }
func (p Profile) StatedAttributeMap() bool    { return p.statedAttributeMap }
func (p Profile) AllRefsets() bool            { return p.allRefsets }
func (p Profile) JustRefsets() bool           { return p.justRefsets }
func (p Profile) EffectiveFilter() bool       { return p.effectiveFilter }

func (p Profile) IsRefset(id string) bool {
	_, ok := p.refsetIDs[id]
	return ok
}

func (p Profile) RefsetIDs() []string {
	return sortedSet(p.refsetIDs)
}

func (p Profile) RefsetFilenamePatterns() []string {
	return slices.Clone(p.refsetPatterns)
}

// LoadsRefsets reports whether any refset file needs to be read.
func (p Profile) LoadsRefsets() bool {
	return p.allRefsets || len(p.refsetIDs) > 0 || len(p.refsetPatterns) > 0
}

func (p Profile) HasModule(id string) bool {
	_, ok := p.moduleIDs[id]
	return ok
}

func (p Profile) ModuleIDs() []string {
	return sortedSet(p.moduleIDs)
}

func (p Profile) ModuleEffectiveTimes() map[string]int {
	return maps.Clone(p.moduleEffectiveTimes)
}

// ModuleEffectiveTime returns the cutoff for module, if one is set.
func (p Profile) ModuleEffectiveTime(module string) (int, bool) {
	v, ok := p.moduleEffectiveTimes[module]
	return v, ok
}

// Requirements lists the file groups a load with this profile cannot do without.
func (p Profile) Requirements() rf2.Requirements {
	if p.justRefsets {
		return rf2.Requirements{}
	}
	return rf2.Requirements{
		Concepts:      p.concepts,
		Relationships: p.relationships,
		Descriptions:  p.descriptions,
	}
}

func (p Profile) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("concepts", p.concepts),
		slog.Bool("descriptions", p.descriptions),
		slog.Bool("relationships", p.relationships),
		slog.Bool("stated", p.statedRelationships),
		slog.Bool("identifiers", p.identifiers),
		slog.Bool("all_refsets", p.allRefsets),
		slog.Bool("just_refsets", p.justRefsets),
		slog.Any("refsets", p.RefsetIDs()),
		slog.Any("refset_patterns", p.refsetPatterns),
		slog.Any("modules", p.ModuleIDs()),
		slog.Bool("effective_filter", p.effectiveFilter),
	)
}

func sortedSet(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
