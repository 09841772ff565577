// Package graph holds the concept graph built from a release: one node per
// concept id, with inferred and stated is-a edges in both directions,
// attribute maps, descriptions, relationships and refset membership.
package graph

import (
	"slices"
	"sync"

	"rf2boot/internal/engine/rf2"
)

// Form selects the inferred or the stated view of the graph.
type Form int

const (
	Inferred Form = iota
	Stated
	formCount
)

func (f Form) String() string {
	if f == Stated {
		return "stated"
	}
	return "inferred"
}

// FormOf maps a characteristic type id to a Form. Additional and qualifying
// relationships have no form.
func FormOf(characteristicTypeID string) (Form, bool) {
	switch characteristicTypeID {
	case rf2.InferredRelationship:
		return Inferred, true
	case rf2.StatedRelationship:
		return Stated, true
	}
	return Inferred, false
}

type Description struct {
	ID            string
	EffectiveTime string
	Active        bool
	LanguageCode  string
	TypeID        string
	Term          string
}

// Relationship is a relationship of a concept. Concrete relationships carry
// Value instead of DestinationID.
type Relationship struct {
	ID                   string
	EffectiveTime        string
	Active               bool
	DestinationID        string
	Value                string
	Concrete             bool
	Group                string
	TypeID               string
	CharacteristicTypeID string
}

// ConceptState is the content of a concept row.
type ConceptState struct {
	Active             bool
	ModuleID           string
	EffectiveTime      string
	DefinitionStatusID string
}

// Concept is a node of the graph. Nodes are created on first reference, so a
// node may exist before (or without) its concept row; Loaded tells them apart.
// All accessors return copies.
type Concept struct {
	mu sync.Mutex

	id            string
	loaded        bool
	state         ConceptState
	fsn           string
	descriptions  []Description
	relationships []Relationship
	parents       [formCount]map[string]struct{}
	children      [formCount]map[string]struct{}
	attributes    [formCount]map[string]map[string]struct{}
	refsets       map[string]struct{}
	identifiers   map[string]string // scheme -> alternate id
}

func newConcept(id string) *Concept {
	return &Concept{id: id}
}

func (c *Concept) ID() string { return c.id }

func (c *Concept) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Active reports whether the concept row was seen and is active.
func (c *Concept) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded && c.state.Active
}

func (c *Concept) State() ConceptState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// FSN returns the fully specified name, or "" when none was loaded.
func (c *Concept) FSN() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fsn
}

func (c *Concept) Descriptions() []Description {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.descriptions)
}

func (c *Concept) Relationships() []Relationship {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.relationships)
}

// Parents returns the direct parents in form, sorted.
func (c *Concept) Parents(form Form) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedSet(c.parents[form])
}

// Children returns the direct children in form, sorted.
func (c *Concept) Children(form Form) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedSet(c.children[form])
}

// Attribute returns the destinations or values recorded for typeID.
func (c *Concept) Attribute(form Form, typeID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedSet(c.attributes[form][typeID])
}

// Attributes returns the attribute map of form, values sorted.
func (c *Concept) Attributes(form Form) map[string][]string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string][]string, len(c.attributes[form]))
	for typ, values := range c.attributes[form] {
		out[typ] = sortedSet(values)
	}
	return out
}

func (c *Concept) Refsets() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedSet(c.refsets)
}

func (c *Concept) InRefset(refsetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.refsets[refsetID]
	return ok
}

// Identifier returns the alternate id recorded for scheme.
func (c *Concept) Identifier(scheme string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	alt, ok := c.identifiers[scheme]
	return alt, ok
}

// edges snapshots the is-a neighbours used by closure queries.
func (c *Concept) edges(form Form, down bool) ([]string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	set := c.parents[form]
	if down {
		set = c.children[form]
	}
	return sortedSet(set), c.loaded && c.state.Active
}

func sortedSet(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func addTo(set *map[string]struct{}, key string) {
	if *set == nil {
		*set = make(map[string]struct{})
	}
	(*set)[key] = struct{}{}
}
