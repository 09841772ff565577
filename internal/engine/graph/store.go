package graph

import (
	"hash/fnv"
	"slices"
	"sync"
	"sync/atomic"

	"rf2boot/internal/shared/observability"
)

const (
	shardCount        = 64
	defaultCacheItems = 4096
)

type shard struct {
	mu    sync.RWMutex
	nodes map[string]*Concept
}

// Store is the registry of concept nodes. It is the only owner of nodes;
// nodes refer to each other by id. Every operation is an id-keyed upsert and
// creates a placeholder node for an unseen id. Safe for concurrent use.
type Store struct {
	shards [shardCount]*shard

	mu    sync.RWMutex
	arena []*Concept // creation order

	// generation changes on every mutation that can alter a closure.
	generation atomic.Uint64
	cache      *closureCache
}

type StoreOption func(*Store)

// WithCacheSize bounds the number of cached closure results.
func WithCacheSize(n int) StoreOption {
	return func(s *Store) { s.cache = newClosureCache(n) }
}

func NewStore(opts ...StoreOption) *Store {
	s := &Store{cache: newClosureCache(defaultCacheItems)}
	for i := range s.shards {
		s.shards[i] = &shard{nodes: make(map[string]*Concept)}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) shardFor(id string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return s.shards[h.Sum32()%shardCount]
}

// Get returns the node for id, or nil.
func (s *Store) Get(id string) *Concept {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.nodes[id]
}

func (s *Store) node(id string) *Concept {
	sh := s.shardFor(id)
	sh.mu.RLock()
	c := sh.nodes[id]
	sh.mu.RUnlock()
	if c != nil {
		return c
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if c = sh.nodes[id]; c != nil {
		return c
	}
	c = newConcept(id)
	sh.nodes[id] = c

	s.mu.Lock()
	s.arena = append(s.arena, c)
	n := len(s.arena)
	s.mu.Unlock()
	observability.GraphNodes.Set(float64(n))
	return c
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.arena)
}

// Each calls fn for every node in creation order until fn returns false.
func (s *Store) Each(fn func(*Concept) bool) {
	s.mu.RLock()
	nodes := slices.Clone(s.arena)
	s.mu.RUnlock()
	for _, c := range nodes {
		if !fn(c) {
			return
		}
	}
}

// IDs returns every node id, sorted.
func (s *Store) IDs() []string {
	var ids []string
	s.Each(func(c *Concept) bool {
		ids = append(ids, c.id)
		return true
	})
	slices.Sort(ids)
	return ids
}

func (s *Store) touch() { s.generation.Add(1) }

func (s *Store) UpsertConceptState(id string, state ConceptState) {
	c := s.node(id)
	c.mu.Lock()
	c.loaded = true
	c.state = state
	c.mu.Unlock()
	s.touch()
}

// AddDescription records d on conceptID, replacing an earlier version of the
// same description.
func (s *Store) AddDescription(conceptID string, d Description) {
	c := s.node(conceptID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.IndexFunc(c.descriptions, func(x Description) bool { return x.ID == d.ID }); i >= 0 {
		c.descriptions[i] = d
		return
	}
	c.descriptions = append(c.descriptions, d)
}

func (s *Store) SetFSN(conceptID, term string) {
	c := s.node(conceptID)
	c.mu.Lock()
	c.fsn = term
	c.mu.Unlock()
}

// AddRelationship records r on sourceID, replacing an earlier version of the
// same relationship. The destination gets a node too.
func (s *Store) AddRelationship(sourceID string, r Relationship) {
	if r.DestinationID != "" {
		s.node(r.DestinationID)
	}
	s.putRelationship(sourceID, r)
}

func (s *Store) AddConcreteRelationship(sourceID string, r Relationship) {
	r.Concrete = true
	r.DestinationID = ""
	s.putRelationship(sourceID, r)
}

func (s *Store) putRelationship(sourceID string, r Relationship) {
	c := s.node(sourceID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := slices.IndexFunc(c.relationships, func(x Relationship) bool { return x.ID == r.ID }); i >= 0 {
		c.relationships[i] = r
		return
	}
	c.relationships = append(c.relationships, r)
}

// LinkParent records child is-a parent in form, on both nodes. The two nodes
// are locked one after the other, never together.
func (s *Store) LinkParent(childID, parentID string, form Form) {
	child, parent := s.node(childID), s.node(parentID)

	child.mu.Lock()
	addTo(&child.parents[form], parentID)
	child.mu.Unlock()

	parent.mu.Lock()
	addTo(&parent.children[form], childID)
	parent.mu.Unlock()
	s.touch()
}

// UnlinkParent retracts an edge recorded by LinkParent.
func (s *Store) UnlinkParent(childID, parentID string, form Form) {
	child, parent := s.node(childID), s.node(parentID)

	child.mu.Lock()
	delete(child.parents[form], parentID)
	child.mu.Unlock()

	parent.mu.Lock()
	delete(parent.children[form], childID)
	parent.mu.Unlock()
	s.touch()
}

func (s *Store) AddAttribute(conceptID string, form Form, typeID, value string) {
	c := s.node(conceptID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.attributes[form] == nil {
		c.attributes[form] = make(map[string]map[string]struct{})
	}
	values := c.attributes[form][typeID]
	addTo(&values, value)
	c.attributes[form][typeID] = values
}

// RemoveAttribute drops one value recorded by AddAttribute.
func (s *Store) RemoveAttribute(conceptID string, form Form, typeID, value string) {
	c := s.Get(conceptID)
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	values := c.attributes[form][typeID]
	delete(values, value)
	if len(values) == 0 {
		delete(c.attributes[form], typeID)
	}
}

func (s *Store) AddRefsetMembership(conceptID, refsetID string) {
	c := s.node(conceptID)
	c.mu.Lock()
	addTo(&c.refsets, refsetID)
	c.mu.Unlock()
}

func (s *Store) AddIdentifier(conceptID, scheme, alternateID string) {
	c := s.node(conceptID)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identifiers == nil {
		c.identifiers = make(map[string]string)
	}
	c.identifiers[scheme] = alternateID
}
