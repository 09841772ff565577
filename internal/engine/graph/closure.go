package graph

import (
	"slices"
	"strings"

	"rf2boot/internal/core/errors"
)

// Ancestors returns every concept reachable from id over is-a edges in form,
// sorted, excluding id itself. Closure queries are where integrity is
// enforced: a cycle fails with CYCLE_DETECTED and an edge into an inactive
// or never loaded concept fails with INTEGRITY_ERROR. No partial result is
// returned on error.
func (s *Store) Ancestors(id string, form Form) ([]string, error) {
	return s.closure(id, form, false)
}

// Descendants is the inverse of Ancestors, following child edges.
func (s *Store) Descendants(id string, form Form) ([]string, error) {
	return s.closure(id, form, true)
}

// IsA reports whether ancestorID is id itself or one of its ancestors.
func (s *Store) IsA(id, ancestorID string, form Form) (bool, error) {
	if id == ancestorID {
		return s.Get(id) != nil, nil
	}
	ancestors, err := s.Ancestors(id, form)
	if err != nil {
		return false, err
	}
	_, found := slices.BinarySearch(ancestors, ancestorID)
	return found, nil
}

type frame struct {
	id    string
	edges []string
	next  int
}

func (s *Store) closure(id string, form Form, down bool) ([]string, error) {
	start := s.Get(id)
	if start == nil {
		return nil, errors.AddContext(errors.Newf(errors.CodeNotFound, "concept %s not found", id), errors.CtxConcept, id)
	}

	key := closureKey{id: id, form: form, down: down}
	generation := s.generation.Load()
	if ids, ok := s.cache.get(key, generation); ok {
		return slices.Clone(ids), nil
	}

	edges, _ := start.edges(form, down)
	stack := []*frame{{id: id, edges: edges}}
	onPath := map[string]bool{id: true}
	done := make(map[string]bool)

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		if top.next == len(top.edges) {
			stack = stack[:len(stack)-1]
			delete(onPath, top.id)
			done[top.id] = true
			continue
		}
		next := top.edges[top.next]
		top.next++

		if onPath[next] {
			return nil, cycleError(stack, next, form)
		}
		if done[next] {
			continue
		}
		node := s.Get(next)
		if node == nil {
			return nil, integrityError(top.id, next, form, down)
		}
		nextEdges, active := node.edges(form, down)
		if !active {
			return nil, integrityError(top.id, next, form, down)
		}
		onPath[next] = true
		stack = append(stack, &frame{id: next, edges: nextEdges})
	}

	delete(done, id)
	ids := make([]string, 0, len(done))
	for k := range done {
		ids = append(ids, k)
	}
	slices.Sort(ids)
	s.cache.put(key, generation, ids)
	return slices.Clone(ids), nil
}

func cycleError(stack []*frame, back string, form Form) error {
	path := make([]string, 0, len(stack)+1)
	for _, f := range stack {
		path = append(path, f.id)
	}
	if i := slices.Index(path, back); i > 0 {
		path = path[i:]
	}
	path = append(path, back)
	err := errors.Newf(errors.CodeCycleDetected, "cycle in %s is-a graph: %s", form, strings.Join(path, " -> "))
	return errors.AddContext(err, errors.CtxConcept, back)
}

func integrityError(from, to string, form Form, down bool) error {
	var err error
	if down {
		err = errors.Newf(errors.CodeIntegrity, "%s is-a relationship from inactive child concept %s to %s", form, to, from)
	} else {
		err = errors.Newf(errors.CodeIntegrity, "%s is-a relationship from %s points to inactive parent concept %s", form, from, to)
	}
	return errors.AddContext(err, errors.CtxConcept, to)
}
