package graph

import "slices"

// DetectCycles scans the whole is-a graph of form and returns one path per
// back edge found, each starting and ending at the same concept. Unlike
// closure queries it does not stop at the first cycle, so it can report on a
// release that closure queries reject.
func (s *Store) DetectCycles(form Form) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	for _, id := range s.IDs() {
		if !visited[id] {
			s.findCycles(id, form, visited, onStack, nil, &cycles)
		}
	}
	return cycles
}

func (s *Store) findCycles(curr string, form Form, visited, onStack map[string]bool, path []string, cycles *[][]string) {
	visited[curr] = true
	onStack[curr] = true
	path = append(path, curr)

	var parents []string
	if c := s.Get(curr); c != nil {
		parents = c.Parents(form)
	}
	for _, next := range parents {
		if onStack[next] {
			if start := slices.Index(path, next); start != -1 {
				cycle := slices.Clone(path[start:])
				*cycles = append(*cycles, append(cycle, next))
			}
		} else if !visited[next] {
			s.findCycles(next, form, visited, onStack, path, cycles)
		}
	}

	onStack[curr] = false
}

// IsAPath returns the shortest chain of is-a edges in form leading from
// child up to ancestor, both included. Ties are broken by parent id.
func (s *Store) IsAPath(child, ancestor string, form Form) ([]string, bool) {
	if s.Get(child) == nil || s.Get(ancestor) == nil {
		return nil, false
	}
	if child == ancestor {
		return []string{child}, true
	}

	queue := []string{child}
	visited := map[string]bool{child: true}
	prev := make(map[string]string)

	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]

		for _, next := range s.Get(curr).Parents(form) {
			if visited[next] || s.Get(next) == nil {
				continue
			}
			visited[next] = true
			prev[next] = curr

			if next == ancestor {
				path := []string{ancestor}
				for node := ancestor; node != child; {
					node = prev[node]
					path = append(path, node)
				}
				slices.Reverse(path)
				return path, true
			}
			queue = append(queue, next)
		}
	}
	return nil, false
}
