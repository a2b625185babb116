package causal

import "sort"

// Ancestors returns the names of every node with a directed path into
// the given node. Plain breadth-first walk over the parent adjacency.
func (m *Model) Ancestors(name string) []string {
	return m.reachable(name, func(n *Node) map[string]struct{} { return n.parents })
}

// Descendants returns the names of every node reachable from the given
// node through child edges.
func (m *Model) Descendants(name string) []string {
	return m.reachable(name, func(n *Node) map[string]struct{} { return n.children })
}

func (m *Model) reachable(start string, adj func(*Node) map[string]struct{}) []string {
	visited := map[string]struct{}{start: {}}
	queue := []string{start}
	var out []string

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n, ok := m.nodes[cur]
		if !ok {
			continue
		}
		for next := range adj(n) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			out = append(out, next)
			queue = append(queue, next)
		}
	}
	sort.Strings(out)
	return out
}

// Path finds one directed causal path from cause to effect, inclusive,
// or nil if none exists.
func (m *Model) Path(cause, effect string) []string {
	if _, ok := m.nodes[cause]; !ok {
		return nil
	}
	if cause == effect {
		return []string{cause}
	}
	prev := map[string]string{}
	visited := map[string]struct{}{cause: {}}
	queue := []string{cause}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		n := m.nodes[cur]
		// Deterministic order for reproducible paths.
		children := n.Children()
		sort.Strings(children)
		for _, next := range children {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			prev[next] = cur
			if next == effect {
				return walkBack(prev, cause, effect)
			}
			queue = append(queue, next)
		}
	}
	return nil
}

func walkBack(prev map[string]string, from, to string) []string {
	path := []string{to}
	for cur := to; cur != from; {
		cur = prev[cur]
		path = append([]string{cur}, path...)
	}
	return path
}
