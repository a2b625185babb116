// Package thesaurus is a small transitive-closure engine over
// related-term names, fed from a reality's relational facts. It sits
// outside the resolution core: it consumes fact keys and produces
// related-name sets for callers that want semantic neighborhoods
// without running full queries.
package thesaurus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/paracosm/pkg/paracosm/reality"
)

// Thesaurus stores directed related-term links. Relations are
// transitive; cycles are tolerated via visited sets.
type Thesaurus struct {
	links map[string][]string
}

// New creates an empty thesaurus.
func New() *Thesaurus {
	return &Thesaurus{links: make(map[string][]string)}
}

// FromReality builds a thesaurus from every binary fact of the given
// relation in a reality, e.g. relation "relatedTo" collecting keys of
// the form relatedTo:a:b.
func FromReality(r *reality.Reality, relation string) *Thesaurus {
	t := New()
	prefix := relation + reality.KeySep
	for _, key := range r.FactKeys() {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		seg := strings.Split(key, reality.KeySep)
		if len(seg) != 3 {
			continue
		}
		t.Add(seg[1], seg[2])
	}
	return t
}

// Add records a directed link, skipping duplicates.
func (t *Thesaurus) Add(from, to string) {
	for _, existing := range t.links[from] {
		if existing == to {
			return
		}
	}
	t.links[from] = append(t.links[from], to)
}

// Related reports whether to is reachable from from, directly or
// transitively.
func (t *Thesaurus) Related(from, to string) bool {
	return t.related(from, to, make(map[string]bool))
}

func (t *Thesaurus) related(from, to string, visited map[string]bool) bool {
	if visited[from] {
		return false // cycle
	}
	visited[from] = true

	for _, next := range t.links[from] {
		if next == to {
			return true
		}
		if t.related(next, to, visited) {
			return true
		}
	}
	return false
}

// All returns every term reachable from the given term, sorted.
func (t *Thesaurus) All(from string) []string {
	results := make(map[string]bool)
	t.collect(from, results, make(map[string]bool))

	out := make([]string, 0, len(results))
	for name := range results {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (t *Thesaurus) collect(from string, results, visited map[string]bool) {
	if visited[from] {
		return
	}
	visited[from] = true

	for _, next := range t.links[from] {
		results[next] = true
		t.collect(next, results, visited)
	}
}

// Expand returns the input terms plus everything reachable from them
// and every direct predecessor, for query broadening.
func (t *Thesaurus) Expand(terms []string) []string {
	expanded := make(map[string]bool)
	for _, tm := range terms {
		expanded[tm] = true
	}

	for _, tm := range terms {
		for _, reachable := range t.All(tm) {
			expanded[reachable] = true
		}
		for from, tos := range t.links {
			for _, to := range tos {
				if to == tm {
					expanded[from] = true
				}
			}
		}
	}

	out := make([]string, 0, len(expanded))
	for name := range expanded {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Path returns one chain of links from from to to, inclusive, or nil.
func (t *Thesaurus) Path(from, to string) []string {
	return t.path(from, to, []string{from}, make(map[string]bool))
}

func (t *Thesaurus) path(from, to string, acc []string, visited map[string]bool) []string {
	if visited[from] {
		return nil
	}
	visited[from] = true

	for _, next := range t.links[from] {
		if next == to {
			return append(acc, next)
		}
		if found := t.path(next, to, append(acc, next), visited); found != nil {
			return found
		}
	}
	return nil
}

// Explain renders the link chain between two terms, or says why none
// exists.
func (t *Thesaurus) Explain(from, to string) string {
	path := t.Path(from, to)
	if path == nil {
		return fmt.Sprintf("no relation from %s to %s", from, to)
	}
	return strings.Join(path, " -> ")
}
