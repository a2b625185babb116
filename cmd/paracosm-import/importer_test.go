package main

import (
	"io"
	"strings"
	"testing"
)

const glossaryHTML = `<html><body>
<h1>Glossary</h1>
<dl>
  <dt>Unification</dt>
  <dd>Matching two <a href="#term">Terms</a> by binding variables.</dd>
  <dt>Term</dt>
  <dd>An atom, number, list, or variable.</dd>
  <dd>The unit the engine reasons over.</dd>
  <dt>Reality</dt>
  <dd>An isolated fact store. See <a href="#cg">Causal Graph</a>.</dd>
</dl>
<dl>
  <dt>Causal Graph</dt>
  <dd>Directed mechanisms between node states.</dd>
</dl>
</body></html>`

func reader(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestParseGlossary(t *testing.T) {
	entries, err := parseGlossary(reader(glossaryHTML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d: %v", len(entries), entries)
	}

	byTerm := map[string]Entry{}
	for _, e := range entries {
		byTerm[e.Term] = e
	}

	u, ok := byTerm["unification"]
	if !ok {
		t.Fatal("missing unification entry")
	}
	if !strings.HasPrefix(u.Definition, "Matching two Terms") {
		t.Errorf("unexpected definition: %q", u.Definition)
	}
	if len(u.Links) != 1 || u.Links[0] != "terms" {
		t.Errorf("unexpected links: %v", u.Links)
	}

	// Multiple <dd> elements concatenate.
	term := byTerm["term"]
	if !strings.Contains(term.Definition, "unit the engine reasons over") {
		t.Errorf("second dd should be folded in: %q", term.Definition)
	}

	// Both definition lists are scanned.
	if _, ok := byTerm["causal_graph"]; !ok {
		t.Error("entry from second dl missing")
	}
}

func TestParseGlossaryNoLists(t *testing.T) {
	entries, err := parseGlossary(reader("<html><body><p>nothing</p></body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %v", entries)
	}
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Causal Graph":   "causal_graph",
		"  Term  ":       "term",
		"do: operator":   "do_operator",
		"ALL CAPS\nNAME": "all_caps_name",
	}
	for in, want := range cases {
		if got := normalize(in); got != want {
			t.Errorf("normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToKnowledge(t *testing.T) {
	entries := []Entry{
		{Term: "unification", Definition: "Matching terms.", Links: []string{"term", "missing"}},
		{Term: "term", Definition: "A value."},
	}
	k := toKnowledge(entries)

	if k.Reality != "glossary" {
		t.Errorf("unexpected reality: %q", k.Reality)
	}
	if v := k.Facts["isA:unification:term"]; v != true {
		t.Error("term classification fact missing")
	}
	if v := k.Facts["defines:term"]; v != "A value." {
		t.Errorf("definition fact missing, got %v", v)
	}
	if v := k.Facts["relatedTo:unification:term"]; v != true {
		t.Error("in-glossary link should become a relatedTo fact")
	}
	if _, ok := k.Facts["relatedTo:unification:missing"]; ok {
		t.Error("links to unknown terms should be dropped")
	}
}
