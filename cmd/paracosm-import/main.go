// paracosm-import turns an HTML glossary into a paracosm knowledge
// file. It walks definition lists (<dl><dt><dd>) in the source: each
// <dt> becomes a term, its <dd> text becomes the definition fact, and
// links inside the <dd> that point at other glossary terms become
// relatedTo links.
//
// Usage:
//
//	paracosm-import <file-or-url> [output.yaml]
package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/paracosm/pkg/paracosm/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: paracosm-import <file-or-url> [output.yaml]")
	}
	source := os.Args[1]
	output := "knowledge.yaml"
	if len(os.Args) > 2 {
		output = os.Args[2]
	}

	body, err := fetch(source)
	if err != nil {
		log.Fatal("Failed to read source: ", err)
	}

	entries, err := parseGlossary(body)
	if err != nil {
		log.Fatal("Failed to parse glossary: ", err)
	}
	if len(entries) == 0 {
		log.Fatal("No definition lists found in source")
	}

	k := toKnowledge(entries)
	data, err := yaml.Marshal(k)
	if err != nil {
		log.Fatal("Failed to encode knowledge: ", err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		log.Fatal("Failed to write output: ", err)
	}

	log.Printf("✓ Imported %d terms into %s", len(entries), output)
}

// fetch reads the source as a URL when it looks like one, otherwise as
// a local file.
func fetch(source string) (io.ReadCloser, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		resp, err := http.Get(source)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != 200 {
			resp.Body.Close()
			return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
		}
		return resp.Body, nil
	}
	return os.Open(source)
}

// Entry is one glossary term with its definition and outgoing links.
type Entry struct {
	Term       string
	Definition string
	Links      []string
}

// parseGlossary extracts definition-list entries from an HTML document.
func parseGlossary(r io.ReadCloser) ([]Entry, error) {
	defer r.Close()

	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "dl" {
			entries = append(entries, parseList(n)...)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return entries, nil
}

// parseList pairs each <dt> with the <dd> elements that follow it.
func parseList(dl *html.Node) []Entry {
	var entries []Entry
	var cur *Entry

	for c := dl.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.Data {
		case "dt":
			if cur != nil && cur.Term != "" {
				entries = append(entries, *cur)
			}
			cur = &Entry{Term: normalize(text(c))}
		case "dd":
			if cur == nil {
				continue
			}
			def := strings.TrimSpace(text(c))
			if cur.Definition == "" {
				cur.Definition = def
			} else {
				cur.Definition += " " + def
			}
			cur.Links = append(cur.Links, links(c)...)
		}
	}
	if cur != nil && cur.Term != "" {
		entries = append(entries, *cur)
	}
	return entries
}

// text extracts the concatenated text content of a node.
func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// links collects the text of anchor elements under a node, normalized
// to term form.
func links(n *html.Node) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			if t := normalize(text(n)); t != "" {
				out = append(out, t)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// normalize lowercases a term and joins its words with underscores so
// it can serve as a fact-key segment.
func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ":", " ")
	return strings.Join(strings.Fields(s), "_")
}

// toKnowledge folds glossary entries into a knowledge base: every term
// is classified, its definition stored, and each in-glossary link
// becomes a relatedTo fact.
func toKnowledge(entries []Entry) *config.Knowledge {
	known := make(map[string]bool, len(entries))
	for _, e := range entries {
		known[e.Term] = true
	}

	k := &config.Knowledge{
		Reality: "glossary",
		Facts:   make(map[string]any),
	}
	for _, e := range entries {
		k.Facts["isA:"+e.Term+":term"] = true
		if e.Definition != "" {
			k.Facts["defines:"+e.Term] = e.Definition
		}
		for _, l := range e.Links {
			if known[l] && l != e.Term {
				k.Facts["relatedTo:"+e.Term+":"+l] = true
			}
		}
	}
	return k
}
