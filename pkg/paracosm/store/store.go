// Package store persists reality snapshots. Mechanisms persist by
// name only and are rehydrated through a causal registry on load;
// native rule conditions cannot be serialized and are skipped by the
// snapshotting layer.
package store

import "context"

// Store is the interface for persisting and listing reality snapshots.
type Store interface {
	Close() error

	SaveReality(ctx context.Context, snap Snapshot) error
	LoadReality(ctx context.Context, name string) (Snapshot, bool, error)
	ListRealities(ctx context.Context) ([]string, error)
	DeleteReality(ctx context.Context, name string) error
}

// Snapshot is the serializable image of one reality.
type Snapshot struct {
	Name          string
	Clock         int
	Facts         []Fact
	Rules         []Rule
	Nodes         []Node
	Edges         []Edge
	Interventions []Intervention
}

// Fact is one stored fact: compound key and value.
type Fact struct {
	Key   string
	Value any
}

// Rule is one stored rule; the body holds sub-goal strings only.
type Rule struct {
	Head string
	Body []string
}

// Node is one causal node's stored state and optional domain.
type Node struct {
	Name   string
	State  any
	Domain []any
}

// Edge is one causal edge, mechanism by registry name.
type Edge struct {
	Cause     string
	Effect    string
	Mechanism string
}

// Intervention is one active forced value.
type Intervention struct {
	Node  string
	Value any
}
