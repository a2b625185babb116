// Package sqlite persists reality snapshots in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/cognicore/paracosm/pkg/paracosm/store"
)

// sqliteStore implements the Store interface using SQLite
type sqliteStore struct {
	db *sql.DB
}

// OpenSQLite opens a SQLite database with WAL mode enabled and
// initializes the snapshot schema.
func OpenSQLite(ctx context.Context, path string) (store.Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteStore{db: db}, nil
}

// Close closes the database connection
func (s *sqliteStore) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS realities (
	name TEXT PRIMARY KEY,
	clock INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS facts (
	reality TEXT NOT NULL,
	pos INTEGER NOT NULL,
	key TEXT NOT NULL,
	value TEXT,
	PRIMARY KEY (reality, key),
	FOREIGN KEY (reality) REFERENCES realities(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS rules (
	reality TEXT NOT NULL,
	pos INTEGER NOT NULL,
	head TEXT NOT NULL,
	body TEXT NOT NULL,
	PRIMARY KEY (reality, head),
	FOREIGN KEY (reality) REFERENCES realities(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS nodes (
	reality TEXT NOT NULL,
	name TEXT NOT NULL,
	state TEXT,
	domain TEXT,
	PRIMARY KEY (reality, name),
	FOREIGN KEY (reality) REFERENCES realities(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS edges (
	reality TEXT NOT NULL,
	cause TEXT NOT NULL,
	effect TEXT NOT NULL,
	mechanism TEXT NOT NULL,
	PRIMARY KEY (reality, cause, effect),
	FOREIGN KEY (reality) REFERENCES realities(name) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS interventions (
	reality TEXT NOT NULL,
	node TEXT NOT NULL,
	value TEXT,
	PRIMARY KEY (reality, node),
	FOREIGN KEY (reality) REFERENCES realities(name) ON DELETE CASCADE
);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveReality replaces the stored snapshot for one reality inside a
// transaction.
func (s *sqliteStore) SaveReality(ctx context.Context, snap store.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO realities (name, clock) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET clock = excluded.clock`,
		snap.Name, snap.Clock); err != nil {
		return err
	}

	for _, table := range []string{"facts", "rules", "nodes", "edges", "interventions"} {
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf("DELETE FROM %s WHERE reality = ?", table), snap.Name); err != nil {
			return err
		}
	}

	for i, f := range snap.Facts {
		v, err := json.Marshal(f.Value)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO facts (reality, pos, key, value) VALUES (?, ?, ?, ?)`,
			snap.Name, i, f.Key, string(v)); err != nil {
			return err
		}
	}

	for i, r := range snap.Rules {
		body, err := json.Marshal(r.Body)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO rules (reality, pos, head, body) VALUES (?, ?, ?, ?)`,
			snap.Name, i, r.Head, string(body)); err != nil {
			return err
		}
	}

	for _, n := range snap.Nodes {
		state, err := json.Marshal(n.State)
		if err != nil {
			return err
		}
		var domain any
		if n.Domain != nil {
			d, err := json.Marshal(n.Domain)
			if err != nil {
				return err
			}
			domain = string(d)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO nodes (reality, name, state, domain) VALUES (?, ?, ?, ?)`,
			snap.Name, n.Name, string(state), domain); err != nil {
			return err
		}
	}

	for _, e := range snap.Edges {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO edges (reality, cause, effect, mechanism) VALUES (?, ?, ?, ?)`,
			snap.Name, e.Cause, e.Effect, e.Mechanism); err != nil {
			return err
		}
	}

	for _, iv := range snap.Interventions {
		v, err := json.Marshal(iv.Value)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO interventions (reality, node, value) VALUES (?, ?, ?)`,
			snap.Name, iv.Node, string(v)); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadReality reads one reality's snapshot back.
func (s *sqliteStore) LoadReality(ctx context.Context, name string) (store.Snapshot, bool, error) {
	snap := store.Snapshot{Name: name}

	err := s.db.QueryRowContext(ctx,
		`SELECT clock FROM realities WHERE name = ?`, name).Scan(&snap.Clock)
	if err == sql.ErrNoRows {
		return store.Snapshot{}, false, nil
	}
	if err != nil {
		return store.Snapshot{}, false, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM facts WHERE reality = ? ORDER BY pos`, name)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var f store.Fact
		var raw string
		if err := rows.Scan(&f.Key, &raw); err != nil {
			return store.Snapshot{}, false, err
		}
		if err := json.Unmarshal([]byte(raw), &f.Value); err != nil {
			return store.Snapshot{}, false, err
		}
		snap.Facts = append(snap.Facts, f)
	}
	if err := rows.Err(); err != nil {
		return store.Snapshot{}, false, err
	}

	ruleRows, err := s.db.QueryContext(ctx,
		`SELECT head, body FROM rules WHERE reality = ? ORDER BY pos`, name)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	defer ruleRows.Close()
	for ruleRows.Next() {
		var r store.Rule
		var body string
		if err := ruleRows.Scan(&r.Head, &body); err != nil {
			return store.Snapshot{}, false, err
		}
		if err := json.Unmarshal([]byte(body), &r.Body); err != nil {
			return store.Snapshot{}, false, err
		}
		snap.Rules = append(snap.Rules, r)
	}
	if err := ruleRows.Err(); err != nil {
		return store.Snapshot{}, false, err
	}

	nodeRows, err := s.db.QueryContext(ctx,
		`SELECT name, state, domain FROM nodes WHERE reality = ?`, name)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	defer nodeRows.Close()
	for nodeRows.Next() {
		var n store.Node
		var state string
		var domain sql.NullString
		if err := nodeRows.Scan(&n.Name, &state, &domain); err != nil {
			return store.Snapshot{}, false, err
		}
		if err := json.Unmarshal([]byte(state), &n.State); err != nil {
			return store.Snapshot{}, false, err
		}
		if domain.Valid {
			if err := json.Unmarshal([]byte(domain.String), &n.Domain); err != nil {
				return store.Snapshot{}, false, err
			}
		}
		snap.Nodes = append(snap.Nodes, n)
	}
	if err := nodeRows.Err(); err != nil {
		return store.Snapshot{}, false, err
	}

	edgeRows, err := s.db.QueryContext(ctx,
		`SELECT cause, effect, mechanism FROM edges WHERE reality = ?`, name)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	defer edgeRows.Close()
	for edgeRows.Next() {
		var e store.Edge
		if err := edgeRows.Scan(&e.Cause, &e.Effect, &e.Mechanism); err != nil {
			return store.Snapshot{}, false, err
		}
		snap.Edges = append(snap.Edges, e)
	}
	if err := edgeRows.Err(); err != nil {
		return store.Snapshot{}, false, err
	}

	ivRows, err := s.db.QueryContext(ctx,
		`SELECT node, value FROM interventions WHERE reality = ?`, name)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	defer ivRows.Close()
	for ivRows.Next() {
		var iv store.Intervention
		var raw string
		if err := ivRows.Scan(&iv.Node, &raw); err != nil {
			return store.Snapshot{}, false, err
		}
		if err := json.Unmarshal([]byte(raw), &iv.Value); err != nil {
			return store.Snapshot{}, false, err
		}
		snap.Interventions = append(snap.Interventions, iv)
	}
	if err := ivRows.Err(); err != nil {
		return store.Snapshot{}, false, err
	}

	return snap, true, nil
}

// ListRealities returns all stored reality names.
func (s *sqliteStore) ListRealities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM realities ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// DeleteReality removes one reality and its dependent rows.
func (s *sqliteStore) DeleteReality(ctx context.Context, name string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM realities WHERE name = ?`, name)
	return err
}
