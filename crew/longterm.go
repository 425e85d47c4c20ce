package crew

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
)

// Memory is one remembered task result.
type Memory struct {
	Task      string            `json:"task"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp time.Time         `json:"timestamp"`
}

// LongTermMemory keeps task results across runs in SQLite.
type LongTermMemory struct {
	DB *sql.DB
}

// OpenLongTermMemory opens or creates the database at path.
func OpenLongTermMemory(path string) (*LongTermMemory, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS long_term_memories (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		task_description TEXT NOT NULL,
		metadata TEXT NOT NULL,
		datetime TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create long term memory table: %w", err)
	}
	return &LongTermMemory{DB: db}, nil
}

func (m *LongTermMemory) Close() error { return m.DB.Close() }

// Save records a result for task.
func (m *LongTermMemory) Save(ctx context.Context, task string, meta map[string]string, at time.Time) error {
	b, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	_, err = m.DB.ExecContext(ctx,
		"INSERT INTO long_term_memories (task_description, metadata, datetime) VALUES (?, ?, ?)",
		task, string(b), at.UTC().Format(time.RFC3339Nano))
	return err
}

// Load returns up to limit results for task, newest first.
func (m *LongTermMemory) Load(ctx context.Context, task string, limit int) ([]Memory, error) {
	if limit <= 0 {
		limit = 3
	}
	rows, err := m.DB.QueryContext(ctx,
		"SELECT task_description, metadata, datetime FROM long_term_memories WHERE task_description = ? ORDER BY id DESC LIMIT ?",
		task, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Memory
	for rows.Next() {
		var mem Memory
		var meta, ts string
		if err := rows.Scan(&mem.Task, &meta, &ts); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &mem.Metadata); err != nil {
			return nil, fmt.Errorf("decode memory metadata: %w", err)
		}
		mem.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, mem)
	}
	return out, rows.Err()
}
