// Package storage provides persistent storage for checked mails.
// Each table is represented by a struct working on top of engine.SQL, sqlite and postgres are supported.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/umputun/mail-spam/app/storage/engine"
	"github.com/umputun/mail-spam/lib/spamcheck"
)

// History is a storage of checked mails with their verdicts
type History struct {
	*engine.SQL
	engine.RWLocker
	maxEntries int
}

// HistoryEntry is a single check of a mail
type HistoryEntry struct {
	ID         int64                `db:"id" json:"id"`
	Timestamp  time.Time            `db:"timestamp" json:"ts"`
	Source     string               `db:"source" json:"source"` // where the mail came from, i.e. web, api, eml, imap
	Title      string               `db:"title" json:"title"`
	Content    string               `db:"content" json:"content"`
	URL        string               `db:"url" json:"url"`
	Filter     string               `db:"filter" json:"filter"`
	Language   string               `db:"language" json:"language"`
	Spam       bool                 `db:"spam" json:"spam"`
	Pipeline   string               `db:"pipeline" json:"pipeline"`
	ModelsJSON string               `db:"models" json:"-"`
	ChecksJSON string               `db:"checks" json:"-"`
	Models     []string             `db:"-" json:"models"`
	Checks     []spamcheck.Response `db:"-" json:"checks"`
}

// HistoryStats is a summary of stored checks
type HistoryStats struct {
	Total      int                    `json:"total"`
	Spam       int                    `json:"spam"`
	Ham        int                    `json:"ham"`
	ByPipeline map[string]PipelineHit `json:"by_pipeline"`
}

// PipelineHit counts checks made by a pipeline
type PipelineHit struct {
	Spam int `json:"spam"`
	Ham  int `json:"ham"`
}

// history queries
const (
	CmdCreateHistoryTable engine.DBCmd = iota + 100
	CmdCreateHistoryIndexes
	CmdAddHistory
	CmdReadHistory
	CmdStatsHistory
	CmdCleanupHistory
)

var historyQueries = engine.NewQueryMap().
	Add(CmdCreateHistoryTable, engine.Query{
		Sqlite: `CREATE TABLE IF NOT EXISTS mail_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			gid TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			source TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			filter TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			spam BOOLEAN NOT NULL DEFAULT 0,
			pipeline TEXT NOT NULL DEFAULT '',
			models TEXT NOT NULL DEFAULT '[]',
			checks TEXT NOT NULL DEFAULT '[]'
		)`,
		Postgres: `CREATE TABLE IF NOT EXISTS mail_history (
			id SERIAL PRIMARY KEY,
			gid TEXT NOT NULL DEFAULT '',
			timestamp TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			source TEXT NOT NULL DEFAULT '',
			title TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			filter TEXT NOT NULL DEFAULT '',
			language TEXT NOT NULL DEFAULT '',
			spam BOOLEAN NOT NULL DEFAULT FALSE,
			pipeline TEXT NOT NULL DEFAULT '',
			models TEXT NOT NULL DEFAULT '[]',
			checks TEXT NOT NULL DEFAULT '[]'
		)`,
	}).
	AddSame(CmdCreateHistoryIndexes, `
		CREATE INDEX IF NOT EXISTS idx_mail_history_gid_id ON mail_history(gid, id);
		CREATE INDEX IF NOT EXISTS idx_mail_history_gid_spam ON mail_history(gid, spam)`).
	AddSame(CmdAddHistory, `INSERT INTO mail_history
		(gid, timestamp, source, title, content, url, filter, language, spam, pipeline, models, checks)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`).
	AddSame(CmdReadHistory, `SELECT id, timestamp, source, title, content, url, filter, language, spam, pipeline,
		models, checks FROM mail_history WHERE gid = ? ORDER BY id DESC LIMIT ?`).
	AddSame(CmdStatsHistory, `SELECT pipeline, spam, COUNT(*) AS count FROM mail_history WHERE gid = ?
		GROUP BY pipeline, spam`).
	AddSame(CmdCleanupHistory, `DELETE FROM mail_history WHERE gid = ? AND id NOT IN
		(SELECT id FROM mail_history WHERE gid = ? ORDER BY id DESC LIMIT ?)`)

// NewHistory creates history storage, keeps up to maxEntries most recent entries, unlimited if 0
func NewHistory(ctx context.Context, db *engine.SQL, maxEntries int) (*History, error) {
	if db == nil {
		return nil, fmt.Errorf("no db provided")
	}
	cfg := engine.TableConfig{
		Name:          "mail_history",
		CreateTable:   CmdCreateHistoryTable,
		CreateIndexes: CmdCreateHistoryIndexes,
		QueriesMap:    historyQueries,
	}
	if err := engine.InitTable(ctx, db, cfg); err != nil {
		return nil, fmt.Errorf("failed to init history table: %w", err)
	}
	return &History{SQL: db, RWLocker: db.MakeLock(), maxEntries: maxEntries}, nil
}

// Write adds a check to the history and drops entries beyond the limit
func (h *History) Write(ctx context.Context, entry HistoryEntry) error {
	models, err := json.Marshal(nonNil(entry.Models))
	if err != nil {
		return fmt.Errorf("failed to marshal models: %w", err)
	}
	checks, err := json.Marshal(nonNil(entry.Checks))
	if err != nil {
		return fmt.Errorf("failed to marshal checks: %w", err)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	entry.Timestamp = entry.Timestamp.UTC() // postgres timestamp column keeps no zone

	h.Lock()
	defer h.Unlock()

	query, err := historyQueries.Pick(h.Type(), CmdAddHistory)
	if err != nil {
		return fmt.Errorf("failed to get insert query: %w", err)
	}
	_, err = h.ExecContext(ctx, h.Adopt(query), h.GID(), entry.Timestamp, entry.Source, entry.Title, entry.Content,
		entry.URL, entry.Filter, entry.Language, entry.Spam, entry.Pipeline, string(models), string(checks))
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}

	if h.maxEntries > 0 {
		if query, err = historyQueries.Pick(h.Type(), CmdCleanupHistory); err != nil {
			return fmt.Errorf("failed to get cleanup query: %w", err)
		}
		if _, err = h.ExecContext(ctx, h.Adopt(query), h.GID(), h.GID(), h.maxEntries); err != nil {
			return fmt.Errorf("failed to cleanup history: %w", err)
		}
	}
	log.Printf("[DEBUG] history entry added, source:%s, spam:%v, pipeline:%s", entry.Source, entry.Spam, entry.Pipeline)
	return nil
}

// Read returns up to limit most recent entries, newest first
func (h *History) Read(ctx context.Context, limit int) ([]HistoryEntry, error) {
	h.RLock()
	defer h.RUnlock()

	query, err := historyQueries.Pick(h.Type(), CmdReadHistory)
	if err != nil {
		return nil, fmt.Errorf("failed to get read query: %w", err)
	}
	var entries []HistoryEntry
	if err = h.SelectContext(ctx, &entries, h.Adopt(query), h.GID(), limit); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	for i := range entries {
		if err = json.Unmarshal([]byte(entries[i].ModelsJSON), &entries[i].Models); err != nil {
			return nil, fmt.Errorf("failed to unmarshal models for entry %d: %w", entries[i].ID, err)
		}
		if err = json.Unmarshal([]byte(entries[i].ChecksJSON), &entries[i].Checks); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checks for entry %d: %w", entries[i].ID, err)
		}
		entries[i].Timestamp = entries[i].Timestamp.Local()
	}
	return entries, nil
}

// Stats returns counts of spam and ham checks, total and by pipeline
func (h *History) Stats(ctx context.Context) (HistoryStats, error) {
	h.RLock()
	defer h.RUnlock()

	query, err := historyQueries.Pick(h.Type(), CmdStatsHistory)
	if err != nil {
		return HistoryStats{}, fmt.Errorf("failed to get stats query: %w", err)
	}
	var rows []struct {
		Pipeline string `db:"pipeline"`
		Spam     bool   `db:"spam"`
		Count    int    `db:"count"`
	}
	if err = h.SelectContext(ctx, &rows, h.Adopt(query), h.GID()); err != nil {
		return HistoryStats{}, fmt.Errorf("failed to get history stats: %w", err)
	}

	res := HistoryStats{ByPipeline: map[string]PipelineHit{}}
	for _, r := range rows {
		hit := res.ByPipeline[r.Pipeline]
		if r.Spam {
			res.Spam += r.Count
			hit.Spam += r.Count
		} else {
			res.Ham += r.Count
			hit.Ham += r.Count
		}
		res.ByPipeline[r.Pipeline] = hit
	}
	res.Total = res.Spam + res.Ham
	return res, nil
}

// nonNil makes empty slice from nil one, so it is stored as [] and not null
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
