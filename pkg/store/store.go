// Package store persists feeding records, sub requests and spam audit
// rows in a local SQLite database. All writes come from the handlers;
// the reminder cron and the feeding-status handler read back.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Feeding is one station fed on one day. A later report for the same
// station and day replaces the earlier one.
type Feeding struct {
	ID           string
	Station      string
	FedOn        string // ISO date, community timezone
	ReporterID   string
	ReporterName string
	Channel      string
	ChatID       string
	ImageURL     string
	CreatedAt    time.Time
}

// SubRequest is a plea for someone to cover a feeding shift.
type SubRequest struct {
	ID            string
	Station       string // empty when the request named no station
	Dates         []string
	RequesterID   string
	RequesterName string
	Channel       string
	ChatID        string
	MessageID     string
	AcceptedBy    string
	AcceptedAt    time.Time
	CreatedAt     time.Time
}

func (s SubRequest) Open() bool { return s.AcceptedBy == "" }

// Store wraps the database handle. Safe for concurrent use; database/sql
// serializes access to the single sqlite file.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS feedings (
			id TEXT PRIMARY KEY,
			station TEXT NOT NULL,
			fed_on TEXT NOT NULL,
			reporter_id TEXT NOT NULL,
			reporter_name TEXT NOT NULL,
			channel TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			UNIQUE(station, fed_on)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_feedings_fed_on ON feedings(fed_on)`,
		`CREATE TABLE IF NOT EXISTS sub_requests (
			id TEXT PRIMARY KEY,
			station TEXT NOT NULL DEFAULT '',
			dates TEXT NOT NULL DEFAULT '[]',
			requester_id TEXT NOT NULL,
			requester_name TEXT NOT NULL,
			channel TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			message_id TEXT NOT NULL DEFAULT '',
			accepted_by TEXT NOT NULL DEFAULT '',
			accepted_at INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subs_chat ON sub_requests(channel, chat_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS spam_verdicts (
			id TEXT PRIMARY KEY,
			sender_id TEXT NOT NULL,
			channel TEXT NOT NULL,
			chat_id TEXT NOT NULL,
			reason TEXT NOT NULL,
			scores TEXT NOT NULL DEFAULT '{}',
			created_at INTEGER NOT NULL
		)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordFeeding upserts one station/day record and returns it with its
// assigned ID.
func (s *Store) RecordFeeding(f Feeding) (Feeding, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO feedings (id, station, fed_on, reporter_id, reporter_name, channel, chat_id, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(station, fed_on) DO UPDATE SET
			reporter_id = excluded.reporter_id,
			reporter_name = excluded.reporter_name,
			channel = excluded.channel,
			chat_id = excluded.chat_id,
			image_url = excluded.image_url,
			created_at = excluded.created_at
	`, f.ID, f.Station, f.FedOn, f.ReporterID, f.ReporterName, f.Channel, f.ChatID, f.ImageURL, f.CreatedAt.Unix())
	if err != nil {
		return Feeding{}, fmt.Errorf("failed to record feeding: %w", err)
	}
	return f, nil
}

// FeedingsOn returns every feeding recorded for one ISO date.
func (s *Store) FeedingsOn(date string) ([]Feeding, error) {
	rows, err := s.db.Query(`
		SELECT id, station, fed_on, reporter_id, reporter_name, channel, chat_id, image_url, created_at
		FROM feedings WHERE fed_on = ? ORDER BY station
	`, date)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedings: %w", err)
	}
	defer rows.Close()

	var out []Feeding
	for rows.Next() {
		var f Feeding
		var createdAt int64
		if err := rows.Scan(&f.ID, &f.Station, &f.FedOn, &f.ReporterID, &f.ReporterName,
			&f.Channel, &f.ChatID, &f.ImageURL, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan feeding: %w", err)
		}
		f.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, f)
	}
	return out, rows.Err()
}

// StationsFedOn returns the set of station names with a record for the
// date.
func (s *Store) StationsFedOn(date string) (map[string]bool, error) {
	feedings, err := s.FeedingsOn(date)
	if err != nil {
		return nil, err
	}
	fed := make(map[string]bool, len(feedings))
	for _, f := range feedings {
		fed[f.Station] = true
	}
	return fed, nil
}

// CreateSubRequest stores a new open request and returns it with its ID.
func (s *Store) CreateSubRequest(r SubRequest) (SubRequest, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	dates, err := json.Marshal(r.Dates)
	if err != nil {
		return SubRequest{}, fmt.Errorf("failed to encode dates: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO sub_requests (id, station, dates, requester_id, requester_name, channel, chat_id, message_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Station, string(dates), r.RequesterID, r.RequesterName, r.Channel, r.ChatID, r.MessageID, r.CreatedAt.Unix())
	if err != nil {
		return SubRequest{}, fmt.Errorf("failed to create sub request: %w", err)
	}
	return r, nil
}

// AcceptLatestOpen marks the most recent open request in the chat as
// accepted and returns it. Reports false when the chat has no open
// request.
func (s *Store) AcceptLatestOpen(channel, chatID, acceptorID string, at time.Time) (SubRequest, bool, error) {
	row := s.db.QueryRow(`
		SELECT id FROM sub_requests
		WHERE channel = ? AND chat_id = ? AND accepted_by = ''
		ORDER BY created_at DESC LIMIT 1
	`, channel, chatID)

	var id string
	if err := row.Scan(&id); err == sql.ErrNoRows {
		return SubRequest{}, false, nil
	} else if err != nil {
		return SubRequest{}, false, fmt.Errorf("failed to find open sub request: %w", err)
	}

	if _, err := s.db.Exec(`
		UPDATE sub_requests SET accepted_by = ?, accepted_at = ? WHERE id = ? AND accepted_by = ''
	`, acceptorID, at.Unix(), id); err != nil {
		return SubRequest{}, false, fmt.Errorf("failed to accept sub request: %w", err)
	}
	req, err := s.subByID(id)
	if err != nil {
		return SubRequest{}, false, err
	}
	return req, true, nil
}

// OpenSubRequests returns every request still waiting for a taker,
// oldest first.
func (s *Store) OpenSubRequests() ([]SubRequest, error) {
	rows, err := s.db.Query(`
		SELECT id, station, dates, requester_id, requester_name, channel, chat_id, message_id, accepted_by, accepted_at, created_at
		FROM sub_requests WHERE accepted_by = '' ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sub requests: %w", err)
	}
	defer rows.Close()

	var out []SubRequest
	for rows.Next() {
		req, err := scanSub(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (s *Store) subByID(id string) (SubRequest, error) {
	row := s.db.QueryRow(`
		SELECT id, station, dates, requester_id, requester_name, channel, chat_id, message_id, accepted_by, accepted_at, created_at
		FROM sub_requests WHERE id = ?
	`, id)
	return scanSub(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSub(row rowScanner) (SubRequest, error) {
	var r SubRequest
	var dates string
	var acceptedAt, createdAt int64
	if err := row.Scan(&r.ID, &r.Station, &dates, &r.RequesterID, &r.RequesterName,
		&r.Channel, &r.ChatID, &r.MessageID, &r.AcceptedBy, &acceptedAt, &createdAt); err != nil {
		return SubRequest{}, fmt.Errorf("failed to scan sub request: %w", err)
	}
	if err := json.Unmarshal([]byte(dates), &r.Dates); err != nil {
		return SubRequest{}, fmt.Errorf("failed to decode dates: %w", err)
	}
	if acceptedAt > 0 {
		r.AcceptedAt = time.Unix(acceptedAt, 0)
	}
	r.CreatedAt = time.Unix(createdAt, 0)
	return r, nil
}

// RecordSpamVerdict appends one audit row for a flagged message.
func (s *Store) RecordSpamVerdict(senderID, channel, chatID, reason string, scores map[string]float64) error {
	enc, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO spam_verdicts (id, sender_id, channel, chat_id, reason, scores, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), senderID, channel, chatID, reason, string(enc), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to record spam verdict: %w", err)
	}
	return nil
}
