package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunReport records one pipeline run.
type RunReport struct {
	ID         int64     `json:"id"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Collected  int       `json:"collected"`
	Enriched   int       `json:"enriched"`
	Analyzed   int       `json:"analyzed"`
	Failed     int       `json:"failed"`
	Error      *string   `json:"error,omitempty"`
}

// InsertRunReport stores a run report and returns its id.
func (db *DB) InsertRunReport(r RunReport) (int64, error) {
	res, err := db.conn.Exec(`
INSERT INTO run_reports (started_at, finished_at, collected, enriched, analyzed, failed, error)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.StartedAt.UTC().Format(time.RFC3339), r.FinishedAt.UTC().Format(time.RFC3339),
		r.Collected, r.Enriched, r.Analyzed, r.Failed, r.Error)
	if err != nil {
		return 0, fmt.Errorf("inserting run report: %w", err)
	}
	return res.LastInsertId()
}

// RecentRunReports returns up to limit reports, newest first.
func (db *DB) RecentRunReports(limit int) ([]RunReport, error) {
	rows, err := db.conn.Query(`
SELECT id, started_at, finished_at, collected, enriched, analyzed, failed, error
FROM run_reports ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying run reports: %w", err)
	}
	defer rows.Close()

	var out []RunReport
	for rows.Next() {
		r, err := scanRunReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// LatestRunReport returns the most recent report, or nil when none exist.
func (db *DB) LatestRunReport() (*RunReport, error) {
	row := db.conn.QueryRow(`
SELECT id, started_at, finished_at, collected, enriched, analyzed, failed, error
FROM run_reports ORDER BY started_at DESC, id DESC LIMIT 1`)
	r, err := scanRunReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRunReport(s scanner) (RunReport, error) {
	var (
		r                 RunReport
		started, finished string
		errText           sql.NullString
	)
	if err := s.Scan(&r.ID, &started, &finished, &r.Collected, &r.Enriched, &r.Analyzed, &r.Failed, &errText); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r, err
		}
		return r, fmt.Errorf("scanning run report: %w", err)
	}
	r.StartedAt, _ = time.Parse(time.RFC3339, started)
	r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
	if errText.Valid {
		r.Error = &errText.String
	}
	return r, nil
}
