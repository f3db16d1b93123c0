// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists canonical paper records in SQLite and serves the
// orchestrator's internal retrieval capabilities: hybrid (lexical+vector)
// search, keyword fallback search, and idempotent ingestion.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-orchestrator/pkg/types"
)

const dbFileDefault = "papers/index/papers.db"

// Store manages the paper SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// New opens or creates the paper database at cfg.Path, creating the schema
// if it does not exist.
func New(cfg types.StoreConfig) (*Store, error) {
	path := cfg.Path
	if path == "" {
		path = dbFileDefault
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS papers (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			abstract TEXT,
			authors TEXT,
			year INTEGER,
			venue TEXT,
			doi TEXT,
			url TEXT,
			pdf_url TEXT,
			citation_count INTEGER,
			source TEXT,
			region TEXT,
			ingested_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_year ON papers(year)`,
		`CREATE INDEX IF NOT EXISTS idx_papers_doi ON papers(doi)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			paper_id TEXT PRIMARY KEY REFERENCES papers(id),
			vector TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='papers_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE papers_fts USING fts5(title, abstract, content=papers, content_rowid=rowid, tokenize='porter unicode61')`,
			`CREATE TRIGGER papers_ai AFTER INSERT ON papers BEGIN
				INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER papers_ad AFTER DELETE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
			`CREATE TRIGGER papers_au AFTER UPDATE ON papers BEGIN
				INSERT INTO papers_fts(papers_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
				INSERT INTO papers_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestPaper upserts one paper keyed by its canonical identity. The upsert
// is idempotent: re-ingesting the same work updates metadata in place and
// reports IsNewPaper=false.
func (s *Store) IngestPaper(ctx context.Context, paper types.AcademicPaper) (types.IngestResult, error) {
	id := paper.CanonicalID()
	if paper.Title == "" {
		return types.IngestResult{}, fmt.Errorf("refusing to ingest untitled paper %s", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var existing int
	err = tx.QueryRowContext(ctx, `SELECT count(*) FROM papers WHERE id = ?`, id).Scan(&existing)
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("checking existing paper: %w", err)
	}

	authorsJSON, _ := json.Marshal(paper.Authors)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO papers (id, title, abstract, authors, year, venue, doi, url, pdf_url, citation_count, source, region, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, authors=excluded.authors,
			year=excluded.year, venue=excluded.venue, doi=excluded.doi,
			url=excluded.url, pdf_url=excluded.pdf_url,
			citation_count=excluded.citation_count, source=excluded.source,
			region=excluded.region`,
		id, paper.Title, paper.Abstract, string(authorsJSON), paper.Year,
		paper.Venue, paper.DOI, paper.URL, paper.PDFURL,
		paper.CitationCount, paper.Source, paper.Region,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("upserting paper: %w", err)
	}

	vector := embed(paper.Title + " " + paper.Abstract)
	vectorJSON, _ := json.Marshal(vector)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO embeddings (paper_id, vector) VALUES (?, ?)
		 ON CONFLICT(paper_id) DO UPDATE SET vector=excluded.vector`,
		id, string(vectorJSON),
	)
	if err != nil {
		return types.IngestResult{}, fmt.Errorf("upserting embedding: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return types.IngestResult{}, fmt.Errorf("committing ingest: %w", err)
	}

	return types.IngestResult{PaperID: id, IsNewPaper: existing == 0}, nil
}

// Count returns the number of stored papers.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM papers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting papers: %w", err)
	}
	return n, nil
}

// ExportYAML writes all stored papers to w as a YAML document, ordered by
// ingestion time then id for a stable diffable output.
func (s *Store) ExportYAML(ctx context.Context, w io.Writer) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, abstract, authors, year, venue, doi, url, pdf_url, citation_count, source, region
		 FROM papers ORDER BY ingested_at, id`)
	if err != nil {
		return fmt.Errorf("querying papers: %w", err)
	}
	defer rows.Close()

	papers, err := scanPapers(rows)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(papers); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// scanPapers reads rows produced by the standard paper column list.
func scanPapers(rows *sql.Rows) ([]types.Paper, error) {
	var papers []types.Paper
	for rows.Next() {
		var (
			p           types.Paper
			authorsJSON sql.NullString
			abstract    sql.NullString
			venue       sql.NullString
			doi         sql.NullString
			url         sql.NullString
			pdfURL      sql.NullString
			source      sql.NullString
			region      sql.NullString
			year        sql.NullInt64
			citations   sql.NullInt64
		)
		if err := rows.Scan(&p.ID, &p.Title, &abstract, &authorsJSON, &year, &venue,
			&doi, &url, &pdfURL, &citations, &source, &region); err != nil {
			return nil, fmt.Errorf("scanning paper row: %w", err)
		}
		p.Abstract = abstract.String
		p.Venue = venue.String
		p.DOI = doi.String
		p.URL = url.String
		p.PDFURL = pdfURL.String
		p.Source = source.String
		p.Region = region.String
		p.Year = int(year.Int64)
		p.CitationCount = int(citations.Int64)
		if authorsJSON.Valid && authorsJSON.String != "" {
			if err := json.Unmarshal([]byte(authorsJSON.String), &p.Authors); err != nil {
				return nil, fmt.Errorf("decoding authors for %s: %w", p.ID, err)
			}
		}
		papers = append(papers, p)
	}
	return papers, rows.Err()
}
