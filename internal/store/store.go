package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/valpere/kalimax-triage/internal"
)

// timeLayout matches SQLite's CURRENT_TIMESTAMP so that values written by
// the engine and by upstream tools sort and group the same way.
const timeLayout = "2006-01-02 15:04:05"

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %v", internal.ErrStoreUnavailable, err)
	}
	// single writer; readers go through the same connection
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to migrate: %v", internal.ErrStoreUnavailable, err)
	}

	return s, nil
}

func dsn(dbPath string) string {
	pragmas := "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	if strings.Contains(dbPath, "?") {
		return dbPath + "&" + pragmas
	}
	return dbPath + "?" + pragmas
}

// migrate creates the corpus tables when they are missing. Existing tables
// are never altered: the schema belongs to the ingestion tooling.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS corpus (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		src_text TEXT,
		tgt_text_localized TEXT,
		domain TEXT,
		confidence REAL,
		curation_status TEXT NOT NULL DEFAULT 'draft',
		medical_risk_flags TEXT,
		requires_immediate_review INTEGER NOT NULL DEFAULT 0,
		priority_level INTEGER,
		curator_notes TEXT,
		curation_date TEXT,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS glossary (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		creole_canonical TEXT,
		english_equivalents TEXT,
		domain TEXT,
		confidence REAL,
		curation_status TEXT NOT NULL DEFAULT 'draft',
		medical_risk_flags TEXT,
		requires_immediate_review INTEGER NOT NULL DEFAULT 0,
		priority_level INTEGER,
		curator_notes TEXT,
		curation_date TEXT,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- expressions carry dialect metadata used by regional batching
	CREATE TABLE IF NOT EXISTS expressions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		creole TEXT,
		idiomatic_en TEXT,
		localized_ht TEXT,
		register TEXT,
		region TEXT,
		cultural_note TEXT,
		confidence REAL,
		curation_status TEXT NOT NULL DEFAULT 'draft',
		medical_risk_flags TEXT,
		requires_immediate_review INTEGER NOT NULL DEFAULT 0,
		priority_level INTEGER,
		curator_notes TEXT,
		curation_date TEXT,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP,
		updated_at TEXT DEFAULT CURRENT_TIMESTAMP
	);

	-- high_risk lists curated Creole terms whose mistranslation is dangerous
	CREATE TABLE IF NOT EXISTS high_risk (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		creole_term TEXT NOT NULL,
		english_term TEXT,
		risk_level TEXT NOT NULL,
		category TEXT,
		created_at TEXT DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(creole_term)
	);

	CREATE INDEX IF NOT EXISTS idx_corpus_status ON corpus(curation_status);
	CREATE INDEX IF NOT EXISTS idx_glossary_status ON glossary(curation_status);
	CREATE INDEX IF NOT EXISTS idx_expressions_status ON expressions(curation_status);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", internal.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn within a transaction.
func (s *Store) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// columns describes where a table keeps its text fields.
type columns struct {
	source     string
	targets    []string
	domain     string
	expression bool
}

var tableColumns = map[internal.Table]columns{
	internal.TableCorpus:      {source: "src_text", targets: []string{"tgt_text_localized"}, domain: "domain"},
	internal.TableGlossary:    {source: "creole_canonical", targets: []string{"english_equivalents"}, domain: "domain"},
	internal.TableExpressions: {source: "creole", targets: []string{"idiomatic_en", "localized_ht"}, domain: "register", expression: true},
}

func columnsFor(table internal.Table) (columns, error) {
	c, ok := tableColumns[table]
	if !ok {
		return columns{}, fmt.Errorf("%w: unknown table %q", internal.ErrInvalidArgument, table)
	}
	return c, nil
}

func (c columns) selectList() string {
	cols := []string{"id", c.source}
	cols = append(cols, c.targets...)
	cols = append(cols, c.domain, "confidence", "curation_status", "curator_notes", "updated_at")
	if c.expression {
		cols = append(cols, "region", "cultural_note")
	}
	return strings.Join(cols, ", ")
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (c columns) scan(table internal.Table, row rowScanner) (internal.TranslationEntry, error) {
	var (
		id                           int64
		source, domain, status       sql.NullString
		notes, updated, region, note sql.NullString
		confidence                   sql.NullFloat64
	)
	targets := make([]sql.NullString, len(c.targets))

	dest := []any{&id, &source}
	for i := range targets {
		dest = append(dest, &targets[i])
	}
	dest = append(dest, &domain, &confidence, &status, &notes, &updated)
	if c.expression {
		dest = append(dest, &region, &note)
	}
	if err := row.Scan(dest...); err != nil {
		return internal.TranslationEntry{}, err
	}

	e := internal.TranslationEntry{
		ID:           id,
		Table:        table,
		SourceText:   source.String,
		Domain:       "general",
		Confidence:   0.5,
		Status:       internal.CurationStatus(status.String),
		Region:       region.String,
		CulturalNote: note.String,
		CuratorNotes: notes.String,
		UpdatedAt:    updated.String,
	}
	for _, t := range targets {
		e.TargetTexts = append(e.TargetTexts, t.String)
	}
	if domain.Valid && domain.String != "" {
		e.Domain = domain.String
	}
	if confidence.Valid {
		e.Confidence = confidence.Float64
	}
	if c.expression {
		e.Register = domain.String
	}
	return e, nil
}

// DraftFilter narrows ListDrafts. Empty fields match everything.
type DraftFilter struct {
	Domain string
}

// ListDrafts returns the draft rows of table ordered by id. NULL domain and
// confidence are reported as "general" and 0.5.
func (s *Store) ListDrafts(ctx context.Context, table internal.Table, filter DraftFilter) ([]internal.TranslationEntry, error) {
	c, err := columnsFor(table)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE curation_status = ?`, c.selectList(), table)
	args := []any{string(internal.StatusDraft)}
	if filter.Domain != "" {
		query += fmt.Sprintf(` AND COALESCE(%s, 'general') = ?`, c.domain)
		args = append(args, filter.Domain)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: list drafts of %s: %v", internal.ErrStoreUnavailable, table, err)
	}
	defer rows.Close()

	var entries []internal.TranslationEntry
	for rows.Next() {
		e, err := c.scan(table, rows)
		if err != nil {
			return nil, err
		}
		e.Status = internal.StatusDraft
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Entry loads a single row including its stored risk flags.
func (s *Store) Entry(ctx context.Context, table internal.Table, id int64) (internal.TranslationEntry, error) {
	c, err := columnsFor(table)
	if err != nil {
		return internal.TranslationEntry{}, err
	}

	query := fmt.Sprintf(`SELECT %s, medical_risk_flags, requires_immediate_review, priority_level FROM %s WHERE id = ?`,
		c.selectList(), table)

	var (
		flags    sql.NullString
		review   bool
		priority sql.NullInt64
	)
	row := s.db.QueryRowContext(ctx, query, id)
	e, err := c.scan(table, scanFunc(func(dest ...any) error {
		return row.Scan(append(dest, &flags, &review, &priority)...)
	}))
	if errors.Is(err, sql.ErrNoRows) {
		return internal.TranslationEntry{}, fmt.Errorf("%w: %s/%d", internal.ErrNotFound, table, id)
	}
	if err != nil {
		return internal.TranslationEntry{}, err
	}

	e.NeedsReview = review
	if priority.Valid {
		e.Priority = internal.PriorityLevel(priority.Int64)
	}
	if flags.Valid && flags.String != "" {
		decoded, err := DecodeFlags(flags.String)
		if err != nil {
			return e, fmt.Errorf("%s/%d: %w", table, id, err)
		}
		e.RiskFlags = decoded
	}
	return e, nil
}

type scanFunc func(dest ...any) error

func (f scanFunc) Scan(dest ...any) error { return f(dest...) }

// Classification is the engine-owned part of a row written by a sweep.
// A nil Priority stores NULL; empty Flags clear the stored flags.
type Classification struct {
	ID          int64
	Flags       []internal.RiskFlag
	NeedsReview bool
	Priority    *internal.PriorityLevel
}

// SaveClassifications replaces the risk flags, review marker and priority
// of the given draft rows in a single transaction.
func (s *Store) SaveClassifications(ctx context.Context, table internal.Table, items []Classification) error {
	if _, err := columnsFor(table); err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	query := fmt.Sprintf(`UPDATE %s SET medical_risk_flags = ?, requires_immediate_review = ?, priority_level = ? WHERE id = ? AND curation_status = ?`, table)

	return s.WithTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, it := range items {
			var flags, priority any
			if len(it.Flags) > 0 {
				encoded, err := EncodeFlags(it.Flags)
				if err != nil {
					return fmt.Errorf("encode flags for %s/%d: %w", table, it.ID, err)
				}
				flags = encoded
			}
			if it.Priority != nil {
				priority = int(*it.Priority)
			}
			if _, err := stmt.ExecContext(ctx, flags, it.NeedsReview, priority, it.ID, string(internal.StatusDraft)); err != nil {
				return fmt.Errorf("update %s/%d: %w", table, it.ID, err)
			}
		}
		return nil
	})
}

// StatusUpdate is a curator decision on one row.
type StatusUpdate struct {
	Status internal.CurationStatus
	Notes  string
	At     time.Time
}

// UpdateStatus writes a curator decision. Unknown statuses are rejected
// before the database is touched.
func (s *Store) UpdateStatus(ctx context.Context, table internal.Table, id int64, u StatusUpdate) error {
	if _, err := columnsFor(table); err != nil {
		return err
	}
	if !u.Status.Valid() {
		return fmt.Errorf("%w: unknown curation status %q", internal.ErrInvalidArgument, u.Status)
	}
	at := u.At
	if at.IsZero() {
		at = time.Now()
	}
	stamp := at.UTC().Format(timeLayout)

	var affected int64
	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET curation_status = ?, curator_notes = ?, curation_date = ?, updated_at = ? WHERE id = ?`, table),
			string(u.Status), u.Notes, stamp, stamp, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("update status of %s/%d: %w", table, id, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%d", internal.ErrNotFound, table, id)
	}
	return nil
}

// FlaggedRow is a row with stored risk flags, still JSON encoded so that
// callers decide how to treat malformed values.
type FlaggedRow struct {
	Table       internal.Table
	ID          int64
	SourceText  string
	Status      string
	RawFlags    string
	Priority    internal.PriorityLevel
	NeedsReview bool
}

// ListFlagged returns every row of table with stored risk flags ordered by
// priority level then id. Rows without a priority sort as Medium.
func (s *Store) ListFlagged(ctx context.Context, table internal.Table) ([]FlaggedRow, error) {
	c, err := columnsFor(table)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, COALESCE(%s, ''), COALESCE(curation_status, ''), medical_risk_flags,
			COALESCE(priority_level, 3), requires_immediate_review
		FROM %s
		WHERE medical_risk_flags IS NOT NULL AND medical_risk_flags != ''
		ORDER BY COALESCE(priority_level, 3) ASC, id ASC`, c.source, table))
	if err != nil {
		return nil, fmt.Errorf("%w: list flagged %s: %v", internal.ErrStoreUnavailable, table, err)
	}
	defer rows.Close()

	var out []FlaggedRow
	for rows.Next() {
		r := FlaggedRow{Table: table}
		var priority int64
		if err := rows.Scan(&r.ID, &r.SourceText, &r.Status, &r.RawFlags, &priority, &r.NeedsReview); err != nil {
			return nil, err
		}
		r.Priority = internal.PriorityLevel(priority)
		out = append(out, r)
	}
	return out, rows.Err()
}

// AddEntry inserts a row. Ingestion normally happens upstream; the engine
// uses this for seeding and tests.
func (s *Store) AddEntry(ctx context.Context, e internal.TranslationEntry) (int64, error) {
	c, err := columnsFor(e.Table)
	if err != nil {
		return 0, err
	}
	status := e.Status
	if status == "" {
		status = internal.StatusDraft
	}
	if !status.Valid() {
		return 0, fmt.Errorf("%w: unknown curation status %q", internal.ErrInvalidArgument, status)
	}

	cols := []string{c.source}
	args := []any{nullable(e.SourceText)}
	for i, t := range c.targets {
		cols = append(cols, t)
		args = append(args, nullable(e.Target(i)))
	}
	domain := e.Domain
	if c.expression {
		domain = e.Register
	}
	cols = append(cols, c.domain, "confidence", "curation_status")
	args = append(args, nullable(domain), e.Confidence, string(status))
	if c.expression {
		cols = append(cols, "region", "cultural_note")
		args = append(args, nullable(e.Region), nullable(e.CulturalNote))
	}
	if e.UpdatedAt != "" {
		cols = append(cols, "updated_at")
		args = append(args, e.UpdatedAt)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	res, err := s.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, e.Table, strings.Join(cols, ", "), placeholders),
		args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// HighRiskTerm is a row from the high_risk table.
type HighRiskTerm struct {
	CreoleTerm  string
	EnglishTerm string
	RiskLevel   internal.RiskLevel
	Category    string
}

// AddHighRiskTerm inserts or replaces a curated high-risk term.
func (s *Store) AddHighRiskTerm(ctx context.Context, t HighRiskTerm) error {
	if !t.RiskLevel.Valid() {
		return fmt.Errorf("%w: unknown risk level %q", internal.ErrInvalidArgument, t.RiskLevel)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO high_risk (creole_term, english_term, risk_level, category) VALUES (?, ?, ?, ?)`,
		t.CreoleTerm, nullable(t.EnglishTerm), string(t.RiskLevel), nullable(t.Category))
	return err
}

// HighRiskTerms returns the curated terms of the given level.
func (s *Store) HighRiskTerms(ctx context.Context, level internal.RiskLevel) ([]HighRiskTerm, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT creole_term, COALESCE(english_term, ''), risk_level, COALESCE(category, '')
		 FROM high_risk WHERE risk_level = ? ORDER BY id`, string(level))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var terms []HighRiskTerm
	for rows.Next() {
		var t HighRiskTerm
		var lvl string
		if err := rows.Scan(&t.CreoleTerm, &t.EnglishTerm, &lvl, &t.Category); err != nil {
			return nil, err
		}
		t.RiskLevel = internal.RiskLevel(lvl)
		terms = append(terms, t)
	}
	return terms, rows.Err()
}
