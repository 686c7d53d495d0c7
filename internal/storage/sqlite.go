package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"taskmill/internal/definition"
	"taskmill/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

var ErrNotFound = errors.New("definition not found")

// Config configures storage.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means driver default
}

// Store is the sqlite-backed implementation of both
// definition.DefinitionStore and definition.InstanceStore.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

var (
	_ definition.DefinitionStore = (*Store)(nil)
	_ definition.InstanceStore   = (*Store)(nil)
)

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st := &Store{db: db, log: log}
	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- DefinitionStore ----

func (s *Store) Load(ctx context.Context, id string) (*definition.Definition, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner_id, project_id, pattern, template, active, next_run, last_created, created_at, updated_at
		 FROM definitions WHERE id = ?`, id)
	d, err := scanDefinition(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

func (s *Store) Save(ctx context.Context, d *definition.Definition) error {
	pattern, err := json.Marshal(d.Pattern)
	if err != nil {
		return fmt.Errorf("marshal pattern: %w", err)
	}
	template, err := json.Marshal(d.Template)
	if err != nil {
		return fmt.Errorf("marshal template: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO definitions(id, owner_id, project_id, pattern, template, active, next_run, last_created, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?)
		 ON CONFLICT(id) DO UPDATE SET
		   owner_id=excluded.owner_id, project_id=excluded.project_id,
		   pattern=excluded.pattern, template=excluded.template,
		   active=excluded.active, next_run=excluded.next_run,
		   last_created=excluded.last_created, updated_at=excluded.updated_at`,
		d.ID, d.OwnerID, nullStr(d.ProjectID), string(pattern), string(template),
		boolInt(d.Active), nullTime(d.NextRun), nullTime(d.LastCreated),
		fmtTime(d.CreatedAt), fmtTime(d.UpdatedAt),
	)
	return err
}

func (s *Store) FindDue(ctx context.Context, now time.Time) ([]*definition.Definition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner_id, project_id, pattern, template, active, next_run, last_created, created_at, updated_at
		 FROM definitions
		 WHERE active = 1 AND next_run IS NOT NULL AND next_run <= ?
		 ORDER BY next_run`, fmtTime(now))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*definition.Definition
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// ---- InstanceStore ----

// Create inserts a materialized instance. Re-creating the same occurrence
// (same definition and scheduled date) returns the existing reference.
func (s *Store) Create(ctx context.Context, p definition.InstancePayload) (definition.InstanceRef, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}

	ref := uuid.NewString()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO instances(ref, definition_id, scheduled_for, payload, created_at)
		 VALUES(?,?,?,?,?)
		 ON CONFLICT(definition_id, scheduled_for) DO NOTHING`,
		ref, p.DefinitionID, fmtTime(p.ScheduledFor), string(payload), fmtTime(time.Now().UTC()),
	)
	if err != nil {
		return "", err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return definition.InstanceRef(ref), nil
	}

	// Already materialized for this occurrence.
	var existing string
	err = s.db.QueryRowContext(ctx,
		`SELECT ref FROM instances WHERE definition_id = ? AND scheduled_for = ?`,
		p.DefinitionID, fmtTime(p.ScheduledFor)).Scan(&existing)
	if err != nil {
		return "", err
	}
	s.log.Debug("instance already materialized",
		logx.String("definition", p.DefinitionID),
		logx.Time("scheduled_for", p.ScheduledFor))
	return definition.InstanceRef(existing), nil
}

func (s *Store) ByDefinition(ctx context.Context, definitionID string) ([]definition.CreatedInstance, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ref, definition_id, scheduled_for, created_at
		 FROM instances WHERE definition_id = ? ORDER BY scheduled_for`, definitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []definition.CreatedInstance
	for rows.Next() {
		var ci definition.CreatedInstance
		var ref, scheduledFor, createdAt string
		if err := rows.Scan(&ref, &ci.DefinitionID, &scheduledFor, &createdAt); err != nil {
			return nil, err
		}
		ci.Ref = definition.InstanceRef(ref)
		if ci.ScheduledFor, err = parseTime(scheduledFor); err != nil {
			return nil, err
		}
		if ci.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, ci)
	}
	return out, rows.Err()
}

// ---- scanning helpers ----

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDefinition(row rowScanner) (*definition.Definition, error) {
	var d definition.Definition
	var projectID, nextRun, lastCreated sql.NullString
	var pattern, template, createdAt, updatedAt string
	var active int

	err := row.Scan(&d.ID, &d.OwnerID, &projectID, &pattern, &template,
		&active, &nextRun, &lastCreated, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(pattern), &d.Pattern); err != nil {
		return nil, fmt.Errorf("unmarshal pattern: %w", err)
	}
	if err := json.Unmarshal([]byte(template), &d.Template); err != nil {
		return nil, fmt.Errorf("unmarshal template: %w", err)
	}

	d.ProjectID = projectID.String
	d.Active = active != 0
	if nextRun.Valid {
		t, err := parseTime(nextRun.String)
		if err != nil {
			return nil, err
		}
		d.NextRun = &t
	}
	if lastCreated.Valid {
		t, err := parseTime(lastCreated.String)
		if err != nil {
			return nil, err
		}
		d.LastCreated = &t
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// fmtTime stores UTC RFC3339 so lexicographic comparison in SQL matches
// chronological order.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return fmtTime(*t)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
