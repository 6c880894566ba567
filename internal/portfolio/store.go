package portfolio

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store persists portfolio projects in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the portfolio database in dataDir and runs pending
// migrations. Pass ":memory:" as dataDir for an in-memory database (used by
// tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "foliorank.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}
	return nil
}

const projectColumns = `name, url, description, readme_content, three_liner, detailed_paragraph,
	technologies, file_tree, bad_readme, no_readme, stars, forks, language,
	created_at, updated_at, hidden_from_search`

// Upsert inserts or replaces a project keyed by name.
func (s *Store) Upsert(ctx context.Context, p Project) error {
	techs, err := json.Marshal(emptyIfNil(p.Technologies))
	if err != nil {
		return fmt.Errorf("encoding technologies for %s: %w", p.Name, err)
	}
	tree, err := json.Marshal(emptyIfNil(p.FileTree))
	if err != nil {
		return fmt.Errorf("encoding file tree for %s: %w", p.Name, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			url = excluded.url,
			description = excluded.description,
			readme_content = excluded.readme_content,
			three_liner = excluded.three_liner,
			detailed_paragraph = excluded.detailed_paragraph,
			technologies = excluded.technologies,
			file_tree = excluded.file_tree,
			bad_readme = excluded.bad_readme,
			no_readme = excluded.no_readme,
			stars = excluded.stars,
			forks = excluded.forks,
			language = excluded.language,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			hidden_from_search = excluded.hidden_from_search`,
		p.Name, p.URL, p.Description, p.ReadmeContent, p.ThreeLiner, p.DetailedParagraph,
		string(techs), string(tree), boolToInt(p.BadReadme), boolToInt(p.NoReadme),
		p.Stars, p.Forks, p.Language, formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
		boolToInt(p.HiddenFromSearch),
	)
	if err != nil {
		return fmt.Errorf("upserting project %s: %w", p.Name, err)
	}
	return nil
}

// Get returns the project with the given name, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (Project, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE name = ?`, name)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return Project{}, ErrNotFound
	}
	if err != nil {
		return Project{}, fmt.Errorf("getting project %s: %w", name, err)
	}
	return p, nil
}

// GetByNames returns the projects matching the given names, keyed by name.
// Names without a matching project are simply absent from the result.
func (s *Store) GetByNames(ctx context.Context, names []string) (map[string]Project, error) {
	if len(names) == 0 {
		return map[string]Project{}, nil
	}

	args := make([]interface{}, len(names))
	for i, n := range names {
		args[i] = n
	}
	query := `SELECT ` + projectColumns + ` FROM projects WHERE name IN (?` +
		strings.Repeat(",?", len(names)-1) + `)`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying projects by name: %w", err)
	}
	defer rows.Close()

	result := make(map[string]Project, len(names))
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		result[p.Name] = p
	}
	return result, rows.Err()
}

// ListAll returns every project ordered by name, including hidden ones.
func (s *Store) ListAll(ctx context.Context) ([]Project, error) {
	return s.list(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY name ASC`)
}

// ListVisible returns every project not hidden from search, ordered by name.
func (s *Store) ListVisible(ctx context.Context) ([]Project, error) {
	return s.list(ctx, `SELECT `+projectColumns+` FROM projects WHERE hidden_from_search = 0 ORDER BY name ASC`)
}

func (s *Store) list(ctx context.Context, query string) ([]Project, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// SetHidden updates the hidden_from_search flag for the named project.
func (s *Store) SetHidden(ctx context.Context, name string, hidden bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET hidden_from_search = ? WHERE name = ?`, boolToInt(hidden), name)
	if err != nil {
		return fmt.Errorf("updating visibility for %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the named project.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Count returns the total number of projects.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count)
	return count, err
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (Project, error) {
	var p Project
	var techs, tree, createdAt, updatedAt string
	var badReadme, noReadme, hidden int
	err := row.Scan(
		&p.Name, &p.URL, &p.Description, &p.ReadmeContent, &p.ThreeLiner, &p.DetailedParagraph,
		&techs, &tree, &badReadme, &noReadme, &p.Stars, &p.Forks, &p.Language,
		&createdAt, &updatedAt, &hidden,
	)
	if err != nil {
		return Project{}, err
	}
	if err := json.Unmarshal([]byte(techs), &p.Technologies); err != nil {
		return Project{}, fmt.Errorf("decoding technologies for %s: %w", p.Name, err)
	}
	if err := json.Unmarshal([]byte(tree), &p.FileTree); err != nil {
		return Project{}, fmt.Errorf("decoding file tree for %s: %w", p.Name, err)
	}
	p.BadReadme = badReadme != 0
	p.NoReadme = noReadme != 0
	p.HiddenFromSearch = hidden != 0
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return p, nil
}

// formatTime stores the zero time as an empty string so a missing timestamp
// round-trips as missing.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func emptyIfNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
