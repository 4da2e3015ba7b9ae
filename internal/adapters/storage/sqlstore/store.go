// Package sqlstore persists posts with database/sql. The same queries run on
// sqlite3 (mattn/go-sqlite3) and postgres (lib/pq); placeholders are
// rewritten per dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"           // postgres driver
	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/jsamuelsen/blogdraft/internal/domain"
	"github.com/jsamuelsen/blogdraft/internal/ports"
)

// Config describes the database connection.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Logger          *slog.Logger
}

// Store is a ports.PostRepository and ports.HealthChecker.
type Store struct {
	db      *sql.DB
	dialect dialect
	logger  *slog.Logger
}

var (
	_ ports.PostRepository = (*Store)(nil)
	_ ports.HealthChecker  = (*Store)(nil)
)

// Open connects, verifies the connection and creates the schema if needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{db: db, dialect: d, logger: logger.With(slog.String("component", "sqlstore"), slog.String("driver", cfg.Driver))}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.NewUnavailableError(cfg.Driver, err)
	}

	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.schema() {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrating schema: %w", err)
		}
	}

	s.logger.DebugContext(ctx, "schema ready")

	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return s.dialect.driver
}

// Check implements ports.HealthChecker.
func (s *Store) Check(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const selectColumns = `SELECT id, title, content, tags, status, author, slug, created_at, updated_at FROM posts`

func (s *Store) List(ctx context.Context, f ports.PostFilter) ([]*domain.Post, error) {
	f = f.Normalize()
	where, args := whereClause(f)

	query := selectColumns + where + ` ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, f.Limit, f.Offset())

	rows, err := s.db.QueryContext(ctx, s.dialect.rebind(query), args...)
	if err != nil {
		return nil, s.unavailable(err)
	}
	defer rows.Close()

	posts := make([]*domain.Post, 0, f.Limit)

	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}

		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, s.unavailable(err)
	}

	return posts, nil
}

func (s *Store) Count(ctx context.Context, f ports.PostFilter) (int, error) {
	where, args := whereClause(f)

	var n int
	if err := s.db.QueryRowContext(ctx, s.dialect.rebind(`SELECT COUNT(*) FROM posts`+where), args...).Scan(&n); err != nil {
		return 0, s.unavailable(err)
	}

	return n, nil
}

func (s *Store) GetByID(ctx context.Context, id string) (*domain.Post, error) {
	row := s.db.QueryRowContext(ctx, s.dialect.rebind(selectColumns+` WHERE id = ?`), id)

	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError(domain.EntityPost, id)
	}

	if err != nil {
		return nil, s.unavailable(err)
	}

	return p, nil
}

func (s *Store) Create(ctx context.Context, post *domain.Post) error {
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, s.dialect.rebind(
		`INSERT INTO posts (id, title, content, tags, status, author, slug, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		post.ID, post.Title, post.Content, tags, string(post.Status), post.Author,
		nullable(post.Slug), post.CreatedAt.UTC(), post.UpdatedAt.UTC(),
	)

	return s.writeErr(err, post)
}

func (s *Store) Update(ctx context.Context, post *domain.Post) error {
	tags, err := encodeTags(post.Tags)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.dialect.rebind(
		`UPDATE posts SET title = ?, content = ?, tags = ?, status = ?, author = ?, slug = ?, updated_at = ?
		 WHERE id = ?`),
		post.Title, post.Content, tags, string(post.Status), post.Author,
		nullable(post.Slug), post.UpdatedAt.UTC(), post.ID,
	)
	if err != nil {
		return s.writeErr(err, post)
	}

	return s.affected(res, post.ID)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.dialect.rebind(`DELETE FROM posts WHERE id = ?`), id)
	if err != nil {
		return s.unavailable(err)
	}

	return s.affected(res, id)
}

func (s *Store) affected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return s.unavailable(err)
	}

	if n == 0 {
		return domain.NewNotFoundError(domain.EntityPost, id)
	}

	return nil
}

func (s *Store) writeErr(err error, post *domain.Post) error {
	if err == nil {
		return nil
	}

	if isUniqueViolation(err) {
		if violatedColumn(err) == "slug" {
			return domain.NewConflictError(domain.EntityPost, "slug", post.Slug)
		}

		return domain.NewConflictError(domain.EntityPost, "id", post.ID)
	}

	return s.unavailable(err)
}

func (s *Store) unavailable(err error) error {
	return domain.NewUnavailableError(s.dialect.driver, err)
}

// whereClause builds the filter part shared by List and Count. Tags are
// stored as a JSON array, so each wanted tag is matched as a quoted element.
func whereClause(f ports.PostFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}

	if len(f.Tags) > 0 {
		alts := make([]string, 0, len(f.Tags))

		for _, tag := range f.Tags {
			quoted, _ := json.Marshal(tag)

			alts = append(alts, `tags LIKE ? ESCAPE '\'`)
			args = append(args, "%"+escapeLike(string(quoted))+"%")
		}

		conds = append(conds, "("+strings.Join(alts, " OR ")+")")
	}

	if len(conds) == 0 {
		return "", args
	}

	return " WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPost(row scanner) (*domain.Post, error) {
	var (
		p      domain.Post
		tags   string
		status string
		slug   sql.NullString
	)

	if err := row.Scan(&p.ID, &p.Title, &p.Content, &tags, &status, &p.Author, &slug, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(tags), &p.Tags); err != nil {
		return nil, fmt.Errorf("decoding tags of post %s: %w", p.ID, err)
	}

	p.Status = domain.Status(status)
	p.Slug = slug.String
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()

	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}

	raw, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encoding tags: %w", err)
	}

	return string(raw), nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
