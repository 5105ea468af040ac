// Package migrations registers the embedded session_activity schema with a
// migration runner, one filesystem per SQL dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	persistence "github.com/goliatone/go-persistence-bun"
	session "github.com/goliatone/go-session"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"

	DefaultLabel = "go-session"

	migrationsDir = "data/sql/migrations"
)

// Source is the migration tree for one dialect.
type Source struct {
	Dialect string
	Path    string
	FS      fs.FS
}

// Plan is what Register resolved and handed to the register function.
type Plan struct {
	Label    string
	Dialects []string
	Sources  []Source
}

type RegisterFunc func(ctx context.Context, dialect string, label string, fsys fs.FS) error

type Option func(*Plan)

func WithLabel(label string) Option {
	return func(p *Plan) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			p.Label = trimmed
		}
	}
}

// WithDialects limits registration to the named dialects.
func WithDialects(dialects ...string) Option {
	return func(p *Plan) {
		if next := normalizeDialects(dialects); len(next) > 0 {
			p.Dialects = next
		}
	}
}

// WithSources replaces the embedded trees, e.g. to add application tables.
func WithSources(sources ...Source) Option {
	return func(p *Plan) {
		next := make([]Source, 0, len(sources))
		for _, source := range sources {
			dialect := normalizeDialect(source.Dialect)
			if dialect == "" || source.FS == nil {
				continue
			}
			source.Dialect = dialect
			next = append(next, source)
		}
		if len(next) > 0 {
			p.Sources = next
		}
	}
}

// Sources resolves the postgres tree at data/sql/migrations and the sqlite tree
// below it. A nil root uses the embedded migrations. A root that holds .sql
// files at its top level is taken as the postgres tree itself.
func Sources(root fs.FS) ([]Source, error) {
	if root == nil {
		root = session.GetMigrationsFS()
	}
	base, basePath, err := resolveBase(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(base, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite tree: %w", err)
	}
	sqlitePath := "sqlite"
	if basePath != "." {
		sqlitePath = basePath + "/sqlite"
	}

	sources := []Source{
		{Dialect: DialectPostgres, Path: basePath, FS: base},
		{Dialect: DialectSQLite, Path: sqlitePath, FS: sqliteFS},
	}
	for _, source := range sources {
		ups, err := fs.Glob(source.FS, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s tree %q: %w", source.Dialect, source.Path, err)
		}
		if len(ups) == 0 {
			return nil, fmt.Errorf("migrations: %s tree %q has no *.up.sql files", source.Dialect, source.Path)
		}
	}
	return sources, nil
}

// Register calls registerFn once per selected dialect, in source order.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Plan, error) {
	plan := Plan{
		Label:    DefaultLabel,
		Dialects: []string{DialectPostgres, DialectSQLite},
	}
	sources, err := Sources(nil)
	if err != nil {
		return plan, err
	}
	plan.Sources = sources
	for _, opt := range opts {
		if opt != nil {
			opt(&plan)
		}
	}
	if registerFn == nil {
		return plan, fmt.Errorf("migrations: register function is required")
	}

	for _, source := range plan.Sources {
		if !slices.Contains(plan.Dialects, source.Dialect) {
			continue
		}
		if err := registerFn(ctx, source.Dialect, plan.Label, source.FS); err != nil {
			return plan, fmt.Errorf("migrations: register %s (%s): %w", source.Dialect, source.Path, err)
		}
	}
	return plan, nil
}

// Apply registers the migrations for one dialect on a go-persistence-bun
// client and runs them.
func Apply(ctx context.Context, client *persistence.Client, dialect string, opts ...Option) error {
	if client == nil {
		return fmt.Errorf("migrations: persistence client is required")
	}
	dialect = normalizeDialect(dialect)
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return fmt.Errorf("migrations: unsupported dialect %q", dialect)
	}
	opts = append(opts, WithDialects(dialect))
	if _, err := Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		client.RegisterSQLMigrations(fsys)
		return nil
	}, opts...); err != nil {
		return err
	}
	if err := client.Migrate(ctx); err != nil {
		return fmt.Errorf("migrations: migrate %s: %w", dialect, err)
	}
	return nil
}

func resolveBase(root fs.FS) (fs.FS, string, error) {
	if sub, err := fs.Sub(root, migrationsDir); err == nil {
		if _, statErr := fs.Stat(sub, "."); statErr == nil {
			return sub, migrationsDir, nil
		}
	}
	if tops, err := fs.Glob(root, "*.sql"); err == nil && len(tops) > 0 {
		return root, ".", nil
	}
	return nil, "", fmt.Errorf("migrations: %s not found", migrationsDir)
}

func normalizeDialect(dialect string) string {
	return strings.ToLower(strings.TrimSpace(dialect))
}

func normalizeDialects(dialects []string) []string {
	out := make([]string, 0, len(dialects))
	for _, dialect := range dialects {
		dialect = normalizeDialect(dialect)
		if dialect == "" || slices.Contains(out, dialect) {
			continue
		}
		out = append(out, dialect)
	}
	return out
}
