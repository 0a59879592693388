// Package runpath synthesizes unique, timestamped run directories inside a
// git repository, namespaced as
// <root>/<namespace>/<YYYY-MM-DD>/<HH-MM-SS>/<commit>. Paths are validated
// to stay inside the repository before anything is created on disk.
package runpath

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fclairamb/expkit/internal/apperrors"
	"github.com/fclairamb/expkit/internal/gitrepo"
	"github.com/fclairamb/expkit/internal/paths"
)

// DefaultNamespace is the namespace used when the caller does not supply one.
const DefaultNamespace = "outputs"

// timestampLayout yields two path segments: a date and a time. Local wall
// clock on purpose, for human-readable directory names.
const timestampLayout = "2006-01-02/15-04-05"

// Generator produces run directories. The zero collaborators discover the
// repository and revision for real; tests swap them out via options.
type Generator struct {
	rootPath func() (string, error)
	revision func(context.Context) (string, error)
	now      func() time.Time
	logger   *slog.Logger
}

// GeneratorOption configures the generator.
type GeneratorOption func(*Generator)

// WithRootFunc sets the repository root lookup.
func WithRootFunc(f func() (string, error)) GeneratorOption {
	return func(g *Generator) {
		g.rootPath = f
	}
}

// WithRevisionFunc sets the revision lookup.
func WithRevisionFunc(f func(context.Context) (string, error)) GeneratorOption {
	return func(g *Generator) {
		g.revision = f
	}
}

// WithClock sets the wall clock.
func WithClock(f func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = f
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = l
	}
}

// NewGenerator creates a generator backed by the real repository, the git
// tool and the system clock.
func NewGenerator(opts ...GeneratorOption) *Generator {
	g := &Generator{
		rootPath: gitrepo.RootPath,
		revision: gitrepo.CommitHash,
		now:      time.Now,
		logger:   slog.Default(),
	}

	for _, opt := range opts {
		opt(g)
	}

	return g
}

// Create builds and materializes a unique run directory for the given
// namespace (DefaultNamespace when empty). The namespace must resolve to a
// descendant of the repository root; escaping namespaces are rejected with a
// *NamespaceError before any directory is created. Calls within the same
// wall-clock second for the same revision return the same existing path.
func (g *Generator) Create(ctx context.Context, namespace string) (string, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	root, err := g.rootPath()
	if err != nil {
		return "", err
	}

	// Compare physical paths on both sides of the containment check.
	root, err = paths.Resolve(root)
	if err != nil {
		return "", fmt.Errorf("resolve repository root: %w", err)
	}

	joined := namespace
	if !filepath.IsAbs(joined) {
		joined = filepath.Join(root, namespace)
	}
	candidate, err := paths.Resolve(joined)
	if err != nil {
		return "", fmt.Errorf("resolve namespace: %w", err)
	}

	if !contains(root, candidate) {
		return "", apperrors.NewNamespaceError(namespace, root)
	}

	stamp := g.now().Format(timestampLayout)

	rev, err := g.revision(ctx)
	if err != nil {
		return "", err
	}

	full, err := paths.NormalizeDir(filepath.Join(candidate, stamp, rev))
	if err != nil {
		return "", err
	}

	g.logger.DebugContext(ctx, "run directory ready",
		"path", full,
		"namespace", namespace,
		"revision", rev)

	return full, nil
}

// Create builds a unique run directory using the enclosing repository, the
// git tool and the system clock. See Generator.Create.
func Create(ctx context.Context, namespace string) (string, error) {
	return NewGenerator().Create(ctx, namespace)
}

// contains reports whether candidate is root itself or a descendant of it.
func contains(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return false
	}
	return !filepath.IsAbs(rel)
}
