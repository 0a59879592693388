// Package config loads hierarchical experiment configuration. A base YAML
// file is layered with environment variables and explicit key=value
// overrides; later layers win.
package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/fclairamb/expkit/internal/apperrors"
	"github.com/fclairamb/expkit/internal/gitrepo"
)

// DefaultEnvPrefix is the prefix for environment variable overlays.
const DefaultEnvPrefix = "EXP_"

// configDirName is the config directory at the repository root.
const configDirName = "conf"

// Loader loads named configurations from a directory.
type Loader struct {
	dir       string
	envPrefix string
	logger    *slog.Logger
}

// LoaderOption configures the loader.
type LoaderOption func(*Loader)

// WithDir sets the config directory. When unset, the directory defaults to
// <repository-root>/conf, discovered at load time.
func WithDir(dir string) LoaderOption {
	return func(l *Loader) {
		l.dir = dir
	}
}

// WithEnvPrefix sets the environment variable prefix for the env layer.
func WithEnvPrefix(prefix string) LoaderOption {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) LoaderOption {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a config loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		envPrefix: DefaultEnvPrefix,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// DefaultDir returns the conf directory at the root of the enclosing
// repository.
func DefaultDir() (string, error) {
	root, err := gitrepo.RootPath()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, configDirName), nil
}

// Load reads <dir>/<name>.yaml, overlays environment variables carrying the
// loader's prefix, then overlays the given key=value override strings.
func (l *Loader) Load(name string, overrides ...string) (*koanf.Koanf, error) {
	if name == "" {
		return nil, apperrors.ErrConfigNameRequired
	}

	dir := l.dir
	if dir == "" {
		var err error
		dir, err = DefaultDir()
		if err != nil {
			return nil, err
		}
	}

	k := koanf.New(".")

	path := filepath.Join(dir, name+".yaml")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        l.envPrefix,
		TransformFunc: l.transformEnv,
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	if len(overrides) > 0 {
		overlay, err := parseOverrides(overrides)
		if err != nil {
			return nil, err
		}
		if err := k.Load(confmap.Provider(overlay, "."), nil); err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	l.logger.Debug("config loaded", "name", name, "dir", dir, "overrides", len(overrides))

	return k, nil
}

// transformEnv maps EXP_TRAIN_BATCH__SIZE to train.batch_size: the prefix is
// stripped, single underscores become delimiters, doubled underscores are
// kept as literal underscores.
func (l *Loader) transformEnv(key, value string) (string, any) {
	key = strings.TrimPrefix(key, l.envPrefix)
	key = strings.ToLower(key)
	key = strings.ReplaceAll(key, "__", "\x00")
	key = strings.ReplaceAll(key, "_", ".")
	key = strings.ReplaceAll(key, "\x00", "_")
	return key, value
}

// parseOverrides turns key=value strings into a flat config map with typed
// values.
func parseOverrides(overrides []string) (map[string]any, error) {
	overlay := make(map[string]any, len(overrides))
	for _, o := range overrides {
		key, value, found := strings.Cut(o, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidOverride, o)
		}
		overlay[key] = parseValue(value)
	}
	return overlay, nil
}

// parseValue interprets an override value as int, float or bool when it
// looks like one, and keeps it a string otherwise. Numbers are tried first
// so "1" stays an int rather than becoming true.
func parseValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch s {
	case "true", "false":
		b, _ := strconv.ParseBool(s)
		return b
	}
	return s
}
