package tracking

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/fclairamb/expkit/internal/paths"
)

// Environment variables the tracker relies on. Only these are read from a
// .env file; everything else in the file is ignored.
var trackerEnvVars = []string{
	"DATABRICKS_HOST",
	"DATABRICKS_TOKEN",
	"MLFLOW_TRACKING_URI",
	"MLFLOW_EXPERIMENT_ID",
}

// LoadEnv loads tracker environment variables from a .env file into the
// process environment. With an empty path, the file is searched upward from
// the working directory; not finding one is not an error. The returned map
// holds each variable's value after loading, with "" for unset ones.
func LoadEnv(dotenvPath string) (map[string]string, error) {
	if dotenvPath == "" {
		dotenvPath = findDotenv()
	} else {
		var err error
		dotenvPath, err = paths.NormalizeFile(dotenvPath,
			paths.WithExistenceRequired(), paths.WithoutParents())
		if err != nil {
			return nil, err
		}
	}

	if dotenvPath != "" {
		fileValues, err := godotenv.Read(dotenvPath)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", dotenvPath, err)
		}
		for _, name := range trackerEnvVars {
			if value, ok := fileValues[name]; ok {
				if err := os.Setenv(name, value); err != nil {
					return nil, fmt.Errorf("set %s: %w", name, err)
				}
			}
		}
	}

	result := make(map[string]string, len(trackerEnvVars))
	for _, name := range trackerEnvVars {
		result[name] = os.Getenv(name)
	}
	return result, nil
}

// findDotenv walks upward from the working directory looking for a .env
// file, returning "" when none exists.
func findDotenv() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		candidate := filepath.Join(dir, ".env")
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return ""
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
