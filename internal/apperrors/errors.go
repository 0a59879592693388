// Package apperrors provides common static errors used throughout the application.
package apperrors

import (
	"errors"
	"fmt"
)

// GitError represents a failed invocation of the git tool. It keeps the
// underlying process error as its cause so callers can still inspect it.
type GitError struct {
	Args []string
	Err  error
}

// Error implements the error interface.
func (e *GitError) Error() string {
	return fmt.Sprintf("git %v: %v", e.Args, e.Err)
}

// Unwrap returns the underlying process error.
func (e *GitError) Unwrap() error {
	return e.Err
}

// NewGitError creates a new GitError.
func NewGitError(args []string, err error) *GitError {
	return &GitError{Args: args, Err: err}
}

// NamespaceError is returned when an output namespace resolves outside the
// repository root. It is always raised before anything is created on disk.
type NamespaceError struct {
	Namespace string
	Root      string
}

// Error implements the error interface.
func (e *NamespaceError) Error() string {
	return fmt.Sprintf(
		"invalid output namespace %q: resolves outside the repository root %s"+
			" (use relative paths without \"..\" to stay within the repository)",
		e.Namespace, e.Root)
}

// NewNamespaceError creates a new NamespaceError.
func NewNamespaceError(namespace, root string) *NamespaceError {
	return &NamespaceError{Namespace: namespace, Root: root}
}

// HTTPError represents an HTTP error with a status code.
type HTTPError struct {
	StatusCode int
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// NewHTTPError creates a new HTTPError.
func NewHTTPError(statusCode int, body string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Body: body}
}

// Common static errors used throughout the application.
var (
	// ErrRepoNotFound is returned when no git repository is found walking up
	// from the working directory.
	ErrRepoNotFound = errors.New("no git repository found")

	// ErrEmptyPath is returned when an empty path is provided.
	ErrEmptyPath = errors.New("empty path")

	// ErrInvalidDevice is returned when a device override is not one of cpu, cuda or mps.
	ErrInvalidDevice = errors.New("invalid device")

	// ErrRemoteNotConfigured is returned when the repository has no origin remote.
	ErrRemoteNotConfigured = errors.New("no remote configured")

	// ErrTrackerTokenRequired is returned when a tracking API token is required but not provided.
	ErrTrackerTokenRequired = errors.New("tracking token required (--token or DATABRICKS_TOKEN env var)")

	// ErrTrackerURIRequired is returned when no tracking server URI is configured.
	ErrTrackerURIRequired = errors.New("tracking URI required (--uri or MLFLOW_TRACKING_URI env var)")

	// ErrExperimentRef is returned when neither or both of an experiment name
	// and ID are provided to a lookup.
	ErrExperimentRef = errors.New("provide exactly one of experiment name or experiment ID")

	// ErrInvalidOverride is returned when a config override is not of the form key=value.
	ErrInvalidOverride = errors.New("override must be of the form key=value")

	// ErrConfigNameRequired is returned when no config name is given to the loader.
	ErrConfigNameRequired = errors.New("config name required")

	// ErrMaxRetriesExceeded is returned when the maximum number of retries is exceeded.
	ErrMaxRetriesExceeded = errors.New("max retries exceeded")
)
