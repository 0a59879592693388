package runpath

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fclairamb/expkit/internal/apperrors"
)

const testRevision = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

// testGenerator returns a generator rooted at a fresh temp directory with a
// fixed clock and revision.
func testGenerator(t *testing.T, at time.Time) (*Generator, string) {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}

	gen := NewGenerator(
		WithRootFunc(func() (string, error) { return root, nil }),
		WithRevisionFunc(func(context.Context) (string, error) { return testRevision, nil }),
		WithClock(func() time.Time { return at }),
	)
	return gen, root
}

func TestCreate_DefaultNamespace(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 15, 14, 30, 45, 0, time.Local)
	gen, root := testGenerator(t, at)

	got, err := gen.Create(context.Background(), "")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	want := filepath.Join(root, "outputs", "2024-01-15", "14-30-45", testRevision)
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	info, err := os.Stat(got)
	if err != nil || !info.IsDir() {
		t.Errorf("expected run directory to exist, stat: %v", err)
	}
}

func TestCreate_CustomNamespace(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 1, 15, 14, 30, 45, 0, time.Local)
	gen, root := testGenerator(t, at)

	got, err := gen.Create(context.Background(), "experiments/run1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	prefix := filepath.Join(root, "experiments", "run1")
	if !strings.HasPrefix(got, prefix+string(filepath.Separator)) {
		t.Errorf("path %q does not start with %q", got, prefix)
	}
	if filepath.Base(got) != testRevision {
		t.Errorf("final segment %q, want revision %q", filepath.Base(got), testRevision)
	}
}

func TestCreate_AncestryReachesRoot(t *testing.T) {
	t.Parallel()

	gen, root := testGenerator(t, time.Now())

	got, err := gen.Create(context.Background(), "experiments/run1")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// namespace depth (2) + date + time + revision segments
	maxSteps := 2 + 3
	dir := got
	for range maxSteps {
		dir = filepath.Dir(dir)
		if dir == root {
			return
		}
	}
	t.Errorf("walking %d steps up from %q never reached root %q", maxSteps, got, root)
}

func TestCreate_SameSecondIsIdempotent(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 6, 1, 9, 0, 0, 0, time.Local)
	gen, _ := testGenerator(t, at)

	first, err := gen.Create(context.Background(), "outputs")
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	second, err := gen.Create(context.Background(), "outputs")
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}

	if first != second {
		t.Errorf("same-second calls diverged: %q vs %q", first, second)
	}
}

func TestCreate_RejectsEscapingNamespaces(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
	}{
		{name: "upward traversal", namespace: "../../etc"},
		{name: "hidden traversal", namespace: "experiments/../../other"},
		{name: "absolute path outside", namespace: "/tmp/x"},
		{name: "bare parent", namespace: ".."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gen, root := testGenerator(t, time.Now())

			_, err := gen.Create(context.Background(), tt.namespace)

			var nsErr *apperrors.NamespaceError
			if !errors.As(err, &nsErr) {
				t.Fatalf("expected NamespaceError, got %v", err)
			}
			if nsErr.Namespace != tt.namespace {
				t.Errorf("error namespace %q, want %q", nsErr.Namespace, tt.namespace)
			}
			if nsErr.Root != root {
				t.Errorf("error root %q, want %q", nsErr.Root, root)
			}

			// Side-effect free: nothing was created under the root.
			entries, readErr := os.ReadDir(root)
			if readErr != nil {
				t.Fatalf("read root: %v", readErr)
			}
			if len(entries) != 0 {
				t.Errorf("expected empty root after rejection, found %d entries", len(entries))
			}
		})
	}
}

func TestCreate_AbsoluteNamespaceInsideRootAllowed(t *testing.T) {
	t.Parallel()

	gen, root := testGenerator(t, time.Now())

	got, err := gen.Create(context.Background(), filepath.Join(root, "outputs"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if !strings.HasPrefix(got, filepath.Join(root, "outputs")+string(filepath.Separator)) {
		t.Errorf("unexpected path %q", got)
	}
}

func TestCreate_RootLookupFailurePropagates(t *testing.T) {
	t.Parallel()

	gen := NewGenerator(
		WithRootFunc(func() (string, error) { return "", apperrors.ErrRepoNotFound }),
		WithRevisionFunc(func(context.Context) (string, error) { return testRevision, nil }),
	)

	_, err := gen.Create(context.Background(), "")
	if !errors.Is(err, apperrors.ErrRepoNotFound) {
		t.Fatalf("expected ErrRepoNotFound, got %v", err)
	}
}

func TestCreate_RevisionFailurePropagates(t *testing.T) {
	t.Parallel()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}

	gitErr := apperrors.NewGitError([]string{"rev-parse", "HEAD"}, errors.New("exit status 128"))
	gen := NewGenerator(
		WithRootFunc(func() (string, error) { return root, nil }),
		WithRevisionFunc(func(context.Context) (string, error) { return "", gitErr }),
	)

	_, err = gen.Create(context.Background(), "")

	var asGitErr *apperrors.GitError
	if !errors.As(err, &asGitErr) {
		t.Fatalf("expected GitError, got %v", err)
	}

	// Revision lookup happens after validation but before the final mkdir,
	// so the run directory itself must not exist.
	if _, err := os.Stat(filepath.Join(root, "outputs")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected no outputs directory, stat: %v", err)
	}
}

func TestCreate_SymlinkedNamespaceOutsideRootRejected(t *testing.T) {
	t.Parallel()

	gen, root := testGenerator(t, time.Now())

	outside, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolve temp dir: %v", err)
	}

	if err := os.Symlink(outside, filepath.Join(root, "sneaky")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, err = gen.Create(context.Background(), "sneaky/sub")

	var nsErr *apperrors.NamespaceError
	if !errors.As(err, &nsErr) {
		t.Fatalf("expected NamespaceError for symlink escape, got %v", err)
	}
}
