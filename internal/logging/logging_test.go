package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

// The Configure tests install the package-global default logger, so they do
// not run in parallel.

func TestConfigure_Idempotent(t *testing.T) {
	var s Setup
	t.Cleanup(func() { _ = s.Reset() })

	first, err := s.Configure(Options{Level: slog.LevelInfo, Format: FormatText})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	if first == nil {
		t.Fatal("expected a logger")
	}
	if !s.Configured() {
		t.Error("expected setup to report configured")
	}

	// The second call is a no-op and must not fail.
	second, err := s.Configure(Options{Level: slog.LevelDebug, Format: FormatJSON})
	if err != nil {
		t.Fatalf("second Configure failed: %v", err)
	}
	if second != slog.Default() {
		t.Error("expected the second call to return the current default logger")
	}
}

func TestConfigure_Reset(t *testing.T) {
	var s Setup
	t.Cleanup(func() { _ = s.Reset() })

	if _, err := s.Configure(Options{}); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if s.Configured() {
		t.Error("expected setup to be re-armed after Reset")
	}

	if _, err := s.Configure(Options{}); err != nil {
		t.Fatalf("Configure after Reset failed: %v", err)
	}
	if !s.Configured() {
		t.Error("expected setup to be configured again")
	}
}

func TestConfigure_FileSink(t *testing.T) {
	var s Setup
	t.Cleanup(func() { _ = s.Reset() })

	logFile := filepath.Join(t.TempDir(), "logs", "run.log")

	logger, err := s.Configure(Options{
		Level:  slog.LevelInfo,
		Format: FormatJSON,
		File:   logFile,
	})
	if err != nil {
		t.Fatalf("Configure failed: %v", err)
	}

	logger.Info("hello", "key", "value")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Error("expected the log file to contain the record")
	}
}

func TestConfigure_Concurrent(t *testing.T) {
	var s Setup
	t.Cleanup(func() { _ = s.Reset() })

	var wg sync.WaitGroup
	errs := make(chan error, 8)

	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Configure(Options{Level: slog.LevelInfo})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent Configure failed: %v", err)
		}
	}

	if !s.Configured() {
		t.Error("expected setup to be configured")
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		want      Format
		wantKnown bool
	}{
		{name: "text", input: "text", want: FormatText, wantKnown: true},
		{name: "json", input: "json", want: FormatJSON, wantKnown: true},
		{name: "empty defaults to text", input: "", want: FormatText, wantKnown: true},
		{name: "unknown falls back to text", input: "xml", want: FormatText, wantKnown: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, known := ParseFormat(tt.input)
			if got != tt.want || known != tt.wantKnown {
				t.Errorf("ParseFormat(%q) = (%q, %v), want (%q, %v)",
					tt.input, got, known, tt.want, tt.wantKnown)
			}
		})
	}
}
