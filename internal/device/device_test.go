package device

import (
	"errors"
	"testing"

	"github.com/fclairamb/expkit/internal/apperrors"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    Device
		wantErr bool
	}{
		{name: "cpu", input: "cpu", want: CPU},
		{name: "cuda", input: "cuda", want: CUDA},
		{name: "mps", input: "mps", want: MPS},
		{name: "empty", input: "", wantErr: true},
		{name: "unknown", input: "tpu", wantErr: true},
		{name: "wrong case", input: "CUDA", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidDevice) {
					t.Fatalf("expected ErrInvalidDevice, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCapabilities_Select(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		caps     Capabilities
		override string
		want     Device
		wantErr  bool
	}{
		{name: "nothing available", caps: Capabilities{}, want: CPU},
		{name: "cuda only", caps: Capabilities{CUDA: true}, want: CUDA},
		{name: "mps only", caps: Capabilities{MPS: true}, want: MPS},
		{name: "mps preferred over cuda", caps: Capabilities{CUDA: true, MPS: true}, want: MPS},
		{name: "override wins", caps: Capabilities{CUDA: true, MPS: true}, override: "cpu", want: CPU},
		{name: "override is validated", caps: Capabilities{}, override: "tpu", wantErr: true},
		{name: "override without capability still honored", caps: Capabilities{}, override: "cuda", want: CUDA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := tt.caps.Select(tt.override)
			if tt.wantErr {
				if !errors.Is(err, apperrors.ErrInvalidDevice) {
					t.Fatalf("expected ErrInvalidDevice, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Select failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBest_ReturnsValidDevice(t *testing.T) {
	t.Parallel()

	if _, err := Parse(string(Best())); err != nil {
		t.Fatalf("Best returned an invalid device: %v", err)
	}
}
