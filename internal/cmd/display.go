package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/knadh/koanf/v2"

	"github.com/fclairamb/expkit/internal/device"
)

// displayPath prints a single filesystem path.
//
//nolint:forbidigo // CLI user output function
func displayPath(path string) {
	fmt.Println(path)
}

// displayRevision prints a commit hash.
//
//nolint:forbidigo // CLI user output function
func displayRevision(hash string) {
	fmt.Println(hash)
}

// displayRepoStatus displays the repository summary.
//
//nolint:forbidigo // CLI user output function
func displayRepoStatus(root, hash string, dirty bool, remote string) {
	fmt.Printf("Root:     %s\n", root)
	fmt.Printf("Revision: %s\n", hash)
	if dirty {
		fmt.Println("Worktree: dirty (uncommitted changes)")
	} else {
		fmt.Println("Worktree: clean")
	}
	if remote != "" {
		fmt.Printf("Remote:   %s\n", remote)
	} else {
		fmt.Println("Remote:   not configured")
	}
}

// displayDevice displays the selected device and the probed capabilities.
//
//nolint:forbidigo // CLI user output function
func displayDevice(selected device.Device, caps device.Capabilities) {
	fmt.Println(selected)

	var available []string
	if caps.MPS {
		available = append(available, string(device.MPS))
	}
	if caps.CUDA {
		available = append(available, string(device.CUDA))
	}
	available = append(available, string(device.CPU))
	fmt.Printf("available: %s\n", strings.Join(available, ", "))
}

// displayConfig prints the resolved configuration as indented JSON.
//
//nolint:forbidigo // CLI user output function
func displayConfig(k *koanf.Koanf) error {
	out, err := json.MarshalIndent(k.Raw(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// displayConnectionOK displays a successful connection test.
//
//nolint:forbidigo // CLI user output function
func displayConnectionOK(uri string) {
	fmt.Printf("Connection to %s successful!\n", uri)
}

// displayExperimentCheck displays an experiment existence check result.
//
//nolint:forbidigo // CLI user output function
func displayExperimentCheck(name, id string, exists bool) {
	ref := name
	if ref == "" {
		ref = id
	}
	if exists {
		fmt.Printf("Experiment %q exists\n", ref)
	} else {
		fmt.Printf("Experiment %q does not exist\n", ref)
	}
}

// displayTrackerEnv displays the tracker environment, masking secrets.
//
//nolint:forbidigo // CLI user output function
func displayTrackerEnv(values map[string]string) {
	order := []string{"DATABRICKS_HOST", "DATABRICKS_TOKEN", "MLFLOW_TRACKING_URI", "MLFLOW_EXPERIMENT_ID"}
	for _, name := range order {
		value := values[name]
		switch {
		case value == "":
			fmt.Printf("%s: (unset)\n", name)
		case name == "DATABRICKS_TOKEN":
			fmt.Printf("%s: %s\n", name, maskSecret(value))
		default:
			fmt.Printf("%s: %s\n", name, value)
		}
	}
}

// maskSecret keeps the first four characters of a secret visible.
func maskSecret(value string) string {
	const visible = 4
	if len(value) <= visible {
		return strings.Repeat("*", len(value))
	}
	return value[:visible] + strings.Repeat("*", len(value)-visible)
}
