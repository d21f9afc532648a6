package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"jsonsmoke/internal/config"
)

// setupWorkspace points the global flags at a fresh temp workspace.
func setupWorkspace(t *testing.T) string {
	t.Helper()
	ws := t.TempDir()

	workspace = ws
	configPath = ""
	backendName = ""
	timingsPath = ""
	cfg = nil
	logger = zap.NewNop()

	t.Cleanup(func() {
		workspace = ""
		backendName = ""
		timingsPath = ""
		cfg = nil
	})
	return ws
}

// planCmd returns a command carrying the plan flags, with the given ones set.
func planCmd(t *testing.T, set map[string]string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{}
	addPlanFlags(cmd)
	cmd.Flags().BoolVar(&keepFlag, "keep", false, "")
	cmd.Flags().IntVar(&countFlag, "count", 0, "")
	cmd.Flags().IntVar(&jobsFlag, "jobs", 0, "")
	cmd.Flags().StringVar(&dirFlag, "dir", "batch", "")
	for name, value := range set {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set --%s=%s: %v", name, value, err)
		}
	}
	return cmd
}

func TestLoadSettings_Defaults(t *testing.T) {
	setupWorkspace(t)

	if err := loadSettings(); err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if cfg.Backend.Name != "cybergodev" {
		t.Errorf("expected default backend cybergodev, got %s", cfg.Backend.Name)
	}
}

func TestLoadSettings_BackendFlag(t *testing.T) {
	setupWorkspace(t)
	backendName = "stdlib"

	if err := loadSettings(); err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if cfg.Backend.Name != "stdlib" {
		t.Errorf("--backend should override config, got %s", cfg.Backend.Name)
	}
}

func TestLoadSettings_InvalidBackend(t *testing.T) {
	setupWorkspace(t)
	backendName = "simdjson"

	err := loadSettings()
	if err == nil || !strings.Contains(err.Error(), "invalid backend") {
		t.Fatalf("expected invalid backend error, got %v", err)
	}
	if cfg != nil {
		t.Error("cfg must stay unset after a failed load")
	}
}

func TestLoadSettings_ConfigFile(t *testing.T) {
	ws := setupWorkspace(t)

	c := config.DefaultConfig()
	c.Generator.Size = 77
	if err := c.Save(config.DefaultPath(ws)); err != nil {
		t.Fatalf("save: %v", err)
	}

	if err := loadSettings(); err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if cfg.Generator.Size != 77 {
		t.Errorf("expected size 77 from config file, got %d", cfg.Generator.Size)
	}
}

func TestOutputPath(t *testing.T) {
	ws := setupWorkspace(t)
	if err := loadSettings(); err != nil {
		t.Fatalf("loadSettings: %v", err)
	}

	if got := outputPath("doc.json"); got != filepath.Join(ws, "doc.json") {
		t.Errorf("relative file should land in the workspace, got %s", got)
	}
	abs := filepath.Join(t.TempDir(), "x.json")
	if got := outputPath(abs); got != abs {
		t.Errorf("absolute path should be kept, got %s", got)
	}
}

func TestRandomSeed(t *testing.T) {
	a, err := randomSeed()
	if err != nil {
		t.Fatalf("randomSeed: %v", err)
	}
	b, err := randomSeed()
	if err != nil {
		t.Fatalf("randomSeed: %v", err)
	}
	if a == b {
		t.Errorf("two random seeds should differ, both %d", a)
	}
}

func TestBuildPlan(t *testing.T) {
	setupWorkspace(t)
	if err := loadSettings(); err != nil {
		t.Fatalf("loadSettings: %v", err)
	}

	plan, err := buildPlan(planCmd(t, map[string]string{"size": "12", "random-seed": "0", "pretty": "true"}), "out.json")
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if plan.Options.Size != 12 || plan.Seed != 0 || !plan.Pretty {
		t.Errorf("flags not applied: %+v", plan)
	}
	if plan.Options.Build != buildStamp {
		t.Errorf("expected build %q, got %q", buildStamp, plan.Options.Build)
	}

	plan, err = buildPlan(planCmd(t, nil), "out.json")
	if err != nil {
		t.Fatalf("buildPlan: %v", err)
	}
	if plan.Options.Size != cfg.Generator.Size {
		t.Errorf("expected config size %d, got %d", cfg.Generator.Size, plan.Options.Size)
	}
}

func TestBuildPlan_InvalidSize(t *testing.T) {
	setupWorkspace(t)
	if err := loadSettings(); err != nil {
		t.Fatalf("loadSettings: %v", err)
	}
	if _, err := buildPlan(planCmd(t, map[string]string{"size": "-3"}), "out.json"); err == nil {
		t.Fatal("expected an error for a negative size")
	}
}

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	origOut := os.Stdout
	origErr := os.Stderr
	rOut, wOut, _ := os.Pipe()
	rErr, wErr, _ := os.Pipe()
	os.Stdout = wOut
	os.Stderr = wErr

	done := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, rOut)
		_, _ = io.Copy(&buf, rErr)
		done <- buf.String()
	}()

	fn()

	_ = wOut.Close()
	_ = wErr.Close()
	os.Stdout = origOut
	os.Stderr = origErr
	return <-done
}
