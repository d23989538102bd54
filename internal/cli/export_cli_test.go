package cli

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func withoutEnv(keys ...string) []string {
	out := make([]string, 0, len(os.Environ()))
	for _, e := range os.Environ() {
		drop := false
		for _, key := range keys {
			if strings.HasPrefix(e, key+"=") {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, e)
		}
	}
	return out
}

func repoRoot(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	// internal/cli -> repo root
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func goExe() string {
	if runtime.GOOS == "windows" {
		return "go.exe"
	}
	return "go"
}

func buildBinary(t *testing.T) string {
	t.Helper()

	outPath := filepath.Join(t.TempDir(), "ghasexport-test")
	if runtime.GOOS == "windows" {
		outPath += ".exe"
	}

	cmd := exec.Command(goExe(), "build", "-o", outPath, "./cmd/ghasexport")
	cmd.Dir = repoRoot(t)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("failed to build ghasexport binary: %v; output=%s", err, string(out))
	}

	return outPath
}

func requireExitCode(t *testing.T, cmd *exec.Cmd, want int, wantOutput string) {
	t.Helper()
	out, err := cmd.CombinedOutput()
	if err == nil {
		t.Fatalf("expected non-zero exit; output=%s", string(out))
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v; output=%s", err, err, string(out))
	}
	if code := exitErr.ProcessState.ExitCode(); code != want {
		t.Fatalf("expected exit code %d, got %d; output=%s", want, code, string(out))
	}
	if !strings.Contains(string(out), wantOutput) {
		t.Fatalf("expected output to contain %q; output=%s", wantOutput, string(out))
	}
}

func TestExport_ExitCode3_WhenNoTargetProvided(t *testing.T) {
	binary := buildBinary(t)
	// Pass a flag to bypass the "print help if no flags" check and force
	// validation to run.
	cmd := exec.Command(binary, "export", "--verbose")
	cmd.Dir = t.TempDir()

	requireExitCode(t, cmd, 3, "one of --org or --enterprise must be provided")
}

func TestExport_ExitCode3_WhenOrgAndEnterpriseProvided(t *testing.T) {
	binary := buildBinary(t)
	cmd := exec.Command(binary, "export", "--org", "acme", "--enterprise", "megacorp")
	cmd.Dir = t.TempDir()

	requireExitCode(t, cmd, 3, "mutually exclusive")
}

func TestExport_ExitCode3_WhenGitHubTokenMissing(t *testing.T) {
	binary := buildBinary(t)
	dir := t.TempDir()
	cmd := exec.Command(binary, "export", "--org", "acme")
	cmd.Dir = dir
	// Ensure we don't accidentally pick up a developer's GitHub CLI session.
	cmd.Env = append(withoutEnv("GITHUB_TOKEN", "GH_TOKEN", "PATH"), "PATH="+t.TempDir())

	requireExitCode(t, cmd, 3, "GitHub auth token is required")

	if _, err := os.Stat(filepath.Join(dir, "output.csv")); !os.IsNotExist(err) {
		t.Fatalf("expected no report before authentication, stat err=%v", err)
	}
}

func TestExport_ExitCode3_WhenConfigFileInvalid(t *testing.T) {
	binary := buildBinary(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".ghasexport.yaml"), []byte("org: acme\ncolour: blue\n"), 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	cmd := exec.Command(binary, "export")
	cmd.Dir = dir

	requireExitCode(t, cmd, 3, `config key "colour"`)
}

func TestExport_NoFlagsPrintsHelp(t *testing.T) {
	binary := buildBinary(t)
	cmd := exec.Command(binary, "export")
	cmd.Dir = t.TempDir()

	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("expected zero exit; err=%v output=%s", err, string(out))
	}
	if !strings.Contains(string(out), "Exit codes:") || !strings.Contains(string(out), "GH_TOKEN") {
		t.Fatalf("expected export help; output=%s", string(out))
	}
}

func TestVersion_PrintsBuildInfo(t *testing.T) {
	binary := buildBinary(t)
	out, err := exec.Command(binary, "version").CombinedOutput()
	if err != nil {
		t.Fatalf("version failed: %v; output=%s", err, string(out))
	}
	if !strings.HasPrefix(string(out), "ghasexport dev\n") {
		t.Fatalf("unexpected version output: %s", string(out))
	}
}
