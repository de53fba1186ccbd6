package main

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"
)

func hostOf(addr string) string {
	host, _, _ := net.SplitHostPort(addr)
	return host
}

func portOf(addr string) string {
	_, port, _ := net.SplitHostPort(addr)
	return port
}

// captureRun runs the CLI with args against a fresh temp working directory
// (so config discovery never picks up a real keyz.toml) and returns its
// exit code, stdout, and stderr.
func captureRun(t *testing.T, args []string, stdinContent string) (code int, stdout, stderr string) {
	t.Helper()

	dir := t.TempDir()
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevWD) })

	stdinPath := filepath.Join(dir, "stdin")
	if err := os.WriteFile(stdinPath, []byte(stdinContent), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	stdinFile, err := os.Open(stdinPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer stdinFile.Close()

	stdoutPath := filepath.Join(dir, "stdout")
	stdoutFile, err := os.Create(stdoutPath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer stdoutFile.Close()

	stderrPath := filepath.Join(dir, "stderr")
	stderrFile, err := os.Create(stderrPath)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer stderrFile.Close()

	code = run(args, stdinFile, stdoutFile, stderrFile)

	outBytes, _ := os.ReadFile(stdoutPath)
	errBytes, _ := os.ReadFile(stderrPath)
	return code, string(outBytes), string(errBytes)
}

func TestConfigInitThenShow(t *testing.T) {
	code, stdout, stderr := captureRun(t, []string{"config", "init"}, "")
	if code != 0 {
		t.Fatalf("config init failed: code=%d stderr=%q", code, stderr)
	}
	if !bytes.Contains([]byte(stdout), []byte("wrote keyz.toml")) {
		t.Fatalf("unexpected stdout: %q", stdout)
	}

	// captureRun leaves the working directory in the init run's temp dir
	// until the test ends, so the generated file can be passed explicitly.
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	code, stdout, stderr = captureRun(t, []string{"-config", filepath.Join(wd, "keyz.toml"), "config", "show"}, "")
	if code != 0 {
		t.Fatalf("config show failed: code=%d stderr=%q", code, stderr)
	}
	if !bytes.Contains([]byte(stdout), []byte("server.port = 7667")) {
		t.Fatalf("unexpected stdout: %q", stdout)
	}
}

func TestConfigInitRefusesToOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyz.toml")
	if err := os.WriteFile(path, []byte("existing"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := runConfigInit(path, false); err == nil {
		t.Fatal("expected an error when the file already exists")
	}

	if err := runConfigInit(path, true); err != nil {
		t.Fatalf("runConfigInit with force=true should overwrite: %v", err)
	}
}

func TestCommandsSubcommand(t *testing.T) {
	code, stdout, _ := captureRun(t, []string{"commands"}, "")
	if code != 0 {
		t.Fatalf("commands failed: code=%d", code)
	}
	if !bytes.Contains([]byte(stdout), []byte("SET <key>")) {
		t.Fatalf("expected SET grammar in output, got %q", stdout)
	}
}

func TestExecAgainstLiveServer(t *testing.T) {
	addr, protoCfg := startTestServer(t)

	code, stdout, stderr := captureRun(t, []string{
		"-host", hostOf(addr), "-port", portOf(addr),
		"exec", "SET", "k", "v",
	}, "")
	_ = protoCfg
	if code != 0 {
		t.Fatalf("exec failed: code=%d stderr=%q", code, stderr)
	}
	if stdout != "ok\n" {
		t.Fatalf("got %q, want %q", stdout, "ok\n")
	}
}
