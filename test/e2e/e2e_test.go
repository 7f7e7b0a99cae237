package e2e

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"syscall"
	"testing"
	"time"
)

var (
	workspacefsBin string
	projRoot       string
	testEnv        *E2ETestEnvironment
)

func TestMain(m *testing.M) {
	var err error

	// Build the binary once for all tests
	tmpBinDir, err := os.MkdirTemp("", "workspacefs-bin")
	if err != nil {
		panic(err)
	}
	defer func() {
		if err := os.RemoveAll(tmpBinDir); err != nil {
			panic(err)
		}
	}()

	workspacefsBin = filepath.Join(tmpBinDir, "workspacefs")

	// Determine project root
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		panic("cannot determine current file path")
	}
	projRoot = filepath.Join(filepath.Dir(thisFile), "..", "..")

	cmd := exec.Command("go", "build", "-o", workspacefsBin, "./cmd")
	cmd.Dir = projRoot
	if out, err := cmd.CombinedOutput(); err != nil {
		panic(string(out))
	}

	testEnv, err = NewE2ETestEnvironment(workspacefsBin)
	if err != nil {
		panic(err)
	}
	defer testEnv.Close()

	// Run tests
	code := m.Run()
	os.Exit(code)
}

func TestE2EValidate(t *testing.T) {
	root := testEnv.NewTree(t, NewTree().WithFile("ws/a.txt", "a").WithDir("ws/src"))

	res := testEnv.Run(t, root, "", "validate", "/ws", "b.txt")
	if res.Code != 0 || strings.TrimSpace(res.Stdout) != "ok" {
		t.Fatalf("expected valid name, got code %d stdout %q stderr %q", res.Code, res.Stdout, res.Stderr)
	}

	res = testEnv.Run(t, root, "", "validate", "/ws", "a.txt")
	if res.Code != 1 {
		t.Fatalf("expected exit code 1, got %d", res.Code)
	}
	if !strings.Contains(res.Stdout, "already exists") {
		t.Fatalf("expected exists message, got %q", res.Stdout)
	}

	res = testEnv.Run(t, root, "", "validate", "/ws", "src/x.go", "--nested")
	if res.Code != 0 {
		t.Fatalf("expected nested name to be valid, got %q", res.Stdout)
	}
}

func TestE2ENewFileAndDuplicate(t *testing.T) {
	root := testEnv.NewTree(t, NewTree().WithFile("ws/a.txt", "hello"))

	res := testEnv.Run(t, root, "", "-w", "/ws", "exec", "file.newFile", "/ws", "--param", "name=docs/readme.md")
	if res.Code != 0 {
		t.Fatalf("new file failed: %s", res.Stderr)
	}
	if _, err := os.Stat(filepath.Join(root, "ws", "docs", "readme.md")); err != nil {
		t.Fatalf("new file missing: %v", err)
	}

	res = testEnv.Run(t, root, "", "-w", "/ws", "exec", "file.duplicate", "/ws/a.txt", "/ws/docs")
	if res.Code != 0 {
		t.Fatalf("duplicate failed: %s", res.Stderr)
	}
	data, err := os.ReadFile(filepath.Join(root, "ws", "a copy.txt"))
	if err != nil {
		t.Fatalf("failed to read copy: %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("copy content mismatch: got %q", string(data))
	}
	if _, err := os.Stat(filepath.Join(root, "ws", "docs copy", "readme.md")); err != nil {
		t.Fatalf("folder copy missing: %v", err)
	}
}

func TestE2EDeleteConfirmation(t *testing.T) {
	root := testEnv.NewTree(t, NewTree().WithFile("ws/a.txt", "a").WithFile("ws/b.txt", "b"))

	res := testEnv.Run(t, root, "no\n", "-w", "/ws", "exec", "file.delete", "/ws/a.txt", "/ws/b.txt")
	if res.Code != 0 {
		t.Fatalf("delete failed: %s", res.Stderr)
	}
	if !strings.Contains(res.Stdout, "following 2 files") {
		t.Fatalf("expected confirmation listing, got %q", res.Stdout)
	}
	if _, err := os.Stat(filepath.Join(root, "ws", "a.txt")); err != nil {
		t.Fatalf("declined delete removed the file: %v", err)
	}

	res = testEnv.Run(t, root, "y\n", "-w", "/ws", "exec", "file.delete", "/ws/a.txt", "/ws/b.txt")
	if res.Code != 0 {
		t.Fatalf("delete failed: %s", res.Stderr)
	}
	entries, err := os.ReadDir(filepath.Join(root, "ws"))
	if err != nil {
		t.Fatalf("failed to read workspace: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty workspace, got %d entries", len(entries))
	}
}

func TestE2EWorkspaceFile(t *testing.T) {
	root := testEnv.NewTree(t, NewTree().
		WithDir("p/a").
		WithDir("p/b").
		WithFile("p/.theia-workspace", `{"folders":[{"path":"a"}]}`))

	res := testEnv.Run(t, root, "", "-w", "/p", "exec", "workspace.addFolder", "--param", "folder=/p/b")
	if res.Code != 0 {
		t.Fatalf("add folder failed: %s", res.Stderr)
	}

	res = testEnv.Run(t, root, "", "-w", "/p", "roots", "list")
	if got := strings.Fields(res.Stdout); len(got) != 2 || got[0] != "/p/a" || got[1] != "/p/b" {
		t.Fatalf("unexpected roots %q", res.Stdout)
	}

	res = testEnv.Run(t, root, "", "-w", "/p", "-y", "exec", "workspace.removeFolder", "/p/a", "/p/b")
	if res.Code != 0 {
		t.Fatalf("remove folders failed: %s", res.Stderr)
	}
	data, err := os.ReadFile(filepath.Join(root, "p", ".theia-workspace"))
	if err != nil {
		t.Fatalf("failed to read workspace file: %v", err)
	}
	if !strings.Contains(string(data), `"folders":[]`) {
		t.Fatalf("expected no folders, got %s", data)
	}
	if _, err := os.Stat(filepath.Join(root, "p", "a")); err != nil {
		t.Fatalf("removing a root deleted the folder: %v", err)
	}
}

func TestE2EScript(t *testing.T) {
	root := testEnv.NewTree(t, NewTree().WithDir("ws"))
	script := filepath.Join(root, "script.json")
	if err := os.WriteFile(script, []byte(`{"invocations":[
		{"command":"file.newFolder","params":{"name":"src"}},
		{"command":"file.newFile","selection":["/ws/src"],"params":{"name":"main.go"}},
		{"command":"file.rename","selection":["/ws/src/main.go"],"params":{"name":"app.go"}},
		{"command":"file.rename","selection":["/ws/src/app.go"],"params":{"name":"bad/name"}}
	]}`), 0o644); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}

	res := testEnv.Run(t, root, "", "-w", "/ws", "run", script)
	if res.Code != 1 {
		t.Fatalf("expected the last step to fail, got code %d", res.Code)
	}
	if !strings.Contains(res.Stderr, "step 4") {
		t.Fatalf("expected failing step in error, got %q", res.Stderr)
	}
	if _, err := os.Stat(filepath.Join(root, "ws", "src", "app.go")); err != nil {
		t.Fatalf("earlier steps were not applied: %v", err)
	}
}

func TestE2EWatch(t *testing.T) {
	root := testEnv.NewTree(t, NewTree().WithDir("ws"))

	proc := testEnv.Start(t, root, "-w", "/ws", "watch")
	defer proc.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for i := 0; !strings.Contains(proc.Stdout(), "created /ws/f"); i++ {
		if time.Now().After(deadline) {
			t.Fatalf("no change reported; stdout %q stderr %q", proc.Stdout(), proc.Stderr())
		}
		// The watch may not be in place yet; keep producing changes
		name := filepath.Join(root, "ws", fmt.Sprintf("f%d.txt", i))
		if err := os.WriteFile(name, nil, 0o644); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		time.Sleep(100 * time.Millisecond)
	}

	if err := proc.Stop(); err != nil {
		t.Fatalf("watch did not exit cleanly: %v; stderr %q", err, proc.Stderr())
	}
}

// E2ETestEnvironment manages shared resources for all e2e tests
type E2ETestEnvironment struct {
	Bin     string
	BaseDir string
}

// TreeBuilder provides a fluent API for laying out host directory trees
type TreeBuilder struct {
	dirs  []string
	files map[string]string
}

// RunResult is the outcome of one finished CLI invocation
type RunResult struct {
	Code   int
	Stdout string
	Stderr string
}

// Instance represents a running workspacefs process for testing
type Instance struct {
	cmd     *exec.Cmd
	stdout  *syncBuffer
	stderr  *syncBuffer
	stopped bool
}

// syncBuffer is a bytes.Buffer safe to read while the process writes
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func NewTree() *TreeBuilder {
	return &TreeBuilder{files: map[string]string{}}
}

// WithDir adds a directory and its parents
func (b *TreeBuilder) WithDir(rel string) *TreeBuilder {
	b.dirs = append(b.dirs, rel)
	return b
}

// WithFile adds a file with content; parents are created as needed
func (b *TreeBuilder) WithFile(rel, content string) *TreeBuilder {
	b.files[rel] = content
	return b
}

// NewE2ETestEnvironment creates a shared test environment
func NewE2ETestEnvironment(bin string) (*E2ETestEnvironment, error) {
	baseDir, err := os.MkdirTemp("", "workspacefs-e2e-tests")
	if err != nil {
		return nil, err
	}
	return &E2ETestEnvironment{Bin: bin, BaseDir: baseDir}, nil
}

// Close cleans up the test environment
func (env *E2ETestEnvironment) Close() {
	if env.BaseDir != "" {
		_ = os.RemoveAll(env.BaseDir) // Best effort cleanup
	}
}

// NewTree materializes tree in a fresh directory and returns its path
func (env *E2ETestEnvironment) NewTree(t *testing.T, tree *TreeBuilder) string {
	t.Helper()
	root, err := os.MkdirTemp(env.BaseDir, "tree-")
	if err != nil {
		t.Fatalf("failed to create tree root: %v", err)
	}
	for _, d := range tree.dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			t.Fatalf("failed to create dir %s: %v", d, err)
		}
	}
	for rel, content := range tree.files {
		p := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatalf("failed to create dir for %s: %v", rel, err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", rel, err)
		}
	}
	return root
}

func (env *E2ETestEnvironment) command(root string, args ...string) *exec.Cmd {
	cmd := exec.Command(env.Bin, append([]string{"--root", root, "-v", "2"}, args...)...)
	// Keep .env lookups and inherited defaults out of the run
	cmd.Dir = root
	cmd.Env = append(os.Environ(),
		"WORKSPACEFS_CONFIG=", "WORKSPACEFS_WORKSPACE=", "WORKSPACEFS_BACKEND=",
		"WORKSPACEFS_ROOT=", "WORKSPACEFS_VERBOSE=")
	return cmd
}

// Run executes the CLI against the host tree at root and waits for it
func (env *E2ETestEnvironment) Run(t *testing.T, root, stdin string, args ...string) RunResult {
	t.Helper()
	cmd := env.command(root, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdin = strings.NewReader(stdin)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{Stdout: stdout.String(), Stderr: stderr.String()}
	var exitErr *exec.ExitError
	switch {
	case err == nil:
	case errors.As(err, &exitErr):
		res.Code = exitErr.ExitCode()
	default:
		t.Fatalf("failed to run %v: %v", args, err)
	}
	return res
}

// Start launches a long running CLI command
func (env *E2ETestEnvironment) Start(t *testing.T, root string, args ...string) *Instance {
	t.Helper()
	cmd := env.command(root, args...)
	inst := &Instance{cmd: cmd, stdout: &syncBuffer{}, stderr: &syncBuffer{}}
	cmd.Stdout = inst.stdout
	cmd.Stderr = inst.stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start %v: %v", args, err)
	}
	return inst
}

func (i *Instance) Stdout() string { return i.stdout.String() }
func (i *Instance) Stderr() string { return i.stderr.String() }

// Stop interrupts the process and waits for it to exit
func (i *Instance) Stop() error {
	if i.stopped {
		return nil
	}
	i.stopped = true
	if err := i.cmd.Process.Signal(syscall.SIGINT); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() { done <- i.cmd.Wait() }()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		_ = i.cmd.Process.Kill()
		return fmt.Errorf("timed out waiting for exit")
	}
}
