//go:build unix

package process

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestStartDetachedInterruptAndWait(t *testing.T) {
	t.Parallel()

	d, err := StartDetached(Spec{Binary: "sleep", Args: []string{"30"}})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !Alive(d.PID) {
		t.Fatalf("expected process to be alive")
	}
	if err := Interrupt(d.PID); err != nil {
		t.Fatalf("interrupt failed: %v", err)
	}
	if !WaitExit(context.Background(), d.PID, 2*time.Second) {
		t.Fatalf("process did not exit after interrupt")
	}
	select {
	case <-d.Exited():
	case <-time.After(2 * time.Second):
		t.Fatalf("wait goroutine did not finish")
	}
}

func TestStartDetachedWritesLogAndEnv(t *testing.T) {
	t.Parallel()

	logFile := filepath.Join(t.TempDir(), "child.log")
	d, err := StartDetached(Spec{
		Binary:  "sh",
		Args:    []string{"-c", `echo "value=$PROBE_VALUE"`},
		Env:     []string{"PROBE_VALUE=42"},
		LogFile: logFile,
	})
	if err != nil {
		t.Fatalf("start failed: %v", err)
	}
	<-d.Exited()

	contents, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log failed: %v", err)
	}
	if !strings.Contains(string(contents), "value=42") {
		t.Fatalf("unexpected log contents: %q", contents)
	}
}

func TestAliveRejectsInvalidPID(t *testing.T) {
	t.Parallel()

	if Alive(0) || Alive(-5) {
		t.Fatalf("non-positive pids are never alive")
	}
	if err := Terminate(0); err == nil {
		t.Fatalf("expected error for invalid pid")
	}
}

func TestStartDetachedMissingBinary(t *testing.T) {
	t.Parallel()

	if _, err := StartDetached(Spec{Binary: filepath.Join(t.TempDir(), "missing")}); err == nil {
		t.Fatalf("expected start error")
	}
}
