package launcher

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// neverPID is above the default Linux pid_max, so no process can own it.
const neverPID = 4194305

func TestPIDFile_WriteReadRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run", "api.pid")
	pf := NewPIDFile(path)

	if err := pf.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	pid, err := pf.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if want := os.Getpid(); pid != want {
		t.Fatalf("pid: got %d, want %d", pid, want)
	}

	if err := pf.Remove(); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := pf.Read(); !errors.Is(err, ErrNoPIDFile) {
		t.Fatalf("Read after remove: got %v, want ErrNoPIDFile", err)
	}
	// Removing twice is fine.
	if err := pf.Remove(); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestPIDFile_ReadMissing(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "api.pid"))

	if _, err := pf.Read(); !errors.Is(err, ErrNoPIDFile) {
		t.Fatalf("Read missing: got %v, want ErrNoPIDFile", err)
	}
}

func TestPIDFile_ReadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.pid")
	if err := os.WriteFile(path, []byte("not-a-pid"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	_, err := NewPIDFile(path).Read()
	if err == nil || !strings.Contains(err.Error(), "invalid pid") {
		t.Fatalf("Read invalid: got %v, want invalid pid error", err)
	}
}

func TestPIDFile_ReadTrimsNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.pid")
	if err := os.WriteFile(path, []byte("123\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	pid, err := NewPIDFile(path).Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if pid != 123 {
		t.Fatalf("pid: got %d, want 123", pid)
	}
}

func TestPIDFile_Alive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.pid")
	pf := NewPIDFile(path)

	if pf.Alive() {
		t.Fatal("missing pid file must not be alive")
	}

	if err := pf.Write(); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if !pf.Alive() {
		t.Fatal("own process should be alive")
	}

	if err := os.WriteFile(path, []byte("4194305"), 0o644); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if pf.Alive() {
		t.Fatal("nonexistent pid must not be alive")
	}
}

func TestPIDFile_SignalMissingFile(t *testing.T) {
	pf := NewPIDFile(filepath.Join(t.TempDir(), "api.pid"))

	if err := pf.Signal(0); !errors.Is(err, ErrNoPIDFile) {
		t.Fatalf("Signal: got %v, want ErrNoPIDFile", err)
	}
}

func TestProcessAlive(t *testing.T) {
	tests := []struct {
		name string
		pid  int
		want bool
	}{
		{name: "self", pid: os.Getpid(), want: true},
		{name: "zero", pid: 0, want: false},
		{name: "negative", pid: -5, want: false},
		{name: "beyond_pid_max", pid: neverPID, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProcessAlive(tt.pid); got != tt.want {
				t.Fatalf("ProcessAlive(%d): got %v, want %v", tt.pid, got, tt.want)
			}
		})
	}
}
