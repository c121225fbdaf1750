//go:build e2e

package helpers

import (
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
)

var (
	binaryOnce sync.Once
	binaryPath string
	binaryErr  error
	binaryOut  []byte
)

// FindBinary locates the xdrproxy binary, building it into the project root
// if it is neither on PATH nor already built.
func FindBinary(t *testing.T) string {
	t.Helper()

	binaryOnce.Do(func() {
		if path, err := exec.LookPath("xdrproxy"); err == nil {
			binaryPath = path
			return
		}

		projectRoot := findProjectRoot()
		local := filepath.Join(projectRoot, "xdrproxy")
		if _, err := os.Stat(local); err == nil {
			binaryPath = local
			return
		}

		t.Log("Building xdrproxy binary...")
		cmd := exec.Command("go", "build", "-o", local, "./cmd/xdrproxy/")
		cmd.Dir = projectRoot
		binaryOut, binaryErr = cmd.CombinedOutput()
		binaryPath = local
	})

	if binaryErr != nil {
		t.Fatalf("Failed to build xdrproxy: %v\n%s", binaryErr, binaryOut)
	}
	return binaryPath
}

// FindFreePort finds an available TCP port by binding to :0 and reading the assigned port.
func FindFreePort(t *testing.T) int {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer func() { _ = listener.Close() }()

	return listener.Addr().(*net.TCPAddr).Port
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "."
		}
		dir = parent
	}
}
