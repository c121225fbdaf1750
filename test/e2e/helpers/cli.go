//go:build e2e

package helpers

import (
	"bytes"
	"fmt"
	"os/exec"
	"testing"
)

// CLIRunner executes xdrproxy client commands against one proxy.
type CLIRunner struct {
	url    string
	binary string
}

// NewCLIRunner creates a runner posting to the given XML-RPC URL.
func NewCLIRunner(t *testing.T, url string) *CLIRunner {
	t.Helper()
	return &CLIRunner{url: url, binary: FindBinary(t)}
}

// Run executes `xdrproxy <command> --url <url> args...` and returns stdout.
// On failure the error includes stderr.
func (r *CLIRunner) Run(command string, args ...string) ([]byte, error) {
	full := append([]string{command, "--url", r.url}, args...)
	cmd := exec.Command(r.binary, full...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return stdout.Bytes(), fmt.Errorf("xdrproxy %v: %w\nstderr: %s", full, err, stderr.String())
	}
	return stdout.Bytes(), nil
}
