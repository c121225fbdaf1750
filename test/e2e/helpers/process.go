//go:build e2e

package helpers

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"
)

// Process manages an xdrproxy subprocess (proxy or demo target).
type Process struct {
	name          string
	cmd           *exec.Cmd
	logFile       string
	logFileHandle *os.File
	process       *os.Process
}

// StartTarget runs `xdrproxy target` on a free loopback port and waits
// until it accepts TCP connections.
func StartTarget(t *testing.T) (*Process, int) {
	t.Helper()

	port := FindFreePort(t)
	p := startProcess(t, "target", "target", "--listen", "127.0.0.1:"+strconv.Itoa(port))

	if err := waitTCP(fmt.Sprintf("127.0.0.1:%d", port), 5*time.Second); err != nil {
		p.DumpLogs(t)
		p.ForceKill()
		t.Fatalf("Target failed to start: %v", err)
	}
	return p, port
}

// ProxyProcess is a running `xdrproxy start`.
type ProxyProcess struct {
	*Process
	port        int
	metricsPort int
	configFile  string
}

// StartProxy writes a test configuration with extra YAML appended and runs
// `xdrproxy start` against it. It polls /health until the server answers.
func StartProxy(t *testing.T, extra string) *ProxyProcess {
	t.Helper()

	stateDir := t.TempDir()
	port := FindFreePort(t)
	metricsPort := FindFreePort(t)

	configContent := fmt.Sprintf(`# Test configuration generated by e2e test
logging:
  level: DEBUG
  format: text
  output: stdout

shutdown_timeout: 5s

metrics:
  enabled: true
  port: %d

server:
  address: 127.0.0.1
  port: %d
%s`, metricsPort, port, extra)

	configFile := filepath.Join(stateDir, "config.yaml")
	if err := os.WriteFile(configFile, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	p := &ProxyProcess{
		Process:     startProcess(t, "proxy", "start", "--config", configFile),
		port:        port,
		metricsPort: metricsPort,
		configFile:  configFile,
	}

	if err := p.WaitReady(5 * time.Second); err != nil {
		p.DumpLogs(t)
		p.ForceKill()
		t.Fatalf("Proxy failed to become ready: %v", err)
	}
	return p
}

// WaitReady polls /health until the server answers 200 or timeout.
func (p *ProxyProcess) WaitReady(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	client := &http.Client{Timeout: 500 * time.Millisecond}
	url := p.BaseURL() + "/health"

	var lastErr error
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err != nil {
			lastErr = err
			time.Sleep(100 * time.Millisecond)
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
		lastErr = fmt.Errorf("health check returned %d", resp.StatusCode)
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("proxy not healthy after %v: %w", timeout, lastErr)
}

// BaseURL returns http://127.0.0.1:<port>.
func (p *ProxyProcess) BaseURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", p.port)
}

// XMLRPCURL returns the XML-RPC endpoint.
func (p *ProxyProcess) XMLRPCURL() string {
	return p.BaseURL() + "/xlater"
}

// MetricsURL returns the Prometheus scrape endpoint.
func (p *ProxyProcess) MetricsURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d/metrics", p.metricsPort)
}

// ConfigFile returns the generated config path.
func (p *ProxyProcess) ConfigFile() string {
	return p.configFile
}

func startProcess(t *testing.T, name string, args ...string) *Process {
	t.Helper()

	logFile := filepath.Join(t.TempDir(), name+".log")
	logFileHandle, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatalf("Failed to create log file: %v", err)
	}

	cmd := exec.Command(FindBinary(t), args...)
	cmd.Stdout = logFileHandle
	cmd.Stderr = logFileHandle

	if err := cmd.Start(); err != nil {
		_ = logFileHandle.Close()
		t.Fatalf("Failed to start %s: %v", name, err)
	}

	p := &Process{
		name:          name,
		cmd:           cmd,
		logFile:       logFile,
		logFileHandle: logFileHandle,
		process:       cmd.Process,
	}
	t.Cleanup(p.ForceKill)
	return p
}

// SendSignal sends a signal to the process.
func (p *Process) SendSignal(sig syscall.Signal) error {
	if p.process == nil {
		return fmt.Errorf("no process to signal")
	}
	return p.process.Signal(sig)
}

// StopGracefully sends SIGTERM and waits for a clean exit.
func (p *Process) StopGracefully() error {
	if err := p.SendSignal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("failed to send SIGTERM: %w", err)
	}

	done := make(chan error, 1)
	go func() { done <- p.cmd.Wait() }()

	select {
	case err := <-done:
		p.process = nil
		return err
	case <-time.After(10 * time.Second):
		return fmt.Errorf("%s did not exit within 10s", p.name)
	}
}

// ForceKill terminates the process, trying SIGTERM before SIGKILL.
func (p *Process) ForceKill() {
	if p.process == nil {
		return
	}

	_ = p.process.Signal(syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		_, _ = p.process.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		_ = p.process.Kill()
		<-done
	}
	p.process = nil

	if p.logFileHandle != nil {
		_ = p.logFileHandle.Close()
		p.logFileHandle = nil
	}
}

// Logs returns the captured stdout and stderr.
func (p *Process) Logs() string {
	content, _ := os.ReadFile(p.logFile)
	return string(content)
}

// DumpLogs writes the captured output to the test log.
func (p *Process) DumpLogs(t *testing.T) {
	t.Helper()
	t.Logf("%s logs:\n%s", p.name, p.Logs())
}

func waitTCP(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 200*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			return nil
		}
		lastErr = err
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("%s not accepting connections after %v: %w", addr, timeout, lastErr)
}
