// Package pluginloader launches constraint-plugin binaries as go-plugin
// subprocesses and adapts them into the Evaluator's ConstraintPlugin
// interface.
package pluginloader

import (
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/shiftforge/scheduler/internal/scheduling/application/services"
	schedplugin "github.com/shiftforge/scheduler/internal/scheduling/plugin"
)

// Loader launches and tracks constraint-plugin subprocesses so they can be
// killed cleanly on shutdown.
type Loader struct {
	logger  *slog.Logger
	clients []*hcplugin.Client
}

// NewLoader builds a Loader; a nil logger falls back to slog.Default.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// LoadAll launches one subprocess per configured binary path and returns
// the adapted ConstraintPlugin list in the same order. A single failing
// path aborts the whole load and kills any subprocesses already started.
func (l *Loader) LoadAll(paths []string) ([]services.ConstraintPlugin, error) {
	plugins := make([]services.ConstraintPlugin, 0, len(paths))
	for _, path := range paths {
		p, err := l.Load(path)
		if err != nil {
			l.Close()
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

// Load launches a single constraint-plugin binary and returns it adapted
// to the Evaluator's ConstraintPlugin interface.
func (l *Loader) Load(path string) (services.ConstraintPlugin, error) {
	sanitized, err := validateBinaryPath(path)
	if err != nil {
		return nil, fmt.Errorf("constraint plugin %q: %w", path, err)
	}
	info, err := os.Stat(sanitized)
	if err != nil {
		return nil, fmt.Errorf("constraint plugin %q: binary not found: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("constraint plugin %q: not a regular file", path)
	}

	// #nosec G204 -- sanitized by validateBinaryPath above
	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig:  schedplugin.HandshakeConfig,
		Plugins:          schedplugin.PluginMap,
		Cmd:              exec.Command(sanitized),
		Logger:           newHclogAdapter(l.logger),
		AllowedProtocols: []hcplugin.Protocol{hcplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("constraint plugin %q: connect failed: %w", path, err)
	}

	raw, err := rpcClient.Dispense("constraint")
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("constraint plugin %q: dispense failed: %w", path, err)
	}

	evaluator, ok := raw.(schedplugin.ConstraintEvaluator)
	if !ok {
		client.Kill()
		return nil, fmt.Errorf("constraint plugin %q: does not implement ConstraintEvaluator", path)
	}

	l.clients = append(l.clients, client)
	return &pluginAdapter{evaluator: evaluator}, nil
}

// Close kills every subprocess started by this Loader.
func (l *Loader) Close() {
	for _, c := range l.clients {
		c.Kill()
	}
	l.clients = nil
}

// validateBinaryPath rejects anything but a clean, absolute path with no
// shell metacharacters, since it ends up in an exec.Command argument list.
func validateBinaryPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("binary path cannot be empty")
	}
	clean := filepath.Clean(path)
	if !filepath.IsAbs(clean) {
		return "", fmt.Errorf("binary path must be absolute: %s", path)
	}
	const dangerous = ";&|$`(){}<>!\n\r\\'\""
	if strings.ContainsAny(clean, dangerous) {
		return "", fmt.Errorf("binary path contains a forbidden character: %s", path)
	}
	return clean, nil
}

// hclogAdapter bridges the host's slog.Logger to the hclog.Logger
// interface go-plugin's client requires.
type hclogAdapter struct {
	logger *slog.Logger
	name   string
}

func newHclogAdapter(logger *slog.Logger) *hclogAdapter {
	return &hclogAdapter{logger: logger, name: "shiftforge"}
}

func (h *hclogAdapter) Log(level hclog.Level, msg string, args ...interface{}) {
	switch level {
	case hclog.Warn:
		h.logger.Warn(msg, args...)
	case hclog.Error:
		h.logger.Error(msg, args...)
	case hclog.Info:
		h.logger.Info(msg, args...)
	default:
		h.logger.Debug(msg, args...)
	}
}

func (h *hclogAdapter) Trace(msg string, args ...interface{}) { h.logger.Debug(msg, args...) }
func (h *hclogAdapter) Debug(msg string, args ...interface{}) { h.logger.Debug(msg, args...) }
func (h *hclogAdapter) Info(msg string, args ...interface{})  { h.logger.Info(msg, args...) }
func (h *hclogAdapter) Warn(msg string, args ...interface{})  { h.logger.Warn(msg, args...) }
func (h *hclogAdapter) Error(msg string, args ...interface{}) { h.logger.Error(msg, args...) }

func (h *hclogAdapter) IsTrace() bool { return false }
func (h *hclogAdapter) IsDebug() bool { return true }
func (h *hclogAdapter) IsInfo() bool  { return true }
func (h *hclogAdapter) IsWarn() bool  { return true }
func (h *hclogAdapter) IsError() bool { return true }

func (h *hclogAdapter) ImpliedArgs() []interface{} { return nil }
func (h *hclogAdapter) With(...interface{}) hclog.Logger {
	return h
}
func (h *hclogAdapter) Name() string { return h.name }
func (h *hclogAdapter) Named(name string) hclog.Logger {
	return &hclogAdapter{logger: h.logger, name: h.name + "." + name}
}
func (h *hclogAdapter) ResetNamed(name string) hclog.Logger {
	return &hclogAdapter{logger: h.logger, name: name}
}
func (h *hclogAdapter) SetLevel(hclog.Level)    {}
func (h *hclogAdapter) GetLevel() hclog.Level   { return hclog.Debug }
func (h *hclogAdapter) StandardLogger(*hclog.StandardLoggerOptions) *stdlog.Logger {
	return stdlog.Default()
}
func (h *hclogAdapter) StandardWriter(*hclog.StandardLoggerOptions) io.Writer {
	return os.Stderr
}
