// Package discovery publishes the bridge's connection descriptor and env
// script under the shared temp directory, and reaps descriptors left
// behind by dead bridge processes.
package discovery

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// Env vars exported to the client through the env script.
const (
	EnvServerPort    = "GEMINI_CLI_IDE_SERVER_PORT"
	EnvWorkspacePath = "GEMINI_CLI_IDE_WORKSPACE_PATH"
	EnvAuthToken     = "GEMINI_CLI_IDE_AUTH_TOKEN"
	EnvEditorFlag    = "GEMINI_CLI_IDE"

	editorFlagValue = "nvim"
)

// IdeInfo identifies the editor behind a descriptor.
type IdeInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
}

// PortDescriptor is the JSON advertisement a client reads to find a
// running bridge.
type PortDescriptor struct {
	Port          int      `json:"port"`
	WorkspacePath string   `json:"workspacePath"`
	AuthToken     string   `json:"authToken"`
	IdeInfo       *IdeInfo `json:"ideInfo,omitempty"`
}

// Dir returns the shared discovery directory.
func Dir() string {
	return filepath.Join(os.TempDir(), "gemini", "ide")
}

// Publisher writes and removes this process's descriptor and env script.
type Publisher struct {
	dir string
	pid int

	descriptorPath string
	envPath        string
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithDir overrides the discovery directory (tests).
func WithDir(dir string) Option {
	return func(p *Publisher) { p.dir = dir }
}

// WithPID overrides the owning pid (tests).
func WithPID(pid int) Option {
	return func(p *Publisher) { p.pid = pid }
}

// NewPublisher creates a publisher for the current process.
func NewPublisher(opts ...Option) *Publisher {
	p := &Publisher{
		dir: Dir(),
		pid: os.Getpid(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DescriptorPath returns the path of the published descriptor, empty
// before Publish.
func (p *Publisher) DescriptorPath() string { return p.descriptorPath }

// EnvPath returns the path of the published env script, empty before
// Publish.
func (p *Publisher) EnvPath() string { return p.envPath }

// Publish writes the descriptor and env script for a bound port, then
// kicks off a stale-file reap in the background. Reap failure is logged,
// never fatal.
func (p *Publisher) Publish(port int, workspacePath, authToken string) error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("creating discovery directory: %w", err)
	}

	descriptor := PortDescriptor{
		Port:          port,
		WorkspacePath: workspacePath,
		AuthToken:     authToken,
		IdeInfo:       &IdeInfo{Name: "neovim", DisplayName: "Neovim"},
	}
	data, err := json.Marshal(descriptor)
	if err != nil {
		return fmt.Errorf("encoding descriptor: %w", err)
	}

	descriptorPath := filepath.Join(p.dir,
		fmt.Sprintf("gemini-ide-server-%d-%d.json", p.pid, port))
	if err := writePrivate(descriptorPath, data); err != nil {
		return fmt.Errorf("writing descriptor: %w", err)
	}
	p.descriptorPath = descriptorPath

	envPath := filepath.Join(p.dir, fmt.Sprintf("nvim-env-%d.sh", p.pid))
	if err := writePrivate(envPath, []byte(envScript(port, workspacePath, authToken))); err != nil {
		// Descriptor and env script are published together or not at all.
		_ = os.Remove(descriptorPath)
		p.descriptorPath = ""
		return fmt.Errorf("writing env script: %w", err)
	}
	p.envPath = envPath

	go func() {
		if err := Reap(p.dir); err != nil {
			log.Printf("reaper: %v", err)
		}
	}()
	return nil
}

// Stop removes the files written by this process. Safe to call more than
// once; unlink failures are logged and swallowed.
func (p *Publisher) Stop() {
	for _, path := range []string{p.descriptorPath, p.envPath} {
		if path == "" {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			log.Printf("discovery: removing %s: %v", path, err)
		}
	}
	p.descriptorPath = ""
	p.envPath = ""
}

// writePrivate writes a file and pins it to 0600. WriteFile's mode is
// subject to umask, so the chmod is explicit.
func writePrivate(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0600); err != nil {
		return err
	}
	return os.Chmod(path, 0600)
}

func envScript(port int, workspacePath, authToken string) string {
	return fmt.Sprintf(
		"export %s=%d\nexport %s='%s'\nexport %s='%s'\nexport %s='%s'\n",
		EnvServerPort, port,
		EnvWorkspacePath, workspacePath,
		EnvAuthToken, authToken,
		EnvEditorFlag, editorFlagValue,
	)
}
