package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gemini-nvim/ide-companion/internal/config"
	"github.com/gemini-nvim/ide-companion/internal/discovery"
	"github.com/gemini-nvim/ide-companion/internal/editor"
	"github.com/gemini-nvim/ide-companion/internal/ide"
	"github.com/gemini-nvim/ide-companion/internal/server"
	"github.com/gemini-nvim/ide-companion/internal/util"
)

var runCmd = &cobra.Command{
	Use:     "run",
	GroupID: GroupBridge,
	Short:   "Run the bridge in the foreground",
	Long: `Run the bridge for the current Neovim instance.

Attaches to the Neovim RPC socket (from --socket, $NVIM, or
$NVIM_LISTEN_ADDRESS), binds an MCP endpoint on an ephemeral localhost
port, and publishes a discovery file so the Gemini CLI can find it.

The bridge runs until it receives SIGINT/SIGTERM or the editor
connection closes.

Examples:
  gemini-companion run
  gemini-companion run --socket /tmp/nvim.sock --debug`,
	RunE: runBridge,
}

var (
	runSocket     string
	runConfigPath string
	runWorkspace  string
	runDebug      bool
)

func init() {
	runCmd.Flags().StringVar(&runSocket, "socket", "", "Neovim RPC socket (default $NVIM)")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Config file path")
	runCmd.Flags().StringVar(&runWorkspace, "workspace", "", "Workspace path advertised to clients")
	runCmd.Flags().BoolVar(&runDebug, "debug", false, "Verbose event logging")

	rootCmd.AddCommand(runCmd)
}

func runBridge(cmd *cobra.Command, args []string) error {
	log.SetPrefix("[gemini-companion] ")

	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return err
	}
	if runDebug {
		cfg.Debug = true
	}

	socket := resolveSocket(runSocket)
	if socket == "" {
		return fmt.Errorf("no Neovim socket found: pass --socket or run inside Neovim ($NVIM)")
	}

	workspacePath, err := resolveWorkspace(runWorkspace, cfg)
	if err != nil {
		return err
	}

	ed, err := editor.Attach(socket)
	if err != nil {
		return fmt.Errorf("attaching to Neovim at %s: %w", socket, err)
	}
	defer ed.Close()
	ed.SetDebug(cfg.Debug)

	agg := ide.New(ide.WithDebounce(cfg.Debounce()))
	defer agg.Close()

	srv := server.New(agg, ed, Version)

	dispose := agg.Subscribe(srv.BroadcastContext)
	defer dispose()

	if err := ed.Start(agg, srv.Diffs()); err != nil {
		return fmt.Errorf("starting editor event loop: %w", err)
	}

	if err := srv.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	pub := discovery.NewPublisher(publisherOptions()...)
	if err := pub.Publish(srv.Port(), workspacePath, srv.Token()); err != nil {
		shutdownServer(srv)
		return fmt.Errorf("publishing discovery files: %w", err)
	}
	// Stop is idempotent; the defer covers error paths out of this
	// function so the discovery files never outlive the bridge.
	defer pub.Stop()

	log.Printf("bridge: listening on 127.0.0.1:%d (workspace %s)", srv.Port(), workspacePath)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case s := <-sig:
		log.Printf("bridge: received %s, shutting down", s)
	case err := <-ed.Done():
		if err != nil {
			log.Printf("bridge: editor connection closed: %v", err)
		} else {
			log.Printf("bridge: editor connection closed")
		}
	}

	pub.Stop()
	shutdownServer(srv)
	return nil
}

// resolveSocket picks the Neovim socket from the flag or the
// environment. $NVIM is what modern Neovim exports to child processes;
// NVIM_LISTEN_ADDRESS is the pre-0.8 spelling.
func resolveSocket(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv("NVIM"); v != "" {
		return v
	}
	return os.Getenv("NVIM_LISTEN_ADDRESS")
}

// publisherOptions keys the discovery files to the editor's pid when the
// plugin passes it, so staleness tracks the editor rather than the
// bridge process.
func publisherOptions() []discovery.Option {
	v := os.Getenv("GEMINI_BRIDGE_EDITOR_PID")
	if v == "" {
		return nil
	}
	pid, err := strconv.Atoi(v)
	if err != nil || pid <= 0 {
		log.Printf("bridge: ignoring bad GEMINI_BRIDGE_EDITOR_PID %q", v)
		return nil
	}
	return []discovery.Option{discovery.WithPID(pid)}
}

func resolveWorkspace(flagValue string, cfg *config.Config) (string, error) {
	path := flagValue
	if path == "" {
		path = cfg.WorkspacePath
	}
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("resolving workspace: %w", err)
		}
		path = cwd
	}
	norm, ok := util.NormalizeAbsPath(path)
	if !ok {
		return "", fmt.Errorf("workspace path must be absolute: %s", path)
	}
	return norm, nil
}

func shutdownServer(srv *server.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("bridge: shutdown: %v", err)
	}
}
