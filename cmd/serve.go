package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/joescharf/zenclock/internal/api"
	"github.com/joescharf/zenclock/internal/daemon"
	webui "github.com/joescharf/zenclock/internal/ui"
)

const (
	shutdownTimeout = 5 * time.Second
	startTimeout    = 5 * time.Second
	pollInterval    = 100 * time.Millisecond
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and event stream",
	Long: `Run the orchestrator behind an HTTP API with a server-sent event stream.

'zenclock serve' runs in the foreground until interrupted. Use
'zenclock serve start' to run it in the background and 'zenclock serve stop'
to stop it again. Changes to the config file are applied without a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveRun(cmd.Context())
	},
}

var serveStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the server in the background",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStartRun()
	},
}

var serveStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the background server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStopRun()
	},
}

var serveStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the background server is running",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveStatusRun()
	},
}

func init() {
	serveCmd.PersistentFlags().IntP("port", "p", 7420, "port to listen on")
	_ = viper.BindPFlag("port", serveCmd.PersistentFlags().Lookup("port"))

	serveCmd.AddCommand(serveStartCmd)
	serveCmd.AddCommand(serveStopCmd)
	serveCmd.AddCommand(serveStatusCmd)
	rootCmd.AddCommand(serveCmd)
}

// pidFile returns the state file of the background server.
func pidFile() *daemon.PIDFile {
	return daemon.NewPIDFile(filepath.Join(viper.GetString("state_dir"), "zenclock-serve.pid"))
}

// serveLogPath returns where a background server writes its logs.
func serveLogPath() string {
	return filepath.Join(viper.GetString("state_dir"), "zenclock-serve.log")
}

func serveRun(ctx context.Context) error {
	pf := pidFile()
	if info, running := pf.IsRunning(); running && info.PID != os.Getpid() {
		return fmt.Errorf("server already running (PID %d)", info.PID)
	}

	ctx, stop := signal.NotifyContext(ctx, shutdownSignals()...)
	defer stop()

	logger := newLogger(serverLogLevel())
	o, s, err := newOrchestrator(ctx, logger)
	if err != nil {
		return err
	}
	pruneHistory(ctx, s, logger)

	handler, err := serveHandler(api.NewServer(o, s, logger.With("component", "api")).Router())
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", viper.GetInt("port")))
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	addr := ln.Addr().String()

	if err := pf.Write(addr); err != nil {
		logger.Warn("failed to write PID file", "path", pf.Path, "error", err)
	}
	defer func() { _ = pf.Remove() }()

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		// Cancelling ctx ends open event streams so Shutdown can finish.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	watchConfig(ctx, o, s, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return o.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Info("server listening", "addr", addr, "pid", os.Getpid())
	ui.Success("Serving at %s", daemon.Info{Addr: addr}.BaseURL())

	return g.Wait()
}

// serveHandler routes /api/ to the API and everything else to the dashboard.
func serveHandler(apiRouter http.Handler) (http.Handler, error) {
	dashboard, err := webui.Handler()
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("/", dashboard)
	return mux, nil
}

func serveStartRun() error {
	pf := pidFile()
	if info, running := pf.IsRunning(); running {
		return fmt.Errorf("server already running (PID %d)", info.PID)
	}

	exe, err := os.Executable()
	if err != nil {
		return fmt.Errorf("find executable: %w", err)
	}

	args := []string{"serve", "--port", strconv.Itoa(viper.GetInt("port"))}
	if cfg := viper.ConfigFileUsed(); cfg != "" {
		args = append(args, "--config", cfg)
	}
	logPath := serveLogPath()

	if dryRun {
		ui.DryRunMsg("Would run %s %v (logs: %s)", exe, args, logPath)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer func() { _ = logFile.Close() }()

	child := exec.Command(exe, args...)
	child.Stdout = logFile
	child.Stderr = logFile
	setDaemonAttrs(child)

	if err := child.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	pid := child.Process.Pid
	_ = child.Process.Release()

	info, err := waitForPIDFile(pf, startTimeout)
	if err != nil {
		return fmt.Errorf("server (PID %d) did not come up, see %s: %w", pid, logPath, err)
	}

	ui.Success("Server started (PID %d) at %s", info.PID, info.BaseURL())
	ui.Info("Logs: %s", logPath)
	return nil
}

// waitForPIDFile polls until a live server has recorded itself.
func waitForPIDFile(pf *daemon.PIDFile, timeout time.Duration) (daemon.Info, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if info, running := pf.IsRunning(); running {
			return info, nil
		}
		time.Sleep(pollInterval)
	}
	return daemon.Info{}, fmt.Errorf("timed out after %s", timeout)
}

func serveStopRun() error {
	pf := pidFile()
	info, running := pf.IsRunning()
	if !running {
		_ = pf.Remove()
		return fmt.Errorf("server is not running")
	}

	if dryRun {
		ui.DryRunMsg("Would stop server (PID %d)", info.PID)
		return nil
	}

	if err := pf.Signal(sigTERM()); err != nil {
		return fmt.Errorf("signal server: %w", err)
	}

	deadline := time.Now().Add(shutdownTimeout)
	for time.Now().Before(deadline) {
		if _, running := pf.IsRunning(); !running {
			_ = pf.Remove()
			ui.Success("Server stopped (PID %d)", info.PID)
			return nil
		}
		time.Sleep(pollInterval)
	}

	ui.Warning("Server did not exit after %s, killing it", shutdownTimeout)
	if err := pf.Signal(sigKILL()); err != nil {
		return fmt.Errorf("kill server: %w", err)
	}
	_ = pf.Remove()
	ui.Success("Server killed (PID %d)", info.PID)
	return nil
}

func serveStatusRun() error {
	info, running := pidFile().IsRunning()
	if !running {
		ui.Info("Server is not running")
		return nil
	}
	ui.Success("Server running (PID %d) at %s", info.PID, info.BaseURL())
	ui.Info("Logs: %s", serveLogPath())
	return nil
}
