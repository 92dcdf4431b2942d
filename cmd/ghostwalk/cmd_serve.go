package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/ghostwalk/internal/gateway"
	"github.com/user/ghostwalk/internal/normalize"
	"github.com/user/ghostwalk/internal/notify"
	"github.com/user/ghostwalk/internal/replay"
	"github.com/user/ghostwalk/internal/scheduler"
	"github.com/user/ghostwalk/internal/snapshot"
	"github.com/user/ghostwalk/internal/state"
	"github.com/user/ghostwalk/internal/types"
	"github.com/user/ghostwalk/internal/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ghostwalk daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "ghostwalk.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	// Write PID file
	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Stores
	sessions := state.NewSessionStore(cfg.DataDir)
	replayLog := state.NewReplayLog(cfg.DataDir)
	artifacts := state.NewArtifactStore(cfg.DataDir)
	taskStore := state.NewTaskStore(filepath.Join(cfg.DataDir, "tasks.json"))

	// Schema mapping
	mapping, err := schemaMapping(cfg)
	if err != nil {
		return fmt.Errorf("build schema mapping: %w", err)
	}

	// Gateway
	gw := gateway.New(sessions, replayLog,
		func() types.Navigator { return replay.LogNavigator{} },
		int64(cfg.MaxConcurrent))
	if cfg.Replay.SnapshotPages {
		gw.SetSnapshotter(snapshot.New(artifacts).Hook())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw.Start(ctx)
	defer gw.Stop()

	slog.Info("ghostwalk started",
		"data_dir", cfg.DataDir,
		"log_level", cfg.LogLevel,
		"max_concurrent", cfg.MaxConcurrent,
		"snapshot_pages", cfg.Replay.SnapshotPages,
		"pid_file", pidPath,
	)

	// Notification registry
	notifyReg := notify.NewRegistry()
	notifyReg.Register("log:", func(target, message string) error {
		slog.Info("replay notification", "message", message)
		return nil
	})
	notifyTarget := "log:default"

	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		notifyReg.Register("telegram:", tg.Handler())
		if cfg.Telegram.ChatID != 0 {
			notifyTarget = "telegram:" + strconv.FormatInt(cfg.Telegram.ChatID, 10)
		}
		slog.Info("telegram notifier started")
	} else {
		slog.Warn("telegram notifier disabled (no token)")
	}

	// Helper: normalize a task's recording and enqueue a replay run.
	processTask := func(task *state.Task) (types.RunID, error) {
		provider := task.Provider
		if provider == "" {
			provider = normalize.ProviderMixpanel
		}
		normalizer, err := normalize.New(provider, mapping)
		if err != nil {
			return "", err
		}

		recording := task.Recording
		if !filepath.IsAbs(recording) {
			recording = filepath.Join(cfg.DataDir, recording)
		}
		stream, err := normalizer.LoadFile(recording)
		if err != nil {
			return "", fmt.Errorf("load recording: %w", err)
		}

		delay := task.FixedDelaySeconds
		if delay <= 0 {
			delay = cfg.Replay.FixedDelaySeconds
		}

		run, err := gw.HandleReplay(ctx, types.SessionKey(task.SessionKey), "task",
			stream, timingPolicy(delay),
			gateway.WithOnComplete(func(summary string) {
				if err := notifyReg.Send(notifyTarget, summary); err != nil {
					slog.Error("replay notification failed", "target", notifyTarget, "error", err)
				}
			}))
		if err != nil {
			return "", err
		}
		return run.ID, nil
	}

	// Scheduler
	sched := scheduler.New(taskStore, func(task *state.Task) {
		if _, err := processTask(task); err != nil {
			slog.Error("cron replay failed", "task", task.Name, "error", err)
		}
	})
	if err := sched.Start(); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	slog.Info("scheduler started")

	// Webhook HTTP server
	if cfg.HTTP.Enabled {
		webhookSrv := webhook.NewServer(taskStore, processTask, sessions, replayLog, artifacts)
		httpServer := &http.Server{
			Addr:    cfg.HTTP.Listen,
			Handler: webhookSrv,
		}
		go func() {
			slog.Info("webhook server started", "listen", cfg.HTTP.Listen)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("webhook server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			httpServer.Close()
		}()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			// Clean up PID file before re-exec
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				// Re-write PID file since we failed to re-exec
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		// SIGINT or SIGTERM
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
