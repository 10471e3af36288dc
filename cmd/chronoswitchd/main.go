// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command chronoswitchd runs one hybrid emulation/simulation
// experiment: it loads a DML config describing the experiment's
// Timelines and Proxies, attaches and freezes every Proxy through the
// kernel time-dilation service, then drives the Timeline kernel and
// the Emulation Manager's capture loops until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grimmlab/chronoswitch/internal/logging"
	"github.com/grimmlab/chronoswitch/internal/procconfig"
)

func main() {
	configPath := flag.String("config", "", "Path to the experiment's DML config file")
	procConfigPath := flag.String("proc-config", "", "Path to chronoswitchd's own YAML process config (log level/format, socket-hook strictness)")
	jsonLogs := flag.Bool("json-logs", false, "Emit JSON log lines instead of the console format")
	flag.Parse()

	if *configPath == "" {
		log.Fatal("Usage: chronoswitchd -config <experiment.dml>")
	}

	procCfg, err := procconfig.Load(*procConfigPath)
	if err != nil {
		log.Fatalf("failed to load process config: %v", err)
	}

	format := logging.FormatConsole
	if *jsonLogs || procCfg.LogFormat == "json" {
		format = logging.FormatJSON
	}
	level := slog.LevelInfo
	_ = level.UnmarshalText([]byte(procCfg.LogLevel))
	logger := logging.New(logging.Options{Format: format, Level: level})

	spec, err := LoadExperimentSpec(*configPath)
	if err != nil {
		logger.Error("failed to load experiment config", "error", err)
		os.Exit(1)
	}
	if spec.SocketHookFile == "" {
		spec.SocketHookFile = procCfg.SocketHookPath
	}

	engine, err := BuildEngine(spec, procCfg, logger)
	if err != nil {
		logger.Error("failed to build engine", "error", err)
		os.Exit(1)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStart()
	if err := engine.Start(startCtx); err != nil {
		logger.Error("failed to start experiment", "error", err)
		os.Exit(1)
	}
	logger.Info("experiment started", "timelines", len(spec.Timelines))

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := engine.Run(runCtx)
	if runErr != nil && runCtx.Err() == nil {
		logger.Error("experiment run failed", "error", runErr)
	}

	stopCtx, cancelStop := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStop()
	if err := engine.Stop(stopCtx); err != nil {
		logger.Error("failed to stop experiment cleanly", "error", err)
		os.Exit(1)
	}
	logger.Info("experiment stopped")
}
