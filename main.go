package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/AgnopraxLab/LineFuzz/config"
	"github.com/AgnopraxLab/LineFuzz/fuzzer"
	"github.com/AgnopraxLab/LineFuzz/utils"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(cfg.GetLogPath())
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()
	logger.SetLevel(utils.ParseLevel(cfg.Log.Level))

	logger.Info("Starting LineFuzz...")
	cfg.PrintConfig()

	if !cfg.IsFuzzingEnabled() {
		logger.Info("Fuzzing disabled in %s, nothing to do", configPath)
		return
	}

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := fuzzer.RunFromConfig(ctx, cfg, logger)
	if err != nil {
		logger.Error("Campaign stopped: %v", err)
	}
	if stats != nil {
		for op, st := range stats.PerOp {
			logger.Info("%-24s applied=%d passthrough=%d failed=%d", op, st.Applied, st.PassThrough, st.Failed)
		}
	}
	logger.Info("LineFuzz stopped")
}
