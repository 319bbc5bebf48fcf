package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/coursehub-backend/internal/app"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "."
	}
	a, err := app.New(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.Log.Info("Starting coursehub", "http_addr", a.Cfg.HTTPAddr, "run_server", a.Cfg.RunServer, "run_worker", a.Cfg.RunWorker, "job_dispatch", a.Cfg.JobDispatch)
	if err := a.Run(ctx); err != nil && ctx.Err() == nil {
		a.Log.Error("App stopped with error", "error", err)
		os.Exit(1)
	}
	a.Log.Info("Shutdown complete")
}
