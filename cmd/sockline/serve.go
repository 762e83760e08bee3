package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sockline-dev/sockline/internal/config"
	"github.com/sockline-dev/sockline/internal/dev"
)

func serveCmd() *cobra.Command {
	var (
		port     int
		host     string
		sockPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the development server",
		Long: `Start the development server with the live-reload channel.

Watches for file changes, runs the configured build command, and
notifies every connected browser over the signalling channel.

Examples:
  sockline serve
  sockline serve --port=3000
  sockline serve --sock-path=/channel`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, host, sockPath)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from sockline.json)")
	cmd.Flags().StringVarP(&host, "host", "H", "", "Host to bind to (default from sockline.json)")
	cmd.Flags().StringVar(&sockPath, "sock-path", "", "Channel endpoint path override")

	return cmd
}

func runServe(port int, host, sockPath string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}

	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if sockPath != "" {
		cfg.Server.SockPath = sockPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	printBanner()
	info("serve")

	server, err := dev.NewServer(dev.ServerOptions{
		Config: cfg,
		OnBuild: func(result dev.BuildResult) {
			if result.Success {
				success("Built in %s", result.Duration.Round(time.Millisecond))
			} else {
				errorMsg("Build failed (%d lines)", len(result.Output))
			}
		},
		OnReload: func(subscribers int) {
			success("Notified %d browsers", subscribers)
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		info("Shutting down...")
		cancel()
	}()

	return server.Start(ctx)
}
