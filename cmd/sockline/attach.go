package main

import (
	"context"
	"errors"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sockline-dev/sockline/internal/config"
	"github.com/sockline-dev/sockline/internal/signal"
)

func attachCmd() *cobra.Command {
	var logLevel string

	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach to a running dev server's channel",
		Long: `Attach to a running dev server and tail its compilation events.

The channel address is resolved from sockline.json exactly the way the
browser resolves it, so attach is also a quick check that both ends
agree on where the channel lives.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(logLevel)
		},
	}

	cmd.Flags().StringVar(&logLevel, "log-level", "", "Override the configured client log level")

	return cmd
}

func runAttach(logLevel string) error {
	cfg, err := config.LoadFromWorkingDir()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Client.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	channel := cfg.Channel()
	addr, err := signal.Resolve(channel, cfg.Origin())
	if err != nil {
		return err
	}

	info("attaching to %s", addr.URL())

	client := signal.NewClient(signal.ClientConfig{
		Address:  addr,
		LogLevel: channel.LogLevel,
	})

	policy := signal.NewPolicy(signal.PolicyOptions{
		Hot:        channel.Hot,
		LiveReload: channel.LiveReload,
		LogLevel:   channel.LogLevel,
	}, func(level signal.LogLevel, line string) {
		switch level {
		case signal.LogError:
			errorMsg("%s", line)
		default:
			info("%s", line)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	ossignal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	go func() {
		for ev := range client.Events() {
			action := policy.Apply(ev)
			if action != signal.ActionNone {
				info("action: %s", action)
			}
		}
	}()

	if err := client.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
