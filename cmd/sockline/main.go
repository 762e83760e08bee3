package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sockline-dev/sockline/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
)

const banner = `
  ┌─┐┌─┐┌─┐┬┌─┬  ┬┌┐┌┌─┐
  └─┐│ ││  ├┴┐│  ││││├┤
  └─┘└─┘└─┘┴ ┴┴─┘┴┘└┘└─┘
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "sockline",
		Short: "Live-reload signalling channel for dev servers",
		Long: `sockline serves your static assets in development and keeps every
open page on a signalling channel: when the build finishes, connected
browsers reload (or hot-update) themselves.

The channel address is resolved once, with one algorithm, on both the
server and in the browser, so reload keeps working behind reverse
proxies, public hostnames, and custom ports or paths.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		attachCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errors.Format(err))
		os.Exit(1)
	}
}

// printBanner prints the ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
