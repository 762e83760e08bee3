package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the sockline version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sockline %s (%s)\n", version, commit)
		},
	}
}
