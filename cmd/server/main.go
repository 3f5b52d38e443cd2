package main

import (
	"log"

	"github.com/spf13/cobra"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	cobra.CheckErr(newRootCmd().Execute())
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "convtrainer",
		Short:         "Conversion Trainer real-time multiplayer/tournament backend.",
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.AddCommand(newServeCmd())
	return cmd
}
