package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tickcraft.ai/internal/sim/command"
)

var verbsCmd = &cobra.Command{
	Use:   "verbs",
	Short: "List the admin command grammar",
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, v := range command.Verbs() {
			usage, _ := command.Usage(v)
			fmt.Fprintln(cmd.OutOrStdout(), usage)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verbsCmd)
}
