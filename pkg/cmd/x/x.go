package x

import "github.com/spf13/cobra"

func NewXCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "x",
		Short: "Developer tools",
	}
	cmd.AddCommand(NewFeedCommand())
	return cmd
}
