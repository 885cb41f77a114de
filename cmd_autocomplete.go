package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAutocompleteCmd() *cobra.Command {
	var shell string

	cmd := &cobra.Command{
		Use:   "autocomplete",
		Short: "Emit shell completion script to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			out := cmd.OutOrStdout()
			switch shell {
			case "bash":
				return root.GenBashCompletion(out)
			case "zsh":
				return root.GenZshCompletion(out)
			case "fish":
				return root.GenFishCompletion(out, true)
			default:
				return fmt.Errorf("unsupported shell %q: must be one of bash, fish, zsh", shell)
			}
		},
	}

	cmd.Flags().StringVar(&shell, "shell", "", "Shell to generate completion for (bash|fish|zsh)")
	_ = cmd.MarkFlagRequired("shell")

	return cmd
}
