package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"solana-mention-tracker/internal/config"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	var defaults bool
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML (connection passwords masked)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var cfg *config.Config
			if defaults {
				d := config.Defaults()
				cfg = &d
			} else {
				loaded, err := g.load()
				if err != nil {
					return err
				}
				cfg = loaded
			}

			out, err := cfg.Redacted().YAML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	show.Flags().BoolVar(&defaults, "defaults", false, "print the built-in defaults instead")

	cmd.AddCommand(show)
	return cmd
}
