package cli

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/resolver"
)

type resolveOutput struct {
	Query     string              `json:"query"`
	Source    string              `json:"source"`
	Outcome   string              `json:"outcome"`
	Reason    string              `json:"reason,omitempty"`
	Candidate *resolver.Candidate `json:"candidate,omitempty"`
}

func newResolveCmd(g *globalFlags) *cobra.Command {
	var phrase bool
	cmd := &cobra.Command{
		Use:   "resolve <ticker|phrase>",
		Short: "Resolve a ticker or phrase to a contract address",
		Example: `  mentions resolve '$POPCAT'
  mentions resolve --phrase unstable`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg.Log, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a, err := openApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			source := domain.SourceTicker
			if phrase {
				source = domain.SourcePhrase
			}
			query := strings.TrimSpace(args[0])

			res, err := a.resolver().Resolve(cmd.Context(), resolver.Request{Source: source, Key: query})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resolveOutput{
				Query:     query,
				Source:    source.String(),
				Outcome:   string(res.Outcome),
				Reason:    res.Reason,
				Candidate: res.Candidate,
			})
		},
	}
	cmd.Flags().BoolVar(&phrase, "phrase", false, "treat the argument as a phrase instead of a ticker")
	return cmd
}
