package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"solana-mention-tracker/internal/extract"
)

// candidateOutput is the JSON shape printed by the extract command.
type candidateOutput struct {
	TokenKey     string `json:"token_key"`
	TokenDisplay string `json:"token_display"`
	Source       string `json:"source"`
	Confidence   int    `json:"confidence"`
	TriggerText  string `json:"trigger_text"`
}

func newExtractCmd() *cobra.Command {
	var stopwords []string
	cmd := &cobra.Command{
		Use:   "extract [text]",
		Short: "Print the mention candidates found in text (argument or stdin)",
		Example: `  mentions extract 'I love $POPCAT. bonk to the moon!'
  echo 'that unstable coin is everywhere' | mentions extract`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var text string
			if len(args) == 1 {
				text = args[0]
			} else {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = strings.TrimRight(string(data), "\n")
			}

			ex := extract.New(extract.Options{Stopwords: stopwords})
			matches := ex.ExtractMatches(text)

			out := make([]candidateOutput, 0, len(matches))
			for _, m := range matches {
				out = append(out, candidateOutput{
					TokenKey:     m.Candidate.TokenKey,
					TokenDisplay: m.Candidate.TokenDisplay,
					Source:       m.Candidate.Source.String(),
					Confidence:   m.Candidate.Confidence,
					TriggerText:  m.TriggerText,
				})
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringSliceVar(&stopwords, "stopwords", nil, "replace the built-in phrase stopwords")
	return cmd
}
