package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/solana"
	"solana-mention-tracker/internal/storage"
)

// seedSource is the provenance recorded for entries loaded from a seed file.
const seedSource = "manual"

// kbFile is the YAML shape of a knowledge-base seed file.
type kbFile struct {
	Entries []kbSeed `yaml:"entries"`
}

type kbSeed struct {
	Ticker   string `yaml:"ticker"`
	Address  string `yaml:"address"`
	Name     string `yaml:"name"`
	Pool     string `yaml:"pool"`
	Network  string `yaml:"network"`
	Priority *int   `yaml:"priority"`
}

func newKBCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kb",
		Short: "Manage the token knowledge base",
	}
	cmd.AddCommand(newKBImportCmd(g), newKBUnresolvedCmd(g))
	return cmd
}

func newKBImportCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.yaml>",
		Short: "Merge curated entries into the knowledge base",
		Long: `Import merges entries on (ticker, address). Existing non-null fields are never
overwritten by empty ones; priority is replaced only when the file sets it.

File format:
  entries:
    - ticker: POPCAT
      address: 7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr
      name: Popcat
      priority: 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := readKBFile(args[0], time.Now().UnixMilli())
			if err != nil {
				return err
			}

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

			n, err := importKB(cmd.Context(), a.kb, entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d entries\n", n)
			return nil
		},
	}
}

// readKBFile parses and validates a seed file.
func readKBFile(path string, nowMs int64) ([]*domain.KnowledgeBaseEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge base file: %w", err)
	}
	var file kbFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse knowledge base file %s: %w", path, err)
	}

	entries := make([]*domain.KnowledgeBaseEntry, 0, len(file.Entries))
	for i, s := range file.Entries {
		ticker := strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s.Ticker), "$"))
		if ticker == "" {
			return nil, fmt.Errorf("entry %d: ticker is required", i)
		}
		if !solana.IsValidAddress(s.Address) {
			return nil, fmt.Errorf("entry %d (%s): invalid address %q", i, ticker, s.Address)
		}
		source := seedSource
		entries = append(entries, &domain.KnowledgeBaseEntry{
			TokenTicker:        ticker,
			ContractAddress:    s.Address,
			TokenName:          nonEmpty(s.Name),
			PrimaryPoolAddress: nonEmpty(s.Pool),
			Network:            nonEmpty(s.Network),
			Source:             &source,
			Priority:           s.Priority,
			CreatedAt:          nowMs,
			UpdatedAt:          nowMs,
		})
	}
	return entries, nil
}

func importKB(ctx context.Context, store storage.KnowledgeBaseStore, entries []*domain.KnowledgeBaseEntry) (int, error) {
	for _, e := range entries {
		if _, err := store.Upsert(ctx, e); err != nil {
			return 0, fmt.Errorf("upsert %s/%s: %w", e.TokenTicker, e.ContractAddress, err)
		}
	}
	return len(entries), nil
}

func newKBUnresolvedCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "unresolved",
		Short: "List the most frequently unresolved tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
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

			rows, err := a.unresolved.List(cmd.Context(), limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TOKEN\tSOURCE\tSEEN\tREASON\tLAST POST\tLAST SEEN")
			for _, u := range rows {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\n",
					u.TokenKey, u.Source, u.SeenCount, u.Reason, u.LastPostID,
					time.UnixMilli(u.LastSeenAt).UTC().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func nonEmpty(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
