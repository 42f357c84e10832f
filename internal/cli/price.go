package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"solana-mention-tracker/internal/domain"
	"solana-mention-tracker/internal/solana"
)

type priceOutput struct {
	Address  string     `json:"address"`
	Network  string     `json:"network"`
	At       time.Time  `json:"at"`
	Status   string     `json:"status"`
	PriceUSD string     `json:"price_usd,omitempty"`
	Pool     string     `json:"pool,omitempty"`
	Window   string     `json:"window,omitempty"`
	CandleAt *time.Time `json:"candle_at,omitempty"`
}

func newPriceCmd(g *globalFlags) *cobra.Command {
	var network string
	cmd := &cobra.Command{
		Use:     "price <address> <rfc3339-time>",
		Short:   "Find the USD price of a token at a point in time",
		Example: `  mentions price 7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr 2024-03-01T12:00:00Z`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			address := args[0]
			if !solana.IsValidAddress(address) {
				return fmt.Errorf("invalid contract address %q", address)
			}
			at, err := time.Parse(time.RFC3339, args[1])
			if err != nil {
				return fmt.Errorf("parse time: %w", err)
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

			engine := a.pricer()
			if network == "" {
				network = engine.Network()
			}
			res, err := engine.PriceAt(cmd.Context(), network, address, at.UnixMilli())
			if err != nil {
				return err
			}

			out := priceOutput{Address: address, Network: network, At: at.UTC(), Status: string(res.Status)}
			if res.Priced() {
				candleAt := time.UnixMilli(res.Quote.CandleAt).UTC()
				out.PriceUSD = res.Quote.PriceUSD.StringFixed(domain.PriceDecimals)
				out.Pool = res.Quote.PoolAddress
				out.Window = res.Quote.Window.Label
				out.CandleAt = &candleAt
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	cmd.Flags().StringVar(&network, "network", "", "network (defaults to pricing.network)")
	return cmd
}
