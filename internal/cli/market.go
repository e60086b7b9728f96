package cli

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gaslens/gaslens/pkg/client"
)

// swapFlags are the flags shared by fees, compare and quote
type swapFlags struct {
	tokenIn  string
	tokenOut string
	amount   string
	gasPrice float64
	json     bool
}

func (f *swapFlags) register(cmd *cobra.Command, withGas bool) {
	cmd.Flags().StringVar(&f.tokenIn, "in", "", "input token symbol or address (default from config, ETH)")
	cmd.Flags().StringVar(&f.tokenOut, "out", "", "output token symbol or address (default from config, USDC)")
	cmd.Flags().StringVar(&f.amount, "amount", "", "amount of the input token (default from config, 1)")
	if withGas {
		cmd.Flags().Float64Var(&f.gasPrice, "gas-price", 0, "gas price in gwei (default: server standard tier)")
	}
	cmd.Flags().BoolVar(&f.json, "json", false, "print the raw JSON response")
}

// query fills unset flags from the project defaults
func (f *swapFlags) query() client.FeeQuery {
	d := swapDefaults()
	q := client.FeeQuery{TokenIn: f.tokenIn, TokenOut: f.tokenOut, AmountIn: f.amount, GasPriceGwei: f.gasPrice}
	if q.TokenIn == "" {
		q.TokenIn = d.TokenIn
	}
	if q.TokenOut == "" {
		q.TokenOut = d.TokenOut
	}
	if q.AmountIn == "" {
		q.AmountIn = d.Amount
	}
	if q.GasPriceGwei == 0 {
		q.GasPriceGwei = d.GasPrice
	}
	return q
}

func createGasCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "gas",
		Short: "Show current gas prices",
		Long: `Show the current mainnet gas price tiers in gwei.

When the server cannot reach its gas oracle it answers with fallback
prices, which are shown with a warning.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGas(cmd.Context(), cmd.OutOrStdout(), newClient(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

func runGas(ctx context.Context, out io.Writer, c *client.Client, asJSON bool) error {
	resp, err := c.GasPrice(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch gas prices: %w", err)
	}
	if asJSON {
		return printJSON(out, resp)
	}

	if resp.Source == "fallback" {
		fmt.Fprintln(out, "Warning: gas oracle unavailable, showing fallback prices")
	}
	w := newTable(out)
	fmt.Fprintln(w, "TIER\tGWEI")
	fmt.Fprintf(w, "slow\t%.2f\n", resp.Data.Slow)
	fmt.Fprintf(w, "standard\t%.2f\n", resp.Data.Standard)
	fmt.Fprintf(w, "fast\t%.2f\n", resp.Data.Fast)
	fmt.Fprintf(w, "instant\t%.2f\n", resp.Data.Instant)
	if err := w.Flush(); err != nil {
		return err
	}
	if resp.Level != "" {
		fmt.Fprintf(out, "\nNetwork: %s\n", resp.Level)
	}
	return nil
}

func createFeesCmd() *cobra.Command {
	var flags swapFlags

	cmd := &cobra.Command{
		Use:   "fees",
		Short: "Estimate swap fees on every protocol",
		Long: `Estimate the total USD cost of a swap on each protocol, combining the
protocol fee with the gas cost at the given gas price.

EXAMPLES:
  gaslens fees --in ETH --out USDC --amount 2
  gaslens fees --gas-price 40
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFees(cmd.Context(), cmd.OutOrStdout(), newClient(), flags.query(), flags.json)
		},
	}

	flags.register(cmd, true)
	return cmd
}

func runFees(ctx context.Context, out io.Writer, c *client.Client, q client.FeeQuery, asJSON bool) error {
	resp, err := c.ProtocolFees(ctx, q)
	if err != nil {
		return fmt.Errorf("failed to fetch protocol fees: %w", err)
	}
	if asJSON {
		return printJSON(out, resp)
	}

	fmt.Fprintf(out, "%s %s -> %s at %.2f gwei\n\n", q.AmountIn, q.TokenIn, q.TokenOut, resp.GasPriceGwei)
	w := newTable(out)
	fmt.Fprintln(w, "PROTOCOL\tFEE (BPS)\tGAS\tTOTAL (USD)")
	for _, f := range resp.Data {
		fmt.Fprintf(w, "%s\t%.0f\t%.0f\t$%.2f\n", f.ProtocolName, f.BaseFeeBps, f.GasEstimate, f.TotalFeeUsd)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if resp.EthPriceSource == "fallback" {
		fmt.Fprintln(out, "\nWarning: ETH price feed unavailable, USD values use the fallback price")
	}
	return nil
}

func createCompareCmd() *cobra.Command {
	var flags swapFlags
	var noAggregators bool

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Rank swap routes by total cost",
		Long: `Rank every route for a swap by total USD cost, best first, with the
saving of the best route over the rest.

EXAMPLES:
  gaslens compare
  gaslens compare --in WBTC --out ETH --amount 0.5
  gaslens compare --no-aggregators
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var aggregators *bool
			if cmd.Flags().Changed("no-aggregators") {
				v := !noAggregators
				aggregators = &v
			} else {
				aggregators = swapDefaults().Aggregators
			}
			return runCompare(cmd.Context(), cmd.OutOrStdout(), newClient(), flags.query(), aggregators, flags.json)
		},
	}

	flags.register(cmd, true)
	cmd.Flags().BoolVar(&noAggregators, "no-aggregators", false, "leave aggregator routes out")
	return cmd
}

func runCompare(ctx context.Context, out io.Writer, c *client.Client, q client.FeeQuery, aggregators *bool, asJSON bool) error {
	resp, err := c.Compare(ctx, q, aggregators)
	if err != nil {
		return fmt.Errorf("failed to compare routes: %w", err)
	}
	if asJSON {
		return printJSON(out, resp)
	}

	fmt.Fprintf(out, "%s %s -> %s at %.2f gwei\n\n", q.AmountIn, q.TokenIn, q.TokenOut, resp.GasPriceGwei)
	w := newTable(out)
	fmt.Fprintln(w, "#\tROUTE\tTYPE\tTOTAL (USD)\tOUTPUT\tMEV\tSAVINGS")
	for i, p := range resp.Data {
		name := p.Name
		if p.IsBest {
			name += " *"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t$%.2f\t%.6g\t%s\t%s\n",
			i+1, name, p.Type, p.TotalCost.TotalUsd, p.EstimatedOutput, p.MEVRisk, p.SavingsLabel)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if len(resp.Data) > 0 {
		best := resp.Data[0]
		fmt.Fprintf(out, "\nBest: %s (%s)\n", best.Name, best.Action.URL)
	}
	if resp.EthPriceSource == "fallback" {
		fmt.Fprintln(out, "Warning: ETH price feed unavailable, USD values use the fallback price")
	}
	return nil
}

func createQuoteCmd() *cobra.Command {
	var flags swapFlags

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Fetch aggregator swap quotes",
		Long: `Fetch swap quotes from the configured aggregators, best output first.

When no aggregator answers the server returns estimated quotes, which
are marked as such.
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd.Context(), cmd.OutOrStdout(), newClient(), flags.query(), flags.json)
		},
	}

	flags.register(cmd, false)
	return cmd
}

func runQuote(ctx context.Context, out io.Writer, c *client.Client, q client.FeeQuery, asJSON bool) error {
	resp, err := c.SwapQuote(ctx, q.TokenIn, q.TokenOut, q.AmountIn)
	if err != nil {
		return fmt.Errorf("failed to fetch quotes: %w", err)
	}
	if asJSON {
		return printJSON(out, resp)
	}

	if resp.Source == "mock" {
		fmt.Fprintln(out, "Note: no aggregator answered, showing estimated quotes")
	}
	w := newTable(out)
	fmt.Fprintln(w, "PROTOCOL\tOUTPUT\tGAS\tIMPACT")
	for _, qt := range resp.Data.Quotes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f%%\n", qt.Protocol, qt.ToAmount, qt.EstimatedGas, qt.PriceImpact)
	}
	return w.Flush()
}

func createPricesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "prices [id...]",
		Short: "Show token prices in USD",
		Long: `Show USD prices and 24h change for price feed ids.

EXAMPLES:
  gaslens prices
  gaslens prices ethereum bitcoin usd-coin
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := args
			if len(ids) == 0 {
				ids = []string{"ethereum"}
			}
			return runPrices(cmd.Context(), cmd.OutOrStdout(), newClient(), ids, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

func runPrices(ctx context.Context, out io.Writer, c *client.Client, ids []string, asJSON bool) error {
	resp, err := c.TokenPrices(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to fetch prices: %w", err)
	}
	if asJSON {
		return printJSON(out, resp)
	}

	names := make([]string, 0, len(resp.Data))
	for id := range resp.Data {
		names = append(names, id)
	}
	sort.Strings(names)

	w := newTable(out)
	fmt.Fprintln(w, "ID\tUSD\t24H")
	for _, id := range names {
		p := resp.Data[id]
		fmt.Fprintf(w, "%s\t$%.2f\t%+.2f%%\n", id, p.USD, p.Change24h)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if resp.Source == "mock" {
		fmt.Fprintln(out, "\nWarning: price feed unavailable, showing estimated prices")
	}
	return nil
}
