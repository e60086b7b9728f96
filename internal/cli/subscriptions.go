package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gaslens/gaslens/pkg/client"
)

func createStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <wallet>",
		Short: "Show a wallet's subscription status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout(), newClient(), args[0], asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

func runStatus(ctx context.Context, out io.Writer, c *client.Client, wallet string, asJSON bool) error {
	status, err := c.SubscriptionStatus(ctx, wallet)
	if err != nil {
		return fmt.Errorf("failed to check subscription: %w", err)
	}
	if asJSON {
		return printJSON(out, status)
	}

	if !status.HasPro {
		fmt.Fprintf(out, "%s: %s tier\n", wallet, status.Tier)
		return nil
	}
	fmt.Fprintf(out, "%s: %s (%s access since %s)\n", wallet, status.Tier, status.AccessType, status.Since)
	return nil
}

func createVerifyCmd() *cobra.Command {
	var req client.VerifyPaymentRequest

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a subscription payment",
		Long: `Submit a mainnet payment transaction for verification. On success the
wallet gets a lifetime subscription to the plan.

EXAMPLES:
  gaslens verify --tx 0xabc... --wallet 0x123... --plan Pro --amount 29 --currency USDC
`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), cmd.OutOrStdout(), newClient(), req)
		},
	}

	cmd.Flags().StringVar(&req.TxHash, "tx", "", "payment transaction hash")
	cmd.Flags().StringVar(&req.WalletAddress, "wallet", "", "paying wallet address")
	cmd.Flags().StringVar(&req.PlanName, "plan", "Pro", "plan name (Pro or Enterprise)")
	cmd.Flags().Float64Var(&req.Amount, "amount", 0, "amount paid in USD")
	cmd.Flags().StringVar(&req.Currency, "currency", "USDC", "payment currency (ETH or USDC)")
	_ = cmd.MarkFlagRequired("tx")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func runVerify(ctx context.Context, out io.Writer, c *client.Client, req client.VerifyPaymentRequest) error {
	req.Currency = strings.ToUpper(req.Currency)

	sub, err := c.VerifyPayment(ctx, req)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("payment rejected: %s", apiErr.Message)
		}
		return fmt.Errorf("failed to verify payment: %w", err)
	}

	fmt.Fprintf(out, "Payment verified: %s is now on %s\n", sub.WalletAddress, sub.Tier)
	fmt.Fprintf(out, "  Transaction: %s (block %d)\n", sub.TxHash, sub.BlockNumber)
	fmt.Fprintf(out, "  Amount:      $%.2f %s\n", sub.AmountUSD, sub.Currency)
	return nil
}

func createAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Subscription administration",
		Long: `Manage subscriptions on a GasLens server. Requires the admin secret,
from --admin-key, GASLENS_ADMIN_KEY or 'gaslens auth login'.`,
	}

	cmd.AddCommand(createAdminListCmd())
	cmd.AddCommand(createAdminSetCmd("activate <wallet>", "Reactivate a wallet's subscription", true))
	cmd.AddCommand(createAdminSetCmd("deactivate <wallet>", "Revoke a wallet's subscription", false))

	return cmd
}

func createAdminListCmd() *cobra.Command {
	var limit, offset int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List subscriptions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(cmd.Context(), cmd.OutOrStdout(), newClient(), limit, offset, asJSON)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "page size (max 100)")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON response")
	return cmd
}

func runAdminList(ctx context.Context, out io.Writer, c *client.Client, limit, offset int, asJSON bool) error {
	resp, err := c.ListSubscriptions(ctx, limit, offset)
	if err != nil {
		return adminError("list subscriptions", err)
	}
	if asJSON {
		return printJSON(out, resp)
	}

	w := newTable(out)
	fmt.Fprintln(w, "WALLET\tTIER\tAMOUNT\tACTIVE\tCREATED")
	for _, s := range resp.Subscriptions {
		fmt.Fprintf(w, "%s\t%s\t$%.2f %s\t%t\t%s\n", s.WalletAddress, s.Tier, s.AmountUSD, s.Currency, s.IsActive, s.CreatedAt)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%d shown, %d active of %d total\n", resp.Pagination.Count, resp.Stats.Active, resp.Stats.Total)
	return nil
}

func createAdminSetCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminSet(cmd.Context(), cmd.OutOrStdout(), newClient(), args[0], active)
		},
	}
}

func runAdminSet(ctx context.Context, out io.Writer, c *client.Client, wallet string, active bool) error {
	sub, err := c.SetSubscriptionActive(ctx, wallet, active)
	if err != nil {
		return adminError("update subscription", err)
	}

	state := "deactivated"
	if sub.IsActive {
		state = "activated"
	}
	fmt.Fprintf(out, "Subscription for %s %s\n", sub.WalletAddress, state)
	return nil
}

func adminError(action string, err error) error {
	if client.IsUnauthorized(err) {
		return fmt.Errorf("failed to %s: admin key missing or invalid (run 'gaslens auth login')", action)
	}
	return fmt.Errorf("failed to %s: %w", action, err)
}
