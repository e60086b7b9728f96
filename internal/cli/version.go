package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/gaslens/gaslens/internal/validation"
	"github.com/gaslens/gaslens/pkg/client"
)

func createVersionCmd(version string) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the CLI version",
		Long: `Print the CLI version. With --check, also fetch the server version and
report whether the two differ.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "gaslens %s\n", version)
			if !check {
				return nil
			}
			return runVersionCheck(cmd.Context(), cmd.OutOrStdout(), newClient(), version)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "compare with the server version")
	return cmd
}

func runVersionCheck(ctx context.Context, out io.Writer, c *client.Client, local string) error {
	remote, err := c.Version(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch server version: %w", err)
	}
	fmt.Fprintf(out, "server  %s\n", remote)

	// Development builds carry no semver to compare.
	if validation.ValidateVersion(local) != nil || validation.ValidateVersion(remote) != nil {
		return nil
	}
	switch validation.CompareVersions(local, remote) {
	case -1:
		fmt.Fprintln(out, "The CLI is older than the server; consider upgrading.")
	case 1:
		fmt.Fprintln(out, "The server is older than the CLI.")
	}
	return nil
}
