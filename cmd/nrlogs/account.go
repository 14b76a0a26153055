package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func accountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account [name]",
		Short: "Look up an account ID by name, or list accounts",
		Long: `Resolve an account name to its ID (case-insensitive; the first match wins).
With --list, print every account visible to the API key.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runAccount,
	}

	cmd.Flags().BoolP("list", "l", false, "list all accounts")

	return cmd
}

func runAccount(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	if !list && len(args) == 0 {
		return fmt.Errorf("account name required (or use --list)")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()

	if list {
		accts, err := a.client.ListAccounts(cmd.Context())
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME")
		for _, acct := range accts {
			fmt.Fprintf(tw, "%s\t%s\n", acct.ID, acct.DisplayName())
		}
		return tw.Flush()
	}

	id, err := a.accounts.Resolve(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Account ID for '%s': %s\n", args[0], id)
	return nil
}
