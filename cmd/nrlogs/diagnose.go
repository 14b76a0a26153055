package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nrlogs/nrlogs/internal/newrelic"
	"github.com/nrlogs/nrlogs/internal/pkg/hash"
	"github.com/nrlogs/nrlogs/internal/pkg/security"
)

// probeQuery is run against each probed account to confirm log access.
const probeQuery = "SELECT count(*) FROM Log SINCE 1 hour ago"

func diagnoseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Check the API key and NerdGraph connectivity",
		Long: `Report the configured API key type and endpoint, list the accounts the key
can see, and run a small log query against the first few of them.`,
		Args: cobra.NoArgs,
		RunE: runDiagnose,
	}

	cmd.Flags().Int("probe", 3, "number of accounts to probe with a log query")
	cmd.Flags().Int("parallel", 2, "maximum concurrent probes")

	return cmd
}

type probeResult struct {
	account  newrelic.Account
	count    string
	duration time.Duration
	err      error
}

func runDiagnose(cmd *cobra.Command, _ []string) error {
	probeN, _ := cmd.Flags().GetInt("probe")
	parallel, _ := cmd.Flags().GetInt("parallel")

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	key := a.cfg.NewRelic.APIKey

	if key == "" {
		fmt.Fprintln(out, "✗ NEW_RELIC_API_KEY is not set")
		fmt.Fprintln(out, "  "+newrelic.KeyUnknown.Advice())
		return fmt.Errorf("no API key configured")
	}

	kind := newrelic.ClassifyKey(key)
	fmt.Fprintln(out, "✓ API key found")
	fmt.Fprintf(out, "  Key:         %s\n", security.MaskSecret(key))
	fmt.Fprintf(out, "  Length:      %d\n", len(key))
	fmt.Fprintf(out, "  Fingerprint: %s\n", hash.SHA256Short([]byte(key), 8))
	fmt.Fprintf(out, "  Type:        %s\n", kind)
	fmt.Fprintf(out, "  %s\n", kind.Advice())
	fmt.Fprintf(out, "\nEndpoint: %s\n\n", a.client.Endpoint())

	accts, err := a.client.ListAccounts(cmd.Context())
	if err != nil {
		fmt.Fprintf(out, "✗ Listing accounts failed: %v\n", err)
		return err
	}
	fmt.Fprintf(out, "✓ %d account(s) visible\n", len(accts))
	for _, acct := range accts {
		fmt.Fprintf(out, "  - %s (%s)\n", acct.DisplayName(), acct.ID)
	}

	if probeN > len(accts) {
		probeN = len(accts)
	}
	if probeN <= 0 {
		return nil
	}

	results := probeAccounts(cmd.Context(), a.client, accts[:probeN], parallel)
	fmt.Fprintf(out, "\nProbing log access with: %s\n", probeQuery)
	return printProbes(out, results)
}

// probeAccounts queries each account concurrently. Results keep account order.
func probeAccounts(ctx context.Context, client *newrelic.Client, accts []newrelic.Account, parallel int) []probeResult {
	results := make([]probeResult, len(accts))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, acct := range accts {
		i, acct := i, acct
		g.Go(func() error {
			start := time.Now()
			res, err := client.Query(ctx, probeQuery, acct.ID)
			r := probeResult{account: acct, duration: time.Since(start), err: err}
			if err == nil && len(res.Records) > 0 {
				r.count = string(res.Records[0])
			}
			results[i] = r
			// A failed probe is reported, not fatal to the others.
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func printProbes(out io.Writer, results []probeResult) error {
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			fmt.Fprintf(out, "  ✗ %s (%s): %v\n", r.account.DisplayName(), r.account.ID, r.err)
			continue
		}
		fmt.Fprintf(out, "  ✓ %s (%s): %s in %s\n",
			r.account.DisplayName(), r.account.ID, r.count, r.duration.Round(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d probes failed", failed, len(results))
	}
	return nil
}
