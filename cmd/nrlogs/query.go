package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nrlogs/nrlogs/internal/logs"
	"github.com/nrlogs/nrlogs/internal/nrql"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query logs and print the JSON response",
		Long: `Build and run a log query, printing the same JSON the query_logs tool returns.

Examples:
  nrlogs query --account 123 --filter service=api --filter level=ERROR
  nrlogs query --account 123 --search timeout --since '30 minutes ago'
  nrlogs query --account 123 --nrql "SELECT count(*) FROM Log FACET level"
  nrlogs query --account 123 --dry-run --filter region=us-east`,
		Args: cobra.NoArgs,
		RunE: runQuery,
	}

	cmd.Flags().StringP("account", "a", "", "New Relic account ID (required)")
	cmd.Flags().String("nrql", "", "raw NRQL query (overrides other query flags)")
	cmd.Flags().StringP("search", "s", "", "text to search for in the message field")
	cmd.Flags().StringArrayP("filter", "f", nil, "field=value filter (repeatable, applied in order)")
	cmd.Flags().String("since", logs.DefaultSince, "time range")
	cmd.Flags().IntP("limit", "n", logs.DefaultLimit, fmt.Sprintf("maximum results (%d-%d)", logs.MinLimit, logs.MaxLimit))
	cmd.Flags().Bool("dry-run", false, "print the NRQL without running it")
	_ = cmd.MarkFlagRequired("account")

	return cmd
}

func runQuery(cmd *cobra.Command, _ []string) error {
	accountID, _ := cmd.Flags().GetString("account")
	raw, _ := cmd.Flags().GetString("nrql")
	search, _ := cmd.Flags().GetString("search")
	filterArgs, _ := cmd.Flags().GetStringArray("filter")
	since, _ := cmd.Flags().GetString("since")
	limit, _ := cmd.Flags().GetInt("limit")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	filters, err := nrql.ParseFilterArgs(filterArgs)
	if err != nil {
		return err
	}

	req := logs.QueryRequest{
		AccountID:     accountID,
		Query:         raw,
		MessageSearch: search,
		Filters:       filters,
		Since:         since,
		Limit:         limit,
	}

	out := cmd.OutOrStdout()

	if dryRun {
		if err := req.Normalize(); err != nil {
			return err
		}
		fmt.Fprintln(out, nrql.Build(req.NRQL()))
		return nil
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	resp, err := a.logs.QueryLogs(cmd.Context(), req)
	if err != nil {
		return err
	}

	data, err := logs.Render(*resp)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
