package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/persistence"
	"github.com/goliatone/go-finance-tracker/transaction"
)

func statsCmd() *cobra.Command {
	var kind, currency, from, to, groupBy string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize transactions, optionally grouped",
		Example: `  ledgerctl stats --owner <id> --type EXPENSE --group-by month
  ledgerctl stats --owner <id> --from 2024-01-01 --to 2024-01-31 --fresh`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			q := transaction.Query{
				Kind:         model.Kind(strings.ToUpper(kind)),
				CurrencyCode: strings.ToUpper(currency),
				GroupBy:      persistence.GroupBy(strings.ToLower(groupBy)),
			}
			if q.DateFrom, err = parseDate(from); err != nil {
				return err
			}
			if q.DateTo, err = parseDate(to); err != nil {
				return err
			}

			stats, err := app.Transactions().GetStatistics(cmd.Context(), owner, q, readOpts(cmd)...)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), stats)
		},
	}
	ownerFlag(cmd)
	cmd.Flags().StringVar(&kind, "type", "", "INCOME or EXPENSE")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency code")
	cmd.Flags().StringVar(&from, "from", "", "lower bound, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "upper bound, inclusive; a plain date means its midnight UTC")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "category, currency, month or year")
	cmd.Flags().Bool("fresh", false, "skip the cache")
	return cmd
}
