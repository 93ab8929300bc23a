package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-finance-tracker/model"
	"github.com/goliatone/go-finance-tracker/transaction"
)

func transactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Record and browse transactions",
	}
	cmd.AddCommand(transactionsCreateCmd(), transactionsListCmd(), transactionsShowCmd(),
		transactionsUpdateCmd(), transactionsDeleteCmd())
	return cmd
}

func transactionsCreateCmd() *cobra.Command {
	var categoryID, kind, amount, currency, date string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Record a transaction",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			cat, err := parseID("category", categoryID)
			if err != nil {
				return err
			}
			when, err := parseDate(date)
			if err != nil {
				return err
			}
			if when == nil {
				return fmt.Errorf("--date is required")
			}

			view, err := app.Transactions().Create(cmd.Context(), owner, transaction.CreateInput{
				CategoryID:   cat,
				Kind:         model.Kind(strings.ToUpper(kind)),
				Amount:       amount,
				CurrencyCode: currency,
				Date:         *when,
				Description:  optionalString(cmd, "description"),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	ownerFlag(cmd)
	cmd.Flags().StringVar(&categoryID, "category", "", "category id")
	cmd.Flags().StringVar(&kind, "type", "", "INCOME or EXPENSE")
	cmd.Flags().StringVar(&amount, "amount", "", "positive amount, up to 4 decimals")
	cmd.Flags().StringVar(&currency, "currency", "", "ISO 4217 currency code")
	cmd.Flags().StringVar(&date, "date", "", "YYYY-MM-DD or RFC 3339")
	cmd.Flags().String("description", "", "free text")
	for _, f := range []string{"category", "type", "amount", "currency", "date"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func transactionsListCmd() *cobra.Command {
	var q transaction.ListQuery
	var kind, categoryID, from, to string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			q.Kind = model.Kind(strings.ToUpper(kind))
			if categoryID != "" {
				if q.CategoryID, err = parseID("category", categoryID); err != nil {
					return err
				}
			}
			if q.DateFrom, err = parseDate(from); err != nil {
				return err
			}
			if q.DateTo, err = parseDate(to); err != nil {
				return err
			}

			page, err := app.Transactions().List(cmd.Context(), owner, q)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), page)
		},
	}
	ownerFlag(cmd)
	cmd.Flags().StringVar(&kind, "type", "", "INCOME or EXPENSE")
	cmd.Flags().StringVar(&categoryID, "category", "", "category id")
	cmd.Flags().StringVar(&q.CurrencyCode, "currency", "", "ISO 4217 currency code")
	cmd.Flags().StringVar(&from, "from", "", "lower bound, inclusive")
	cmd.Flags().StringVar(&to, "to", "", "upper bound, inclusive; a plain date means its midnight UTC")
	cmd.Flags().IntVar(&q.Page, "page", transaction.DefaultPage, "page number")
	cmd.Flags().IntVar(&q.Limit, "limit", transaction.DefaultLimit, "page size")
	return cmd
}

func transactionsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("transaction id", args[0])
			if err != nil {
				return err
			}
			view, err := app.Transactions().Get(cmd.Context(), owner, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	ownerFlag(cmd)
	return cmd
}

func transactionsUpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change some fields of a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("transaction id", args[0])
			if err != nil {
				return err
			}

			in := transaction.UpdateInput{
				Amount:       optionalString(cmd, "amount"),
				CurrencyCode: optionalString(cmd, "currency"),
				Description:  optionalString(cmd, "description"),
			}
			if raw := optionalString(cmd, "category"); raw != nil {
				cat, err := parseID("category", *raw)
				if err != nil {
					return err
				}
				in.CategoryID = &cat
			}
			if raw := optionalString(cmd, "type"); raw != nil {
				k := model.Kind(strings.ToUpper(*raw))
				in.Kind = &k
			}
			if raw := optionalString(cmd, "date"); raw != nil {
				if in.Date, err = parseDate(*raw); err != nil {
					return err
				}
			}

			view, err := app.Transactions().Update(cmd.Context(), owner, id, in)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
	ownerFlag(cmd)
	cmd.Flags().String("category", "", "category id")
	cmd.Flags().String("type", "", "INCOME or EXPENSE")
	cmd.Flags().String("amount", "", "positive amount")
	cmd.Flags().String("currency", "", "ISO 4217 currency code")
	cmd.Flags().String("date", "", "YYYY-MM-DD or RFC 3339")
	cmd.Flags().String("description", "", "free text")
	return cmd
}

func transactionsDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := parseOwner(cmd)
			if err != nil {
				return err
			}
			id, err := parseID("transaction id", args[0])
			if err != nil {
				return err
			}
			if err := app.Transactions().Delete(cmd.Context(), owner, id); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": id.String()})
		},
	}
	ownerFlag(cmd)
	return cmd
}
