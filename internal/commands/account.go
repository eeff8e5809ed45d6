package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/model"
)

func newAccountCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage the chart of accounts",
	}
	cmd.AddCommand(
		newAccountListCommand(g),
		newAccountAddCommand(g),
		newAccountShowCommand(g),
		newAccountDeactivateCommand(g),
		newAccountDeleteCommand(g),
		newAccountExportCommand(g),
		newAccountImportCommand(g),
	)
	return cmd
}

func newAccountListCommand(g *globalFlags) *cobra.Command {
	var (
		accountType string
		all         bool
		search      string
		asOf        string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			at, err := parseDate(asOf, today())
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				accts, err := a.accounts.List(ctx, accounts.Filter{
					Type:       model.AccountType(accountType),
					ActiveOnly: !all,
					Search:     search,
				})
				if err != nil {
					return err
				}
				balances, err := a.accounts.Balances(ctx, at)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "CODE\tNAME\tTYPE\tBALANCE")
				for _, acct := range accts {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", acct.Code, acct.Name, acct.Type, money(balances[acct.ID]))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&accountType, "type", "", "only accounts of this type")
	cmd.Flags().BoolVar(&all, "all", false, "include inactive accounts")
	cmd.Flags().StringVar(&search, "search", "", "match code or name")
	cmd.Flags().StringVar(&asOf, "as-of", "", "balance date (default today)")
	return cmd
}

func newAccountAddCommand(g *globalFlags) *cobra.Command {
	var (
		acct        model.Account
		accountType string
		parent      string
		opening     string
		openingSide string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			amt, err := parseAmount(opening)
			if err != nil {
				return err
			}
			acct.Type = model.AccountType(accountType)
			acct.OpeningBalance = amt
			acct.OpeningBalanceType = model.BalanceSide(openingSide)
			acct.IsActive = true
			return withApp(g, func(ctx context.Context, a *app) error {
				if parent != "" {
					id, err := a.accountID(ctx, parent)
					if err != nil {
						return err
					}
					acct.ParentID = &id
				}
				if err := a.accounts.Create(ctx, &acct); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s\n", acct.Label())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&acct.Code, "code", "", "account code (required)")
	cmd.Flags().StringVar(&acct.Name, "name", "", "account name (required)")
	cmd.Flags().StringVar(&accountType, "type", "", "asset, liability, equity, revenue or expense (required)")
	cmd.Flags().StringVar(&parent, "parent", "", "parent account code")
	cmd.Flags().StringVar(&acct.Description, "description", "", "description")
	cmd.Flags().StringVar(&opening, "opening", "", "opening balance")
	cmd.Flags().StringVar(&openingSide, "opening-side", "", "debit or credit (default the normal side)")
	_ = cmd.MarkFlagRequired("code")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newAccountShowCommand(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show <code>",
		Short: "Show an account's balance and recent posted lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				acct, err := a.accounts.GetByCode(ctx, args[0])
				if err != nil {
					return err
				}
				bal, err := a.accounts.Balance(ctx, acct.ID)
				if err != nil {
					return err
				}
				lines, err := a.journal.AccountLines(ctx, acct.ID, limit)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s (%s)\nBalance: %s\n\n", acct.Label(), acct.Type, money(bal))
				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "DATE\tENTRY\tDESCRIPTION\tDEBIT\tCREDIT")
				for _, l := range lines {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
						formatDate(l.EntryDate), l.EntryNumber, l.Description, money(l.DebitAmount), money(l.CreditAmount))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of lines to show")
	return cmd
}

func newAccountDeactivateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <code>",
		Short: "Hide an account from new entries and active listings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				id, err := a.accountID(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.accounts.Deactivate(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deactivated %s\n", args[0])
				return nil
			})
		},
	}
}

func newAccountDeleteCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <code>",
		Short: "Delete an account that has no journal lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				id, err := a.accountID(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.accounts.Delete(ctx, id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
				return nil
			})
		},
	}
}

func newAccountExportCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write the chart of accounts as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				accts, err := a.accounts.List(ctx, accounts.Filter{})
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return accounts.WriteAccounts(cmd.OutOrStdout(), accts)
				}
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating %s: %w", args[0], err)
				}
				if err := accounts.WriteAccounts(f, accts); err != nil {
					f.Close()
					return err
				}
				return f.Close()
			})
		},
	}
}

func newAccountImportCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Add the accounts of a chart-of-accounts CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			chart, parents, err := accounts.ReadAccounts(f)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				n, err := a.accounts.Import(ctx, chart, parents)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d accounts\n", n, len(chart))
				return nil
			})
		},
	}
}
