package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/propledger/propledger/internal/journal"
	"github.com/propledger/propledger/internal/model"
)

func newJournalCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"je"},
		Short:   "Record, post and reverse journal entries",
	}
	cmd.AddCommand(
		newJournalListCommand(g),
		newJournalShowCommand(g),
		newJournalAddCommand(g),
		newJournalPostCommand(g),
		newJournalReverseCommand(g),
		newJournalDeleteCommand(g),
		newJournalExportCommand(g),
		newJournalImportCommand(g),
	)
	return cmd
}

func newJournalListCommand(g *globalFlags) *cobra.Command {
	var (
		from, to string
		drafts   bool
		property uint
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List journal entries, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := entryFilter(from, to, property, limit)
			if err != nil {
				return err
			}
			if drafts {
				posted := false
				f.Posted = &posted
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				entries, err := a.journal.List(ctx, f)
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "NUMBER\tDATE\tTYPE\tDESCRIPTION\tDEBIT\tCREDIT\tSTATUS")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", e.EntryNumber, formatDate(e.EntryDate), e.EntryType,
						e.Description, money(e.TotalDebit()), money(e.TotalCredit()), entryStatus(e))
				}
				return tw.Flush()
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first entry date")
	cmd.Flags().StringVar(&to, "to", "", "last entry date")
	cmd.Flags().BoolVar(&drafts, "drafts", false, "only unposted entries")
	cmd.Flags().UintVar(&property, "property", 0, "only entries of this property")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum entries")
	return cmd
}

func entryFilter(from, to string, property uint, limit int) (journal.ListFilter, error) {
	f, err := parseDate(from, noDate)
	if err != nil {
		return journal.ListFilter{}, err
	}
	t, err := parseDate(to, noDate)
	if err != nil {
		return journal.ListFilter{}, err
	}
	return journal.ListFilter{From: f, To: t, PropertyID: optionalID(property), Limit: limit}, nil
}

func entryStatus(e model.JournalEntry) string {
	switch {
	case e.IsPosted:
		return "posted"
	case e.IsBalanced():
		return "draft"
	}
	return "draft (unbalanced)"
}

func newJournalShowCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <number>",
		Short: "Show an entry and its lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				e, err := a.journal.GetByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				printEntry(cmd.OutOrStdout(), e)
				return nil
			})
		},
	}
}

func printEntry(w io.Writer, e model.JournalEntry) {
	fmt.Fprintf(w, "%s  %s  %s  [%s]\n", e.EntryNumber, formatDate(e.EntryDate), e.Description, entryStatus(e))
	if e.Reference != "" {
		fmt.Fprintf(w, "Reference: %s\n", e.Reference)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ACCOUNT\tDESCRIPTION\tDEBIT\tCREDIT")
	for _, l := range e.Lines {
		label := fmt.Sprintf("#%d", l.AccountID)
		if l.Account != nil {
			label = l.Account.Label()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", label, l.Description, money(l.DebitAmount), money(l.CreditAmount))
	}
	fmt.Fprintf(tw, "\tTotal\t%s\t%s\n", money(e.TotalDebit()), money(e.TotalCredit()))
	_ = tw.Flush()
}

func newJournalAddCommand(g *globalFlags) *cobra.Command {
	var (
		date, desc, ref string
		entryType       string
		property        uint
		lines           []string
		post            bool
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a draft entry",
		Long: `Record a draft entry from --line flags of the form CODE:DEBIT:CREDIT[:DESCRIPTION].
Leave the unused side empty, e.g. --line 5010:300: --line 1020::300.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(date, today())
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				params := journal.CreateParams{
					Date:        d,
					Type:        model.EntryType(entryType),
					Description: desc,
					Reference:   ref,
					PropertyID:  optionalID(property),
					CreatedBy:   a.actor,
				}
				for _, raw := range lines {
					lp, err := parseLine(ctx, a, raw)
					if err != nil {
						return err
					}
					params.Lines = append(params.Lines, lp)
				}
				e, err := a.journal.Create(ctx, params)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Recorded %s\n", e.EntryNumber)
				if !post {
					return nil
				}
				return postEntry(ctx, a, out, e.ID)
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "entry date (default today)")
	cmd.Flags().StringVar(&desc, "description", "", "description (required)")
	cmd.Flags().StringVar(&ref, "reference", "", "external reference")
	cmd.Flags().StringVar(&entryType, "type", string(model.EntryTypeManual), "manual, adjustment, opening or closing")
	cmd.Flags().UintVar(&property, "property", 0, "property the entry belongs to")
	cmd.Flags().StringArrayVar(&lines, "line", nil, "CODE:DEBIT:CREDIT[:DESCRIPTION], repeatable")
	cmd.Flags().BoolVar(&post, "post", false, "post the entry right away")
	_ = cmd.MarkFlagRequired("description")
	return cmd
}

func parseLine(ctx context.Context, a *app, raw string) (journal.LineParams, error) {
	parts, err := splitFields(raw, 3, 4, "line")
	if err != nil {
		return journal.LineParams{}, err
	}
	id, err := a.accountID(ctx, parts[0])
	if err != nil {
		return journal.LineParams{}, err
	}
	debit, err := parseAmount(parts[1])
	if err != nil {
		return journal.LineParams{}, err
	}
	credit, err := parseAmount(parts[2])
	if err != nil {
		return journal.LineParams{}, err
	}
	lp := journal.LineParams{AccountID: id, Debit: debit, Credit: credit}
	if len(parts) == 4 {
		lp.Description = parts[3]
	}
	return lp, nil
}

func postEntry(ctx context.Context, a *app, out io.Writer, entryID uint) error {
	res, err := a.journal.Post(ctx, entryID, a.actor)
	if err != nil {
		return err
	}
	if !res.Posted {
		for _, v := range res.Violations {
			fmt.Fprintf(out, "  %s\n", v.Error())
		}
		return fmt.Errorf("%s: %w", res.Reason, res.Cause)
	}
	fmt.Fprintf(out, "Posted %s\n", res.Entry.EntryNumber)
	return nil
}

func newJournalPostCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "post <number>",
		Short: "Post a balanced draft entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				e, err := a.journal.GetByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				return postEntry(ctx, a, cmd.OutOrStdout(), e.ID)
			})
		},
	}
}

func newJournalReverseCommand(g *globalFlags) *cobra.Command {
	var date, reason string
	cmd := &cobra.Command{
		Use:   "reverse <number>",
		Short: "Post an entry that reverses a posted entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := parseDate(date, today())
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				e, err := a.journal.GetByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				rev, err := a.journal.Reverse(ctx, e.ID, d, reason, a.actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reversed %s with %s\n", e.EntryNumber, rev.EntryNumber)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "reversal date (default today)")
	cmd.Flags().StringVar(&reason, "reason", "", "why the entry is reversed (required)")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func newJournalDeleteCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <number>",
		Short: "Delete a draft entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(g, func(ctx context.Context, a *app) error {
				e, err := a.journal.GetByNumber(ctx, args[0])
				if err != nil {
					return err
				}
				if err := a.journal.Delete(ctx, e.ID, a.actor); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", e.EntryNumber)
				return nil
			})
		},
	}
}

func newJournalExportCommand(g *globalFlags) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Write journal lines as CSV",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := entryFilter(from, to, 0, 0)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				entries, err := a.journal.List(ctx, f)
				if err != nil {
					return err
				}
				if len(args) == 0 {
					return journal.WriteLines(cmd.OutOrStdout(), entries)
				}
				out, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating %s: %w", args[0], err)
				}
				if err := journal.WriteLines(out, entries); err != nil {
					out.Close()
					return err
				}
				return out.Close()
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first entry date")
	cmd.Flags().StringVar(&to, "to", "", "last entry date")
	return cmd
}

func newJournalImportCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Create entries from a journal lines CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			lines, err := journal.ReadLines(f)
			if err != nil {
				return err
			}
			return withApp(g, func(ctx context.Context, a *app) error {
				res, err := a.journal.Import(ctx, lines, a.actor)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %d entries (%d posted), skipped %d already recorded\n",
					len(res.Created), len(res.Posted), len(res.Skipped))
				return nil
			})
		},
	}
}
