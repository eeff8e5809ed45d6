package journal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/propledger/propledger/internal/model"
)

// Rule names one ledger rule a journal entry must satisfy.
type Rule string

const (
	RuleBalanced    Rule = "balanced"
	RuleOneSided    Rule = "one_sided"
	RuleNonNegative Rule = "non_negative"
	RulePrecision   Rule = "precision"
	RuleAccount     Rule = "account"
	RuleMinLines    Rule = "min_lines"
)

// ValidationError describes a single rule violation.
type ValidationError struct {
	Rule        Rule
	Entry       string
	Line        int
	Description string
}

func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s [%s line %d]: %s", e.Rule, e.Entry, e.Line, e.Description)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.Entry, e.Description)
}

// ValidationErrors is every violation found in one entry.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Has reports whether any violation is of rule r.
func (es ValidationErrors) Has(r Rule) bool {
	for _, e := range es {
		if e.Rule == r {
			return true
		}
	}
	return false
}

// Without returns the violations that are not of rule r.
func (es ValidationErrors) Without(r Rule) ValidationErrors {
	var out ValidationErrors
	for _, e := range es {
		if e.Rule != r {
			out = append(out, e)
		}
	}
	return out
}

// AccountChecker looks up accounts referenced by lines.
type AccountChecker interface {
	Account(id uint) (model.Account, bool)
}

// Chart is an AccountChecker over a fixed set of accounts.
type Chart map[uint]model.Account

// NewChart indexes accounts by ID.
func NewChart(accts []model.Account) Chart {
	c := make(Chart, len(accts))
	for _, a := range accts {
		c[a.ID] = a
	}
	return c
}

// Account implements AccountChecker.
func (c Chart) Account(id uint) (model.Account, bool) {
	a, ok := c[id]
	return a, ok
}

var hundred = decimal.NewFromInt(100)

// Validate checks the lines of one entry against every ledger rule.
func Validate(entry string, lines []model.JournalEntryLine, accounts AccountChecker) ValidationErrors {
	var errs ValidationErrors

	if len(lines) < 2 {
		errs = append(errs, ValidationError{
			Rule:        RuleMinLines,
			Entry:       entry,
			Description: fmt.Sprintf("entry needs at least 2 lines, has %d", len(lines)),
		})
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, l := range lines {
		n := i + 1
		totalDebit = totalDebit.Add(l.DebitAmount)
		totalCredit = totalCredit.Add(l.CreditAmount)

		if l.DebitAmount.IsNegative() || l.CreditAmount.IsNegative() {
			errs = append(errs, ValidationError{
				Rule:        RuleNonNegative,
				Entry:       entry,
				Line:        n,
				Description: fmt.Sprintf("amounts must not be negative (debit %s, credit %s)", l.DebitAmount, l.CreditAmount),
			})
		}

		hasDebit := !l.DebitAmount.IsZero()
		hasCredit := !l.CreditAmount.IsZero()
		if hasDebit == hasCredit {
			errs = append(errs, ValidationError{
				Rule:        RuleOneSided,
				Entry:       entry,
				Line:        n,
				Description: "line must have exactly one of debit or credit",
			})
		}

		for _, amt := range []decimal.Decimal{l.DebitAmount, l.CreditAmount} {
			if !amt.Mul(hundred).Equal(amt.Mul(hundred).Truncate(0)) {
				errs = append(errs, ValidationError{
					Rule:        RulePrecision,
					Entry:       entry,
					Line:        n,
					Description: fmt.Sprintf("amount %s has more than 2 decimal places", amt),
				})
			}
		}

		acct, ok := accounts.Account(l.AccountID)
		switch {
		case !ok:
			errs = append(errs, ValidationError{
				Rule:        RuleAccount,
				Entry:       entry,
				Line:        n,
				Description: fmt.Sprintf("unknown account %d", l.AccountID),
			})
		case !acct.IsActive:
			errs = append(errs, ValidationError{
				Rule:        RuleAccount,
				Entry:       entry,
				Line:        n,
				Description: fmt.Sprintf("account %s is inactive", acct.Label()),
			})
		}
	}

	if !totalDebit.Equal(totalCredit) {
		errs = append(errs, ValidationError{
			Rule:        RuleBalanced,
			Entry:       entry,
			Description: fmt.Sprintf("debits (%s) != credits (%s)", totalDebit.StringFixed(2), totalCredit.StringFixed(2)),
		})
	}

	return errs
}
