package journal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propledger/propledger/internal/model"
)

// mockAccounts implements AccountChecker for testing.
type mockAccounts struct {
	accts map[uint]model.Account
}

func (m *mockAccounts) Account(id uint) (model.Account, bool) {
	a, ok := m.accts[id]
	return a, ok
}

func newMockAccounts(ids ...uint) *mockAccounts {
	m := &mockAccounts{accts: make(map[uint]model.Account)}
	for _, id := range ids {
		m.accts[id] = model.Account{ID: id, Code: "x", Name: "acct", IsActive: true}
	}
	return m
}

func ln(acct uint, debit, credit string) model.JournalEntryLine {
	return model.JournalEntryLine{AccountID: acct, DebitAmount: dec(debit), CreditAmount: dec(credit)}
}

var defaultAccounts = newMockAccounts(1, 2, 3, 4)

func rules(errs ValidationErrors) []Rule {
	var out []Rule
	for _, e := range errs {
		out = append(out, e.Rule)
	}
	return out
}

func TestValidate_Balanced(t *testing.T) {
	errs := Validate("JE-2025-00001", []model.JournalEntryLine{ln(1, "100.00", "0"), ln(2, "0", "100.00")}, defaultAccounts)
	assert.Empty(t, errs)
}

func TestValidate_SplitBalanced(t *testing.T) {
	lines := []model.JournalEntryLine{
		ln(1, "60.25", "0"),
		ln(3, "39.75", "0"),
		ln(2, "0", "100"),
	}
	assert.Empty(t, Validate("JE-2025-00002", lines, defaultAccounts))
}

func TestValidate_Rules(t *testing.T) {
	inactive := newMockAccounts(1, 2)
	a := inactive.accts[2]
	a.IsActive = false
	inactive.accts[2] = a

	tests := []struct {
		name     string
		lines    []model.JournalEntryLine
		accounts AccountChecker
		want     []Rule
	}{
		{
			name:     "unbalanced",
			lines:    []model.JournalEntryLine{ln(1, "100", "0"), ln(2, "0", "99.99")},
			accounts: defaultAccounts,
			want:     []Rule{RuleBalanced},
		},
		{
			name:     "both sides on one line",
			lines:    []model.JournalEntryLine{ln(1, "50", "50"), ln(2, "0", "0")},
			accounts: defaultAccounts,
			want:     []Rule{RuleOneSided, RuleOneSided},
		},
		{
			name:     "negative amount",
			lines:    []model.JournalEntryLine{ln(1, "-10", "0"), ln(2, "-10", "0")},
			accounts: defaultAccounts,
			want:     []Rule{RuleNonNegative, RuleNonNegative, RuleBalanced},
		},
		{
			name:     "three decimals",
			lines:    []model.JournalEntryLine{ln(1, "10.005", "0"), ln(2, "0", "10.005")},
			accounts: defaultAccounts,
			want:     []Rule{RulePrecision, RulePrecision},
		},
		{
			name:     "unknown account",
			lines:    []model.JournalEntryLine{ln(1, "10", "0"), ln(99, "0", "10")},
			accounts: defaultAccounts,
			want:     []Rule{RuleAccount},
		},
		{
			name:     "inactive account",
			lines:    []model.JournalEntryLine{ln(1, "10", "0"), ln(2, "0", "10")},
			accounts: inactive,
			want:     []Rule{RuleAccount},
		},
		{
			name:     "single line",
			lines:    []model.JournalEntryLine{ln(1, "10", "0")},
			accounts: defaultAccounts,
			want:     []Rule{RuleMinLines, RuleBalanced},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate("JE-2025-00003", tt.lines, tt.accounts)
			assert.ElementsMatch(t, tt.want, rules(errs))
		})
	}
}

func TestValidationErrors(t *testing.T) {
	errs := Validate("JE-2025-00004", []model.JournalEntryLine{ln(1, "10", "0"), ln(99, "0", "5")}, defaultAccounts)
	require.Len(t, errs, 2)

	assert.True(t, errs.Has(RuleBalanced))
	assert.False(t, errs.Has(RuleOneSided))
	assert.Equal(t, []Rule{RuleAccount}, rules(errs.Without(RuleBalanced)))

	var err error = errs
	var target ValidationErrors
	require.True(t, errors.As(err, &target))
	assert.Contains(t, err.Error(), "JE-2025-00004 line 2")
	assert.Contains(t, err.Error(), "debits (10.00) != credits (5.00)")
}

func TestChart(t *testing.T) {
	c := NewChart([]model.Account{{ID: 7, Code: "1010"}})
	a, ok := c.Account(7)
	require.True(t, ok)
	assert.Equal(t, "1010", a.Code)
	_, ok = c.Account(8)
	assert.False(t, ok)
}
