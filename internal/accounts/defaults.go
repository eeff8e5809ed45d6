package accounts

import "github.com/propledger/propledger/internal/model"

// System account codes referenced by automated postings.
const (
	CodeCash               = "1010"
	CodeBank               = "1020"
	CodeChecksReceived     = "1030"
	CodeMortgageReceivable = "1040"
	CodeReceivable         = "1100"
	CodePayable            = "2010"
	CodeSecurityDeposits   = "2100"
	CodeCustomerAdvances   = "2200"
	CodeOwnersCapital      = "3010"
	CodeRetainedEarnings   = "3100"
	CodeSalesRevenue       = "4010"
	CodeRentalIncome       = "4020"
	CodeServiceIncome      = "4030"
	CodeMaintenance        = "5010"
	CodeUtilities          = "5020"
	CodeManagementFees     = "5030"
	CodeSalaries           = "5040"
	CodePropertyTaxes      = "5050"
	CodeInsurance          = "5060"
)

// DefaultChart returns the seeded chart of accounts for a property portfolio.
func DefaultChart() []model.Account {
	return []model.Account{
		sys(CodeCash, "Cash on Hand", model.AccountTypeAsset, "Physical cash"),
		sys(CodeBank, "Bank Account - Main", model.AccountTypeAsset, "Primary operating bank account"),
		sys(CodeChecksReceived, "Checks Received", model.AccountTypeAsset, "Checks awaiting deposit"),
		sys(CodeMortgageReceivable, "Mortgage Receivable", model.AccountTypeAsset, "Amounts financed through mortgage"),
		sys(CodeReceivable, "Accounts Receivable", model.AccountTypeAsset, "Issued invoices not yet collected"),
		sys(CodePayable, "Accounts Payable", model.AccountTypeLiability, "Supplier bills not yet paid"),
		sys(CodeSecurityDeposits, "Security Deposits Held", model.AccountTypeLiability, "Tenant deposits"),
		sys(CodeCustomerAdvances, "Customer Advances", model.AccountTypeLiability, "Down payments received before delivery"),
		sys(CodeOwnersCapital, "Owner's Capital", model.AccountTypeEquity, ""),
		sys(CodeRetainedEarnings, "Retained Earnings", model.AccountTypeEquity, ""),
		sys(CodeSalesRevenue, "Property Sales Revenue", model.AccountTypeRevenue, ""),
		sys(CodeRentalIncome, "Rental Income", model.AccountTypeRevenue, ""),
		sys(CodeServiceIncome, "Service & Late Fee Income", model.AccountTypeRevenue, ""),
		sys(CodeMaintenance, "Maintenance & Repairs", model.AccountTypeExpense, ""),
		sys(CodeUtilities, "Utilities", model.AccountTypeExpense, ""),
		sys(CodeManagementFees, "Property Management Fees", model.AccountTypeExpense, ""),
		sys(CodeSalaries, "Salaries & Wages", model.AccountTypeExpense, ""),
		sys(CodePropertyTaxes, "Property Taxes", model.AccountTypeExpense, ""),
		sys(CodeInsurance, "Insurance", model.AccountTypeExpense, ""),
	}
}

// SystemAccount returns the default definition for a system code.
func SystemAccount(code string) (model.Account, bool) {
	for _, a := range DefaultChart() {
		if a.Code == code {
			return a, true
		}
	}
	return model.Account{}, false
}

func sys(code, name string, t model.AccountType, desc string) model.Account {
	return model.Account{Code: code, Name: name, Type: t, Description: desc, IsSystem: true}
}
