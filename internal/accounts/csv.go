package accounts

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/propledger/propledger/internal/model"
)

const (
	numFields  = 6
	colCode    = 0
	colName    = 1
	colType    = 2
	colParent  = 3
	colOpening = 4
	colDesc    = 5
)

var header = []string{"code", "name", "account_type", "parent_code", "opening_balance", "description"}

// ReadAccounts reads a chart-of-accounts CSV. Parent codes are returned in
// the parents map keyed by child code, since IDs only exist once stored.
func ReadAccounts(r io.Reader) ([]model.Account, map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading accounts CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil, nil
	}

	var accounts []model.Account
	parents := make(map[string]string)
	for i, rec := range records[1:] {
		acct, parent, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if parent != "" {
			parents[acct.Code] = parent
		}
		accounts = append(accounts, acct)
	}
	return accounts, parents, nil
}

// WriteAccounts writes a chart-of-accounts CSV with parents written by code.
func WriteAccounts(w io.Writer, accounts []model.Account) error {
	codes := make(map[uint]string, len(accounts))
	for _, a := range accounts {
		codes[a.ID] = a.Code
	}

	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, acct := range accounts {
		parent := ""
		if acct.ParentID != nil {
			parent = codes[*acct.ParentID]
		}
		if err := cw.Write(MarshalAccount(acct, parent)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(acct model.Account, parentCode string) []string {
	row := make([]string, numFields)
	row[colCode] = acct.Code
	row[colName] = acct.Name
	row[colType] = string(acct.Type)
	row[colParent] = parentCode
	if !acct.OpeningBalance.IsZero() {
		row[colOpening] = acct.SignedOpening().StringFixed(2)
	}
	row[colDesc] = acct.Description
	return row
}

// UnmarshalAccount converts a CSV row to an Account and its parent code.
// A negative opening balance sits on the side opposite the normal one.
func UnmarshalAccount(record []string) (model.Account, string, error) {
	if len(record) != numFields {
		return model.Account{}, "", fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	acctType := model.AccountType(record[colType])
	if !acctType.Valid() {
		return model.Account{}, "", fmt.Errorf("%w: %q", ErrInvalidType, record[colType])
	}

	acct := model.Account{
		Code:               record[colCode],
		Name:               record[colName],
		Type:               acctType,
		OpeningBalanceType: acctType.NormalSide(),
		Description:        record[colDesc],
	}

	if record[colOpening] != "" {
		amt, err := decimal.NewFromString(record[colOpening])
		if err != nil {
			return model.Account{}, "", fmt.Errorf("parsing opening_balance %q: %w", record[colOpening], err)
		}
		if amt.IsNegative() {
			acct.OpeningBalanceType = opposite(acct.OpeningBalanceType)
		}
		acct.OpeningBalance = amt.Abs()
	}

	return acct, record[colParent], nil
}

func opposite(side model.BalanceSide) model.BalanceSide {
	if side == model.SideDebit {
		return model.SideCredit
	}
	return model.SideDebit
}
