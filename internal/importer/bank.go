package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propledger/propledger/internal/model"
)

// BankParser parses checking-account CSV exports
// (Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #).
// Only deposits become receipts; an invoice number in the description
// settles that invoice.
type BankParser struct{}

const (
	bankDateFormat = "01/02/2006"
	bankNumFields  = 7
	bankColDate    = 1
	bankColDesc    = 2
	bankColAmount  = 3
	bankColType    = 4
	bankColCheck   = 6
)

var invoiceNumberRe = regexp.MustCompile(`INV-\d{4}-\d{5}`)

// Format returns the parser name.
func (p *BankParser) Format() string { return "bank" }

// Parse reads a bank CSV and returns its deposits.
func (p *BankParser) Parse(r io.Reader) ([]Receipt, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = bankNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading bank CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var out []Receipt
	for i, rec := range records[1:] {
		rc, ok, err := parseBankRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if !ok {
			continue
		}
		rc.Row = i + 2
		out = append(out, rc)
	}
	return out, nil
}

func parseBankRow(rec []string) (Receipt, bool, error) {
	date, err := time.Parse(bankDateFormat, rec[bankColDate])
	if err != nil {
		return Receipt{}, false, fmt.Errorf("parsing date %q: %w", rec[bankColDate], err)
	}

	amount, err := decimal.NewFromString(rec[bankColAmount])
	if err != nil {
		return Receipt{}, false, fmt.Errorf("parsing amount %q: %w", rec[bankColAmount], err)
	}
	if !amount.IsPositive() {
		return Receipt{}, false, nil
	}

	desc := rec[bankColDesc]
	method := model.MethodBankTransfer
	if strings.TrimSpace(rec[bankColCheck]) != "" || strings.Contains(strings.ToUpper(rec[bankColType]), "CHECK") {
		method = model.MethodCheck
	}

	return Receipt{
		Date:          date,
		InvoiceNumber: invoiceNumberRe.FindString(strings.ToUpper(desc)),
		Amount:        amount,
		Method:        method,
		Reference:     makeBankRef(date, desc, amount),
	}, true, nil
}

// makeBankRef creates a reference like bank_20250103_ACMEPROPER_350000.
func makeBankRef(date time.Time, desc string, amount decimal.Decimal) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("bank_%s_%s_%s", date.Format("20060102"), prefix, amount.Shift(2).StringFixed(0))
}
