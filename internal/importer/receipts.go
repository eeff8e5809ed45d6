package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/propledger/propledger/internal/id"
	"github.com/propledger/propledger/internal/model"
)

// ReceiptsHeader is the header row of the receipts format.
var ReceiptsHeader = []string{"date", "invoice_number", "amount", "method", "reference"}

const (
	receiptsNumFields = 5
	receiptsColDate   = 0
	receiptsColInv    = 1
	receiptsColAmount = 2
	receiptsColMethod = 3
	receiptsColRef    = 4
)

// ReceiptsParser parses the native receipts CSV format. Dates are
// YYYY-MM-DD; an empty method means bank_transfer.
type ReceiptsParser struct{}

// Format returns the parser name.
func (p *ReceiptsParser) Format() string { return "receipts" }

// Parse reads a receipts CSV.
func (p *ReceiptsParser) Parse(r io.Reader) ([]Receipt, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = receiptsNumFields
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading receipts CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	for i, col := range ReceiptsHeader {
		if !strings.EqualFold(strings.TrimSpace(records[0][i]), col) {
			return nil, fmt.Errorf("receipts CSV: column %d is %q, want %q", i+1, records[0][i], col)
		}
	}

	var out []Receipt
	for i, rec := range records[1:] {
		rc, err := parseReceiptRow(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		rc.Row = i + 2
		out = append(out, rc)
	}
	return out, nil
}

func parseReceiptRow(rec []string) (Receipt, error) {
	date, err := time.Parse(time.DateOnly, strings.TrimSpace(rec[receiptsColDate]))
	if err != nil {
		return Receipt{}, fmt.Errorf("parsing date %q: %w", rec[receiptsColDate], err)
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(rec[receiptsColAmount]))
	if err != nil {
		return Receipt{}, fmt.Errorf("parsing amount %q: %w", rec[receiptsColAmount], err)
	}

	inv := strings.TrimSpace(rec[receiptsColInv])
	if inv != "" {
		if _, _, _, err := id.Parse(inv); err != nil {
			return Receipt{}, err
		}
	}
	method := model.PaymentMethod(strings.ToLower(strings.TrimSpace(rec[receiptsColMethod])))
	if method == "" {
		method = model.MethodBankTransfer
	}

	return Receipt{
		Date:          date,
		InvoiceNumber: inv,
		Amount:        amount,
		Method:        method,
		Reference:     strings.TrimSpace(rec[receiptsColRef]),
	}, nil
}
