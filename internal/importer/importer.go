package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/propledger/propledger/internal/billing"
	"github.com/propledger/propledger/internal/model"
)

// Receipt is one incoming payment read from an import file. An empty
// InvoiceNumber records the money without settling an invoice.
type Receipt struct {
	Row           int
	Date          time.Time
	InvoiceNumber string
	Amount        decimal.Decimal
	Method        model.PaymentMethod
	Reference     string
}

// Parser converts an import file into Receipts.
type Parser interface {
	Parse(r io.Reader) ([]Receipt, error)
	Format() string
}

// Registry holds named parsers.
type Registry struct {
	parsers map[string]Parser
}

// FileInfo describes a CSV file in the import directory.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// NewRegistry creates an empty parser registry.
func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// Register adds a parser. Panics on duplicate format.
func (r *Registry) Register(p Parser) {
	key := strings.ToLower(p.Format())
	if _, ok := r.parsers[key]; ok {
		panic("duplicate parser format: " + key)
	}
	r.parsers[key] = p
}

// Get returns the parser for format, or nil.
func (r *Registry) Get(format string) Parser {
	return r.parsers[strings.ToLower(format)]
}

// Formats lists the registered format names in order.
func (r *Registry) Formats() []string {
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry returns a registry with all built-in parsers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&ReceiptsParser{})
	r.Register(&BankParser{})
	return r
}

// processedDir is the subdirectory processed files are moved to.
const processedDir = "processed"

// Scan returns the CSV files directly inside dir.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading import dir: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !strings.HasSuffix(strings.ToLower(e.Name()), ".csv") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	return files, nil
}

// MarkProcessed moves a file from dir to dir/processed/.
func MarkProcessed(dir, fileName string) error {
	src := filepath.Join(dir, fileName)
	dstDir := filepath.Join(dir, processedDir)

	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating processed dir: %w", err)
	}

	dst := filepath.Join(dstDir, fileName)
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("moving %s to processed: %w", fileName, err)
	}
	return nil
}

// Payments is the billing surface Apply records receipts through.
type Payments interface {
	GetInvoiceByNumber(ctx context.Context, number string) (model.Invoice, error)
	FindPaymentByReference(ctx context.Context, ref string) (model.Payment, bool, error)
	RecordPayment(ctx context.Context, p billing.PaymentParams) (billing.PaymentResult, error)
}

// Outcome classifies what happened to one receipt.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Result is the outcome of one receipt.
type Result struct {
	Receipt       Receipt
	Outcome       Outcome
	PaymentNumber string
	InvoiceStatus model.InvoiceStatus
	Err           error
}

// Summary is the outcome of a whole import.
type Summary struct {
	Results   []Result
	Applied   int
	Duplicate int
	Failed    int
}

// Apply records each receipt as its own payment. A failing row does not stop
// the rest; receipts whose reference was already recorded are skipped.
func Apply(ctx context.Context, payments Payments, receipts []Receipt, actor string, log *zap.Logger) Summary {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("importer")

	var sum Summary
	for _, rc := range receipts {
		res := applyOne(ctx, payments, rc, actor)
		switch res.Outcome {
		case OutcomeApplied:
			sum.Applied++
		case OutcomeDuplicate:
			sum.Duplicate++
			log.Info("receipt already imported, skipping",
				zap.Int("row", rc.Row),
				zap.String("reference", rc.Reference),
				zap.String("payment_number", res.PaymentNumber),
			)
		case OutcomeFailed:
			sum.Failed++
			log.Warn("receipt not imported", zap.Int("row", rc.Row), zap.Error(res.Err))
		}
		sum.Results = append(sum.Results, res)
	}
	return sum
}

func applyOne(ctx context.Context, payments Payments, rc Receipt, actor string) Result {
	res := Result{Receipt: rc}
	fail := func(err error) Result {
		res.Outcome, res.Err = OutcomeFailed, err
		return res
	}

	if rc.Reference != "" {
		existing, found, err := payments.FindPaymentByReference(ctx, rc.Reference)
		if err != nil {
			return fail(err)
		}
		if found {
			res.Outcome, res.PaymentNumber = OutcomeDuplicate, existing.PaymentNumber
			return res
		}
	}

	params := billing.PaymentParams{
		Type:      model.PaymentTypeReceipt,
		Date:      rc.Date,
		Method:    rc.Method,
		Amount:    rc.Amount,
		Reference: rc.Reference,
		Notes:     fmt.Sprintf("imported row %d", rc.Row),
		CreatedBy: actor,
	}
	if rc.InvoiceNumber != "" {
		inv, err := payments.GetInvoiceByNumber(ctx, rc.InvoiceNumber)
		if err != nil {
			return fail(err)
		}
		params.InvoiceID = &inv.ID
	}

	recorded, err := payments.RecordPayment(ctx, params)
	if err != nil {
		return fail(err)
	}
	res.Outcome = OutcomeApplied
	res.PaymentNumber = recorded.Payment.PaymentNumber
	if recorded.Invoice != nil {
		res.InvoiceStatus = recorded.Invoice.Status
	}
	return res
}

// ErrUnknownFormat is returned for a format no parser is registered for.
var ErrUnknownFormat = errors.New("unknown import format")

// ParseFile reads path with the parser registered for format.
func (r *Registry) ParseFile(format, path string) ([]Receipt, error) {
	p := r.Get(format)
	if p == nil {
		return nil, fmt.Errorf("%w: %q (known: %s)", ErrUnknownFormat, format, strings.Join(r.Formats(), ", "))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return p.Parse(f)
}
