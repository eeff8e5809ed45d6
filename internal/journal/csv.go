package journal

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/events"
	"github.com/propledger/propledger/internal/model"
)

// Header is the CSV header for journal line exports.
const Header = "entry_number,date,entry_type,account_code,description,debit,credit,reference,posted"

const (
	numFields   = 9
	dateFormat  = "2006-01-02"
	colEntry    = 0
	colDate     = 1
	colType     = 2
	colAcctCode = 3
	colDesc     = 4
	colDebit    = 5
	colCredit   = 6
	colRef      = 7
	colPosted   = 8
)

// LineRecord is one journal line as exchanged in CSV. Accounts are named by
// code so files move between ledgers.
type LineRecord struct {
	EntryNumber string
	Date        time.Time
	EntryType   model.EntryType
	AccountCode string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Reference   string
	Posted      bool
}

// Records flattens entries into line records. Lines must have their
// Account loaded.
func Records(entries []model.JournalEntry) []LineRecord {
	var out []LineRecord
	for _, e := range entries {
		for _, l := range e.Lines {
			code := ""
			if l.Account != nil {
				code = l.Account.Code
			}
			desc := l.Description
			if desc == "" {
				desc = e.Description
			}
			out = append(out, LineRecord{
				EntryNumber: e.EntryNumber,
				Date:        e.EntryDate,
				EntryType:   e.EntryType,
				AccountCode: code,
				Description: desc,
				Debit:       l.DebitAmount,
				Credit:      l.CreditAmount,
				Reference:   e.Reference,
				Posted:      e.IsPosted,
			})
		}
	}
	return out
}

// WriteLines writes the lines of entries as CSV, header included.
func WriteLines(w io.Writer, entries []model.JournalEntry) error {
	return WriteRecords(w, Records(entries))
}

// WriteRecords writes line records as CSV, header included.
func WriteRecords(w io.Writer, records []LineRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i, rec := range records {
		if err := cw.Write(MarshalLine(rec)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadLines reads line records from CSV written by WriteLines.
func ReadLines(r io.Reader) ([]LineRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading journal CSV: %w", err)
	}

	if len(records) == 0 {
		return nil, nil
	}

	// Skip header row.
	var lines []LineRecord
	for i, rec := range records[1:] {
		l, err := UnmarshalLine(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		lines = append(lines, l)
	}
	return lines, nil
}

// MarshalLine converts a LineRecord to a CSV row.
func MarshalLine(l LineRecord) []string {
	row := make([]string, numFields)
	row[colEntry] = l.EntryNumber
	row[colDate] = l.Date.Format(dateFormat)
	row[colType] = string(l.EntryType)
	row[colAcctCode] = l.AccountCode
	row[colDesc] = l.Description

	if !l.Debit.IsZero() {
		row[colDebit] = l.Debit.StringFixed(2)
	}
	if !l.Credit.IsZero() {
		row[colCredit] = l.Credit.StringFixed(2)
	}

	row[colRef] = l.Reference
	row[colPosted] = strconv.FormatBool(l.Posted)
	return row
}

// UnmarshalLine converts a CSV row to a LineRecord.
func UnmarshalLine(record []string) (LineRecord, error) {
	if len(record) != numFields {
		return LineRecord{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}

	date, err := time.Parse(dateFormat, record[colDate])
	if err != nil {
		return LineRecord{}, fmt.Errorf("parsing date %q: %w", record[colDate], err)
	}

	entryType := model.EntryType(record[colType])
	if entryType == "" {
		entryType = model.EntryTypeManual
	}
	if !entryType.Valid() {
		return LineRecord{}, fmt.Errorf("unknown entry type %q", record[colType])
	}

	var debit, credit decimal.Decimal

	if record[colDebit] != "" {
		debit, err = decimal.NewFromString(record[colDebit])
		if err != nil {
			return LineRecord{}, fmt.Errorf("parsing debit %q: %w", record[colDebit], err)
		}
	}

	if record[colCredit] != "" {
		credit, err = decimal.NewFromString(record[colCredit])
		if err != nil {
			return LineRecord{}, fmt.Errorf("parsing credit %q: %w", record[colCredit], err)
		}
	}

	posted := false
	if record[colPosted] != "" {
		posted, err = strconv.ParseBool(record[colPosted])
		if err != nil {
			return LineRecord{}, fmt.Errorf("parsing posted %q: %w", record[colPosted], err)
		}
	}

	return LineRecord{
		EntryNumber: record[colEntry],
		Date:        date,
		EntryType:   entryType,
		AccountCode: record[colAcctCode],
		Description: record[colDesc],
		Debit:       debit,
		Credit:      credit,
		Reference:   record[colRef],
		Posted:      posted,
	}, nil
}

// GroupRecords groups line records by entry number in first-seen order.
func GroupRecords(lines []LineRecord) [][]LineRecord {
	var (
		order  []string
		groups = make(map[string][]LineRecord)
	)
	for _, l := range lines {
		if _, seen := groups[l.EntryNumber]; !seen {
			order = append(order, l.EntryNumber)
		}
		groups[l.EntryNumber] = append(groups[l.EntryNumber], l)
	}

	out := make([][]LineRecord, len(order))
	for i, n := range order {
		out[i] = groups[n]
	}
	return out
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Created []string
	Posted  []string
	Skipped []string
}

// Import creates one entry per group of line records, numbered by this
// ledger, and posts the groups marked posted. Groups whose reference is
// already recorded are skipped, as are reference-less groups matching the
// entry of the same number line for line. All groups commit together or not
// at all.
func (s *Service) Import(ctx context.Context, lines []LineRecord, actor string) (ImportResult, error) {
	var (
		result  ImportResult
		posted  []PostResult
		pending []events.Event
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		codes := make(map[string]uint)
		for _, group := range GroupRecords(lines) {
			head := group[0]
			if head.Reference != "" {
				if _, found, err := s.findByReference(ctx, tx, head.Reference); err != nil {
					return err
				} else if found {
					result.Skipped = append(result.Skipped, head.EntryNumber)
					continue
				}
			} else if dup, err := alreadyImported(ctx, tx, group); err != nil {
				return err
			} else if dup {
				result.Skipped = append(result.Skipped, head.EntryNumber)
				continue
			}

			params := CreateParams{
				Date:        head.Date,
				Type:        head.EntryType,
				Description: head.Description,
				Reference:   head.Reference,
				CreatedBy:   actor,
			}
			for _, l := range group {
				acctID, err := accountIDByCode(ctx, tx, codes, l.AccountCode)
				if err != nil {
					return fmt.Errorf("entry %s: %w", head.EntryNumber, err)
				}
				params.Lines = append(params.Lines, LineParams{
					AccountID:   acctID,
					Debit:       l.Debit,
					Credit:      l.Credit,
					Description: l.Description,
				})
			}

			entry, err := s.CreateTx(ctx, tx, params)
			if err != nil {
				return fmt.Errorf("entry %s: %w", head.EntryNumber, err)
			}
			result.Created = append(result.Created, entry.EntryNumber)
			if !head.Posted {
				continue
			}

			res, evts, err := s.PostTx(ctx, tx, entry, actor)
			if err != nil {
				return err
			}
			if !res.Posted {
				return fmt.Errorf("entry %s: %s: %w", head.EntryNumber, res.Reason, res.Cause)
			}
			result.Posted = append(result.Posted, entry.EntryNumber)
			posted = append(posted, res)
			pending = append(pending, evts...)
		}
		return nil
	})
	if err != nil {
		return ImportResult{}, err
	}

	for _, res := range posted {
		s.finishPost(ctx, res, nil)
	}
	s.opts.Bus.Publish(ctx, pending...)
	s.log.Info("journal import finished",
		zap.Int("created", len(result.Created)),
		zap.Int("posted", len(result.Posted)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

// alreadyImported reports whether the ledger holds an entry numbered like
// group with the same date and the same lines, as after re-importing an
// export of this ledger.
func alreadyImported(ctx context.Context, tx *gorm.DB, group []LineRecord) (bool, error) {
	head := group[0]
	var entry model.JournalEntry
	err := tx.WithContext(ctx).
		Preload("Lines.Account").
		Where("entry_number = ?", head.EntryNumber).
		Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("looking up entry %s: %w", head.EntryNumber, err)
	}
	if entry.Reference != "" || !model.DateOf(entry.EntryDate).Equal(model.DateOf(head.Date)) || len(entry.Lines) != len(group) {
		return false, nil
	}

	want := make(map[string]int, len(group))
	for _, l := range group {
		want[lineKey(l.AccountCode, l.Debit, l.Credit)]++
	}
	for _, l := range entry.Lines {
		code := ""
		if l.Account != nil {
			code = l.Account.Code
		}
		k := lineKey(code, l.DebitAmount, l.CreditAmount)
		if want[k] == 0 {
			return false, nil
		}
		want[k]--
	}
	return true, nil
}

func lineKey(code string, debit, credit decimal.Decimal) string {
	return code + "|" + debit.StringFixed(2) + "|" + credit.StringFixed(2)
}

var errUnknownCode = errors.New("unknown account code")

func accountIDByCode(ctx context.Context, tx *gorm.DB, cache map[string]uint, code string) (uint, error) {
	if id, ok := cache[code]; ok {
		return id, nil
	}
	var acct model.Account
	err := tx.WithContext(ctx).Where("code = ?", code).Take(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %q", errUnknownCode, code)
	}
	if err != nil {
		return 0, fmt.Errorf("loading account %s: %w", code, err)
	}
	cache[code] = acct.ID
	return acct.ID, nil
}
