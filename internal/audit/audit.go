package audit

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/model"
)

// Actions recorded in the audit trail.
const (
	ActionEntryPosted      = "entry_posted"
	ActionEntryReversed    = "entry_reversed"
	ActionEntryDeleted     = "entry_deleted"
	ActionAutomatedSkipped = "automated_skipped"
	ActionInvoiceIssued    = "invoice_issued"
	ActionInvoiceCancelled = "invoice_cancelled"
	ActionPaymentRecorded  = "payment_recorded"
	ActionPeriodClosed     = "period_closed"
)

// Header is the CSV header written by WriteCSV.
var Header = []string{"timestamp", "actor", "action", "subject", "details"}

const (
	numFields  = 5
	colTime    = 0
	colActor   = 1
	colAction  = 2
	colSubject = 3
	colDetails = 4
)

// Record builds an audit record stamped with the current time.
func Record(actor, action, subject, details string) model.AuditRecord {
	return model.AuditRecord{
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Subject:   subject,
		Details:   details,
	}
}

// Append writes records using tx, normally the transaction of the change
// being audited.
func Append(ctx context.Context, tx *gorm.DB, records ...model.AuditRecord) error {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if records[i].Timestamp.IsZero() {
			records[i].Timestamp = time.Now().UTC()
		}
	}
	if err := tx.WithContext(ctx).Create(&records).Error; err != nil {
		return fmt.Errorf("appending audit records: %w", err)
	}
	return nil
}

// Filter narrows List results.
type Filter struct {
	Action  string
	Subject string
	Since   time.Time
	Limit   int
}

// List returns records oldest first.
func List(ctx context.Context, db *gorm.DB, f Filter) ([]model.AuditRecord, error) {
	q := db.WithContext(ctx).Order("timestamp, id")
	if f.Action != "" {
		q = q.Where("action = ?", f.Action)
	}
	if f.Subject != "" {
		q = q.Where("subject = ?", f.Subject)
	}
	if !f.Since.IsZero() {
		q = q.Where("timestamp >= ?", f.Since.UTC())
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var records []model.AuditRecord
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	return records, nil
}

// MarshalRecord converts a record to a CSV row.
func MarshalRecord(r model.AuditRecord) []string {
	row := make([]string, numFields)
	row[colTime] = r.Timestamp.UTC().Format(time.RFC3339)
	row[colActor] = r.Actor
	row[colAction] = r.Action
	row[colSubject] = r.Subject
	row[colDetails] = r.Details
	return row
}

// WriteCSV exports records with a header row.
func WriteCSV(w io.Writer, records []model.AuditRecord) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(Header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range records {
		if err := cw.Write(MarshalRecord(r)); err != nil {
			return fmt.Errorf("writing record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
