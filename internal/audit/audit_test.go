package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/propledger/propledger/internal/model"
	"github.com/propledger/propledger/internal/store/storetest"
)

var testTime = time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)

func testRecord() model.AuditRecord {
	return model.AuditRecord{
		Timestamp: testTime,
		Actor:     "cli",
		Action:    ActionEntryPosted,
		Subject:   "JE-2025-00001",
		Details:   "Posted rent collection",
	}
}

func TestAppend_AndList(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()

	r2 := testRecord()
	r2.Timestamp = testTime.Add(time.Hour)
	r2.Action = ActionPaymentRecorded
	r2.Subject = "RCV-2025-00001"

	require.NoError(t, Append(ctx, db, testRecord(), r2))

	all, err := List(ctx, db, Filter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, ActionEntryPosted, all[0].Action)
	assert.Equal(t, ActionPaymentRecorded, all[1].Action)

	payments, err := List(ctx, db, Filter{Action: ActionPaymentRecorded})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, "RCV-2025-00001", payments[0].Subject)

	recent, err := List(ctx, db, Filter{Since: testTime.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	limited, err := List(ctx, db, Filter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestAppend_RolledBackWithTransaction(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()

	_ = db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, Append(ctx, tx, testRecord()))
		return assert.AnError
	})

	all, err := List(ctx, db, Filter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestAppend_StampsMissingTimestamp(t *testing.T) {
	db := storetest.New(t)
	ctx := context.Background()

	require.NoError(t, Append(ctx, db, model.AuditRecord{Action: ActionPeriodClosed, Subject: "FY2025"}))
	require.NoError(t, Append(ctx, db))

	all, err := List(ctx, db, Filter{Subject: "FY2025"})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Timestamp.IsZero())
}

func TestRecord(t *testing.T) {
	r := Record("importer", ActionPaymentRecorded, "RCV-2025-00002", "amount=100.00")
	assert.Equal(t, "importer", r.Actor)
	assert.WithinDuration(t, time.Now().UTC(), r.Timestamp, time.Minute)
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []model.AuditRecord{testRecord()}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, []string{"2025-01-15T10:30:00Z", "cli", ActionEntryPosted, "JE-2025-00001", "Posted rent collection"}, rows[1])
}
