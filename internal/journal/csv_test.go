package journal

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/propledger/propledger/internal/accounts"
	"github.com/propledger/propledger/internal/model"
)

func sampleRecords() []LineRecord {
	return []LineRecord{
		{EntryNumber: "JE-2024-00041", Date: date(2025, 1, 3), EntryType: model.EntryTypeManual, AccountCode: "5010", Description: "Plumbing repair", Debit: dec("450.00"), Posted: true},
		{EntryNumber: "JE-2024-00041", Date: date(2025, 1, 3), EntryType: model.EntryTypeManual, AccountCode: "1010", Description: "Plumbing repair", Credit: dec("450.00"), Posted: true},
		{EntryNumber: "JE-2024-00042", Date: date(2025, 1, 4), EntryType: model.EntryTypeAutomated, AccountCode: "1020", Description: "Rent", Debit: dec("1200.50"), Reference: "RENT-PAY-RCV-2025-00007"},
		{EntryNumber: "JE-2024-00042", Date: date(2025, 1, 4), EntryType: model.EntryTypeAutomated, AccountCode: "4020", Description: "Rent", Credit: dec("1200.50"), Reference: "RENT-PAY-RCV-2025-00007"},
	}
}

func TestRoundTrip(t *testing.T) {
	records := sampleRecords()

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))

	got, err := ReadLines(&buf)
	require.NoError(t, err)
	require.Len(t, got, len(records))

	for i := range records {
		assert.Equal(t, records[i].EntryNumber, got[i].EntryNumber)
		assert.True(t, records[i].Date.Equal(got[i].Date))
		assert.Equal(t, records[i].EntryType, got[i].EntryType)
		assert.Equal(t, records[i].AccountCode, got[i].AccountCode)
		assert.True(t, records[i].Debit.Equal(got[i].Debit), "debit mismatch row %d", i)
		assert.True(t, records[i].Credit.Equal(got[i].Credit), "credit mismatch row %d", i)
		assert.Equal(t, records[i].Reference, got[i].Reference)
		assert.Equal(t, records[i].Posted, got[i].Posted)
	}
}

func TestMarshalLine_OmitsZeroSide(t *testing.T) {
	row := MarshalLine(sampleRecords()[0])
	assert.Equal(t, "450.00", row[colDebit])
	assert.Empty(t, row[colCredit])
	assert.Equal(t, "true", row[colPosted])
}

func TestUnmarshalLine_Errors(t *testing.T) {
	good := MarshalLine(sampleRecords()[0])

	tests := []struct {
		name string
		col  int
		val  string
	}{
		{"bad date", colDate, "03/01/2025"},
		{"bad type", colType, "imported"},
		{"bad debit", colDebit, "12,5"},
		{"bad credit", colCredit, "x"},
		{"bad posted", colPosted, "maybe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := append([]string(nil), good...)
			row[tt.col] = tt.val
			_, err := UnmarshalLine(row)
			assert.Error(t, err)
		})
	}

	_, err := UnmarshalLine(good[:3])
	assert.Error(t, err)
}

func TestGroupRecords(t *testing.T) {
	groups := GroupRecords(sampleRecords())
	require.Len(t, groups, 2)
	assert.Equal(t, "JE-2024-00041", groups[0][0].EntryNumber)
	assert.Len(t, groups[1], 2)
}

func TestImportAndExport(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	res, err := f.svc.Import(ctx, sampleRecords(), "importer")
	require.NoError(t, err)
	assert.Equal(t, []string{"JE-2025-00001", "JE-2025-00002"}, res.Created)
	assert.Equal(t, []string{"JE-2025-00001"}, res.Posted)
	assert.Empty(t, res.Skipped)

	assert.True(t, dec("450").Equal(f.balance(t, accounts.CodeMaintenance)))
	assert.True(t, f.balance(t, accounts.CodeRentalIncome).IsZero(), "unposted group stays draft")

	again, err := f.svc.Import(ctx, sampleRecords(), "importer")
	require.NoError(t, err)
	assert.Equal(t, []string{"JE-2024-00042"}, again.Skipped)

	entries, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, entries))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, Header+"\n"))
	assert.Contains(t, out, "JE-2025-00001,2025-01-03,manual,5010,Plumbing repair,450.00,,,true")

	back, err := ReadLines(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, back, 6)
}

func TestImport_ReimportedExportCreatesNothing(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.Import(ctx, sampleRecords(), "importer")
	require.NoError(t, err)
	entries, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteLines(&buf, entries))
	lines, err := ReadLines(&buf)
	require.NoError(t, err)

	res, err := f.svc.Import(ctx, lines, "importer")
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.ElementsMatch(t, []string{"JE-2025-00001", "JE-2025-00002"}, res.Skipped)

	after, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, after, len(entries))
	assert.True(t, dec("450").Equal(f.balance(t, accounts.CodeMaintenance)))
}

func TestImport_SameNumberDifferentLinesIsCreated(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	_, err := f.svc.Import(ctx, sampleRecords()[:2], "importer")
	require.NoError(t, err)

	other := sampleRecords()[:2]
	for i := range other {
		other[i].EntryNumber = "JE-2025-00001"
	}
	other[0].Debit, other[1].Credit = dec("99"), dec("99")
	res, err := f.svc.Import(ctx, other, "importer")
	require.NoError(t, err)
	assert.Equal(t, []string{"JE-2025-00002"}, res.Created)
	assert.Empty(t, res.Skipped)
}

func TestImport_UnknownAccountRollsBack(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	records := sampleRecords()
	records[3].AccountCode = "9999"
	_, err := f.svc.Import(ctx, records, "importer")
	assert.ErrorIs(t, err, errUnknownCode)

	entries, err := f.svc.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
