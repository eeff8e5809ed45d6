package id

import (
	"fmt"
	"strconv"
	"strings"
)

// Document kinds that carry generated numbers.
const (
	KindJournalEntry = "JE"
	KindInvoice      = "INV"
)

// Prefix returns the sequence prefix for a kind and year, e.g. "JE-2025-".
func Prefix(kind string, year int) string {
	return fmt.Sprintf("%s-%04d-", kind, year)
}

// Format returns a document number like "JE-2025-00001".
func Format(kind string, year int, seq int64) string {
	return fmt.Sprintf("%s%05d", Prefix(kind, year), seq)
}

// Parse splits "INV-2025-00042" into kind, year and sequence.
func Parse(number string) (kind string, year int, seq int64, err error) {
	parts := strings.Split(number, "-")
	if len(parts) != 3 || parts[0] == "" {
		return "", 0, 0, fmt.Errorf("invalid document number format: %q", number)
	}

	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid year in document number %q: %w", number, err)
	}

	seq, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return "", 0, 0, fmt.Errorf("invalid sequence in document number %q: %w", number, err)
	}

	return parts[0], year, seq, nil
}

// Reversal returns the reference used by the entry that reverses number.
func Reversal(number string) string {
	return "REV-" + number
}
