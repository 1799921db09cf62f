// Package statement parses bank account statements exported as CSV. The
// parser hunts for the header row instead of assuming it is first, since
// bank exports routinely prepend account metadata and append balance
// footers.
package statement

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lauraedgell33/autoscout-sub002/internal/encoding"
)

// Header landmarks of the escrow account's bank export.
const (
	colDate    = "Buchungstag"
	colPurpose = "Verwendungszweck"
	colAmount  = "Betrag"
)

const dateLayout = "02.01.2006"

// Entry is one booked movement on the escrow account. Amount is in minor
// units and keeps its sign; only credits are candidates for order payments.
type Entry struct {
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
}

// Credit reports whether the entry is an incoming transfer.
func (e Entry) Credit() bool {
	return e.Amount > 0
}

// Parse decodes a raw statement upload. Input charset is detected and
// normalized before parsing; rows before the header and non-booking rows
// are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	decoded, err := encoding.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("decoding statement: %w", err)
	}

	reader := csv.NewReader(decoded)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading statement csv: %w", err)
	}

	var entries []Entry

	idxDate, idxPurpose, idxAmount := -1, -1, -1
	headerFound := false

	for _, row := range rows {
		if !headerFound {
			matches := 0

			for i, col := range row {
				switch strings.TrimSpace(col) {
				case colDate:
					idxDate = i
					matches++
				case colPurpose:
					idxPurpose = i
					matches++
				case colAmount:
					idxAmount = i
					matches++
				}
			}

			// Date and amount are enough to trust the row as the header.
			if matches >= 2 && idxDate != -1 && idxAmount != -1 {
				headerFound = true
			}

			continue
		}

		if len(row) <= max(idxDate, max(idxPurpose, idxAmount)) {
			continue
		}

		date, err := time.Parse(dateLayout, strings.TrimSpace(row[idxDate]))
		if err != nil {
			// Footer or summary row.
			continue
		}

		amount, err := parseAmount(strings.TrimSpace(row[idxAmount]))
		if err != nil {
			continue
		}

		description := ""
		if idxPurpose != -1 {
			description = strings.TrimSpace(row[idxPurpose])
		}

		entries = append(entries, Entry{
			Date:        date,
			Description: description,
			Amount:      amount,
		})
	}

	if !headerFound {
		return nil, fmt.Errorf("no statement header found")
	}

	return entries, nil
}

// parseAmount converts "1.234,56" style values to minor units.
func parseAmount(s string) (int64, error) {
	clean := strings.ReplaceAll(s, ".", "")
	clean = strings.ReplaceAll(clean, ",", ".")

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("parsing amount %q: %w", s, err)
	}

	return d.Shift(2).Round(0).IntPart(), nil
}
