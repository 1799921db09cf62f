package statement_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lauraedgell33/autoscout-sub002/internal/statement"
)

const sampleExport = `Kontoauskunft;;
IBAN;DE89370400440532013000;
Zeitraum;01.08.2026 - 31.08.2026;
;;
Buchungstag;Verwendungszweck;Betrag
03.08.2026;Verwendung PAY-ABCDEFGH2345 Autokauf;1.234,56
04.08.2026;Kontofuehrung;-9,90
05.08.2026;Ueberweisung ohne Referenz;500,00
;;
Endsaldo;;12.345,67
`

func TestParse(t *testing.T) {
	entries, err := statement.Parse(strings.NewReader(sampleExport))
	require.NoError(t, err)
	require.Len(t, entries, 3)

	assert.Equal(t, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), entries[0].Date)
	assert.Equal(t, "Verwendung PAY-ABCDEFGH2345 Autokauf", entries[0].Description)
	assert.Equal(t, int64(123_456), entries[0].Amount)
	assert.True(t, entries[0].Credit())

	assert.Equal(t, int64(-990), entries[1].Amount)
	assert.False(t, entries[1].Credit())

	assert.Equal(t, int64(50_000), entries[2].Amount)
}

func TestParse_Windows1252(t *testing.T) {
	// "Überweisung" with a Windows-1252 encoded Ü (0xDC).
	raw := []byte("Buchungstag;Verwendungszweck;Betrag\n06.08.2026;\xDCberweisung PAY-TEST;100,00\n")

	entries, err := statement.Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Überweisung PAY-TEST", entries[0].Description)
	assert.Equal(t, int64(10_000), entries[0].Amount)
}

func TestParse_UTF8BOM(t *testing.T) {
	raw := append([]byte{0xEF, 0xBB, 0xBF}, []byte("Buchungstag;Verwendungszweck;Betrag\n07.08.2026;Zahlung;42,00\n")...)

	entries, err := statement.Parse(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(4_200), entries[0].Amount)
}

func TestParse_NoHeader(t *testing.T) {
	_, err := statement.Parse(strings.NewReader("just;some;columns\n1;2;3\n"))
	assert.ErrorContains(t, err, "no statement header")
}
