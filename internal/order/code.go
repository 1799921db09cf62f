package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

// Unambiguous uppercase alphabet for human-facing codes.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomToken(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}

	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return string(buf)
}

// NewOrderCode builds a human-readable order code, e.g. ORD-2026-K7KPQ2XR.
func NewOrderCode(now time.Time) string {
	return fmt.Sprintf("ORD-%d-%s", now.Year(), randomToken(8))
}

// NewPaymentReference builds the reference the buyer must quote on the bank
// transfer, e.g. PAY-M3W9TZKQV2LF.
func NewPaymentReference() string {
	return "PAY-" + randomToken(12)
}
