package billing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	invoicePrefix   = "INV"
	sequenceMinimum = 4
)

var ErrInvalidInvoiceNumber = errors.New("invalid invoice number")

// FormatInvoiceNumber renders INV-<year>-<seq>, padding seq to four digits.
// Sequences above 9999 keep all their digits.
func FormatInvoiceNumber(year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%0*d", invoicePrefix, year, sequenceMinimum, seq)
}

func ParseInvoiceNumber(number string) (year int, seq int64, err error) {
	parts := strings.Split(strings.TrimSpace(number), "-")
	if len(parts) != 3 || parts[0] != invoicePrefix {
		return 0, 0, ErrInvalidInvoiceNumber
	}
	if len(parts[1]) != 4 || len(parts[2]) < sequenceMinimum {
		return 0, 0, ErrInvalidInvoiceNumber
	}
	year, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, ErrInvalidInvoiceNumber
	}
	seq, err = strconv.ParseInt(parts[2], 10, 64)
	if err != nil || seq < 1 {
		return 0, 0, ErrInvalidInvoiceNumber
	}
	return year, seq, nil
}
