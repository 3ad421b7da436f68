package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point monetary amount. It is serialized with exactly two
// decimal places and accepts either a JSON number or a numeric string.
type Money struct {
	decimal.Decimal
}

func NewMoney(d decimal.Decimal) Money {
	return Money{Decimal: d}
}

func MoneyFromInt(v int64) Money {
	return Money{Decimal: decimal.NewFromInt(v)}
}

// MustMoney parses s and panics on error. Meant for seed data and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("invalid money literal %q: %v", s, err))
	}
	return Money{Decimal: d}
}

// Round2 returns the amount rounded half away from zero to two places.
func (m Money) Round2() Money {
	return Money{Decimal: m.Decimal.Round(2)}
}

func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.Decimal.StringFixed(2) + `"`), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		m.Decimal = decimal.Zero
		return nil
	}
	raw = strings.Trim(raw, `"`)
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("amount must not be empty")
	}
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid amount %q", raw)
	}
	m.Decimal = d
	return nil
}

func (m *Money) Scan(value any) error {
	return m.Decimal.Scan(value)
}

func (m Money) Value() (driver.Value, error) {
	return m.Decimal.StringFixed(2), nil
}
