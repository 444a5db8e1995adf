package facts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an arbitrary-precision decimal used for monetary amounts.
// It decodes from a JSON number or string and encodes as a JSON number.
type Decimal struct {
	d apd.Decimal
}

// ParseDecimal parses a finite decimal literal such as "1000.50".
func ParseDecimal(s string) (Decimal, error) {
	var out Decimal
	if _, _, err := out.d.SetString(strings.TrimSpace(s)); err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if out.d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("invalid decimal %q: not a finite number", s)
	}
	return out, nil
}

// MustDecimal is ParseDecimal that panics on error. For literals and tests.
func MustDecimal(s string) Decimal {
	d, err := ParseDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecimalFromFloat converts f exactly as its shortest decimal representation.
func DecimalFromFloat(f float64) (Decimal, error) {
	var out Decimal
	if _, err := out.d.SetFloat64(f); err != nil {
		return Decimal{}, err
	}
	return out, nil
}

// DecimalFromInt converts i.
func DecimalFromInt(i int64) Decimal {
	var out Decimal
	out.d.SetInt64(i)
	return out
}

// Cmp compares d and o and returns -1, 0 or +1.
func (d Decimal) Cmp(o Decimal) int {
	return d.d.Cmp(&o.d)
}

// IsZero reports whether d is zero.
func (d Decimal) IsZero() bool {
	return d.d.IsZero()
}

// String returns the decimal in plain notation.
func (d Decimal) String() string {
	return d.d.Text('f')
}

// Float64 returns the nearest float64.
func (d Decimal) Float64() float64 {
	f, _ := d.d.Float64()
	return f
}

// MarshalJSON encodes d as a JSON number.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalJSON accepts a JSON number, a numeric string or null.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = Decimal{}
		return nil
	}

	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}

	parsed, err := ParseDecimal(text)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
