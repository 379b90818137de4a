// Package product defines the Product entity exchanged with the upstream
// product service and its two JSON wire shapes.
package product

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date layout used on the wire.
const DateLayout = "2006-01-02"

// Category is the nested category of a product.
type Category struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// Product is a flat value object. It has no identity beyond ID and is
// always replaced as a whole on update.
type Product struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	Price    Price     `json:"price"`
	CreateAt Date      `json:"createAt"`
	Image    *string   `json:"image"`
	Category *Category `json:"category"`
}

// Price is a decimal amount serialized as a bare JSON number.
// Decoding accepts both numbers and quoted strings.
type Price struct {
	decimal.Decimal
}

// NewPrice parses a decimal string such as "19.99".
func NewPrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, err
	}
	return Price{Decimal: d}, nil
}

// MustPrice is like NewPrice but panics on malformed input.
func MustPrice(s string) Price {
	return Price{Decimal: decimal.RequireFromString(s)}
}

// MarshalJSON implements json.Marshaler.
func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

// Date is a calendar date without time of day.
// The zero value is encoded as JSON null.
type Date struct {
	time.Time
}

// NewDate returns the date for the given year, month and day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// String returns the date in YYYY-MM-DD form, or an empty string for the zero date.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*d = Date{}
		return nil
	}
	s = strings.Trim(s, `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
