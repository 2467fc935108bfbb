package money

import (
	"errors"
	"regexp"

	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every amount is rounded to
const Scale = 2

var (
	// ErrCurrencyMismatch occurs when two amounts in a different currency are combined
	ErrCurrencyMismatch = errors.New("bankengine: currency mismatch")
	// ErrNegativeAmount occurs when an amount would drop below zero
	ErrNegativeAmount = errors.New("bankengine: amount may not be negative")
	// ErrInvalidCurrency occurs when a currency is not a 3-letter upper-case ISO code
	ErrInvalidCurrency = errors.New("bankengine: currency must be a 3-letter ISO code")

	currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)
)

// Money is an immutable non-negative amount in a currency, always rounded to two decimal places
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New returns the amount rounded half away from zero to two decimal places
func New(amount decimal.Decimal, currency string) (Money, error) {
	if !currencyPattern.MatchString(currency) {
		return Money{}, ErrInvalidCurrency
	}

	amount = amount.Round(Scale)
	if amount.IsNegative() {
		return Money{}, ErrNegativeAmount
	}

	return Money{amount: amount, currency: currency}, nil
}

// Parse returns the Money for a decimal string such as "12.34"
func Parse(amount, currency string) (Money, error) {
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return Money{}, err
	}

	return New(d, currency)
}

// MustParse is like Parse but panics on invalid input
func MustParse(amount, currency string) Money {
	m, err := Parse(amount, currency)
	if err != nil {
		panic(err)
	}

	return m
}

// Zero returns a zero amount in the currency
func Zero(currency string) Money {
	return Money{amount: decimal.New(0, -Scale), currency: currency}
}

// Amount returns the decimal amount
func (m Money) Amount() decimal.Decimal {
	return m.amount
}

// Currency returns the ISO currency code
func (m Money) Currency() string {
	return m.currency
}

// Add returns m + o
func (m Money) Add(o Money) (Money, error) {
	if m.currency != o.currency {
		return Money{}, ErrCurrencyMismatch
	}

	return New(m.amount.Add(o.amount), m.currency)
}

// Sub returns m - o or ErrNegativeAmount when o is larger than m
func (m Money) Sub(o Money) (Money, error) {
	if m.currency != o.currency {
		return Money{}, ErrCurrencyMismatch
	}

	return New(m.amount.Sub(o.amount), m.currency)
}

// Mul returns m multiplied by a non-negative factor
func (m Money) Mul(factor decimal.Decimal) (Money, error) {
	return New(m.amount.Mul(factor), m.currency)
}

// Times returns m multiplied by a quantity
func (m Money) Times(quantity int64) (Money, error) {
	return m.Mul(decimal.NewFromInt(quantity))
}

// Cmp compares m and o and returns -1, 0 or +1
func (m Money) Cmp(o Money) (int, error) {
	if m.currency != o.currency {
		return 0, ErrCurrencyMismatch
	}

	return m.amount.Cmp(o.amount), nil
}

// GreaterThan returns true when both share the currency and m > o
func (m Money) GreaterThan(o Money) bool {
	return m.currency == o.currency && m.amount.GreaterThan(o.amount)
}

// LessThan returns true when both share the currency and m < o
func (m Money) LessThan(o Money) bool {
	return m.currency == o.currency && m.amount.LessThan(o.amount)
}

// Equal returns true when both amount and currency are equal
func (m Money) Equal(o Money) bool {
	return m.currency == o.currency && m.amount.Equal(o.amount)
}

// IsZero returns true when the amount is zero
func (m Money) IsZero() bool {
	return m.amount.IsZero()
}

// IsPositive returns true when the amount is above zero
func (m Money) IsPositive() bool {
	return m.amount.IsPositive()
}

func (m Money) String() string {
	return m.amount.StringFixed(Scale) + " " + m.currency
}

// MarshalJSON supports json.Marshaler interface
func (m Money) MarshalJSON() ([]byte, error) {
	w := jwriter.Writer{}
	m.MarshalEasyJSON(&w)
	return w.Buffer.BuildBytes(), w.Error
}

// MarshalEasyJSON supports easyjson.Marshaler interface
func (m Money) MarshalEasyJSON(out *jwriter.Writer) {
	out.RawString(`{"amount":`)
	out.String(m.amount.StringFixed(Scale))
	out.RawString(`,"currency":`)
	out.String(m.currency)
	out.RawByte('}')
}

// UnmarshalJSON supports json.Unmarshaler interface
func (m *Money) UnmarshalJSON(data []byte) error {
	r := jlexer.Lexer{Data: data}
	m.UnmarshalEasyJSON(&r)
	return r.Error()
}

// UnmarshalEasyJSON supports easyjson.Unmarshaler interface
func (m *Money) UnmarshalEasyJSON(in *jlexer.Lexer) {
	isTopLevel := in.IsStart()
	if in.IsNull() {
		if isTopLevel {
			in.Consumed()
		}
		in.Skip()
		return
	}

	var amount, currency string
	in.Delim('{')
	for !in.IsDelim('}') {
		key := in.UnsafeString()
		in.WantColon()
		if in.IsNull() {
			in.Skip()
			in.WantComma()
			continue
		}
		switch key {
		case "amount":
			amount = in.String()
		case "currency":
			currency = in.String()
		default:
			in.SkipRecursive()
		}
		in.WantComma()
	}
	in.Delim('}')
	if isTopLevel {
		in.Consumed()
	}

	if in.Ok() {
		parsed, err := Parse(amount, currency)
		if err != nil {
			in.AddError(err)
			return
		}
		*m = parsed
	}
}
