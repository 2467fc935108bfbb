package money

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hellofresh/bankengine"
)

const (
	// IBANLength is the length of an IBAN in the supported layout
	IBANLength = 27
	// CountryCode is the country of the supported IBAN layout
	CountryCode = "IT"
	// DefaultBankCode is the ABI code used when no bank code is configured
	DefaultBankCode = "03069"
	// DefaultBranchCode is the CAB code used when no branch code is configured
	DefaultBranchCode = "09606"

	accountNumberLength = 12
	maxAccountNumber    = 999999999999
)

var (
	// ErrInvalidIBAN occurs when an IBAN does not have the expected layout or checksum
	ErrInvalidIBAN = errors.New("bankengine: invalid IBAN")
	// ErrSequenceExhausted occurs when a sequence value does not fit the account number
	ErrSequenceExhausted = errors.New("bankengine: account number sequence exhausted")

	// cinOdd is the value of a character at an odd position, indexed by digit or letter offset
	cinOdd = [26]int{1, 0, 5, 7, 9, 13, 15, 17, 19, 21, 2, 4, 18, 20, 11, 3, 6, 8, 12, 14, 16, 10, 22, 25, 24, 23}
)

// IBAN is an international bank account number laid out as
// IT, 2 check digits, CIN letter, 5 digit ABI, 5 digit CAB and a 12 character account number
type IBAN string

// ParseIBAN normalizes s by removing spaces and upper casing it and returns it when valid
func ParseIBAN(s string) (IBAN, error) {
	iban := IBAN(strings.ToUpper(strings.ReplaceAll(s, " ", "")))
	if err := iban.Validate(); err != nil {
		return "", err
	}

	return iban, nil
}

// Validate checks the length, the alphabet of every section and the ISO 7064 mod-97 checksum
func (i IBAN) Validate() error {
	s := string(i)
	if len(s) != IBANLength || s[:2] != CountryCode {
		return ErrInvalidIBAN
	}

	if !isDigits(s[2:4]) || !isUpper(s[4]) || !isDigits(s[5:15]) {
		return ErrInvalidIBAN
	}
	for j := 15; j < IBANLength; j++ {
		if !isDigit(s[j]) && !isUpper(s[j]) {
			return ErrInvalidIBAN
		}
	}

	if mod97(s[4:]+s[:4]) != 1 {
		return ErrInvalidIBAN
	}

	return nil
}

// IsValid returns true when Validate succeeds
func (i IBAN) IsValid() bool {
	return i.Validate() == nil
}

// BankCode returns the ABI code of a valid IBAN
func (i IBAN) BankCode() string {
	if len(i) != IBANLength {
		return ""
	}

	return string(i[5:10])
}

// IsInternal returns true when the IBAN is valid and issued by the bank with the given code
func (i IBAN) IsInternal(bankCode string) bool {
	return i.IsValid() && i.BankCode() == bankCode
}

func (i IBAN) String() string {
	return string(i)
}

// Generator issues IBANs for a bank using a sequence for the account numbers
type Generator struct {
	bankCode   string
	branchCode string
	sequence   Sequence
}

// NewGenerator returns a Generator for the bank and branch codes
func NewGenerator(bankCode, branchCode string, sequence Sequence) (*Generator, error) {
	switch {
	case len(bankCode) != 5 || !isDigits(bankCode):
		return nil, bankengine.InvalidArgumentError("bankCode")
	case len(branchCode) != 5 || !isDigits(branchCode):
		return nil, bankengine.InvalidArgumentError("branchCode")
	case sequence == nil:
		return nil, bankengine.InvalidArgumentError("sequence")
	}

	return &Generator{
		bankCode:   bankCode,
		branchCode: branchCode,
		sequence:   sequence,
	}, nil
}

// BankCode returns the ABI code of the issuing bank
func (g *Generator) BankCode() string {
	return g.bankCode
}

// Generate returns a new IBAN for the next account number of the sequence
func (g *Generator) Generate(ctx context.Context) (IBAN, error) {
	next, err := g.sequence.Next(ctx)
	if err != nil {
		return "", err
	}
	if next > maxAccountNumber {
		return "", ErrSequenceExhausted
	}

	return Compose(g.bankCode, g.branchCode, fmt.Sprintf("%0*d", accountNumberLength, next))
}

// Compose builds the IBAN for the bank, branch and account number computing the CIN and the check digits
func Compose(bankCode, branchCode, accountNumber string) (IBAN, error) {
	bban := bankCode + branchCode + accountNumber
	if len(bankCode) != 5 || len(branchCode) != 5 || len(accountNumber) != accountNumberLength {
		return "", ErrInvalidIBAN
	}
	if !isDigits(bankCode + branchCode) {
		return "", ErrInvalidIBAN
	}

	cin, err := computeCIN(bban)
	if err != nil {
		return "", err
	}

	bban = string(cin) + bban
	check := 98 - mod97(bban+CountryCode+"00")

	iban := IBAN(fmt.Sprintf("%s%02d%s", CountryCode, check, bban))
	if err := iban.Validate(); err != nil {
		return "", err
	}

	return iban, nil
}

// computeCIN returns the Italian control letter of ABI + CAB + account number
func computeCIN(s string) (byte, error) {
	sum := 0
	for j := 0; j < len(s); j++ {
		var v int
		switch c := s[j]; {
		case isDigit(c):
			v = int(c - '0')
		case isUpper(c):
			v = int(c - 'A')
		default:
			return 0, ErrInvalidIBAN
		}

		// positions are counted from 1 so even indexes are the odd positions
		if j%2 == 0 {
			sum += cinOdd[v]
		} else {
			sum += v
		}
	}

	return byte('A' + sum%26), nil
}

// mod97 returns the remainder of the number formed by s with letters expanded to 10..35
func mod97(s string) int {
	rem := 0
	for j := 0; j < len(s); j++ {
		c := s[j]
		switch {
		case isDigit(c):
			rem = (rem*10 + int(c-'0')) % 97
		case isUpper(c):
			rem = (rem*100 + int(c-'A') + 10) % 97
		}
	}

	return rem
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isUpper(c byte) bool {
	return c >= 'A' && c <= 'Z'
}

func isDigits(s string) bool {
	for j := 0; j < len(s); j++ {
		if !isDigit(s[j]) {
			return false
		}
	}

	return len(s) > 0
}
