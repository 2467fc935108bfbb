package account

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/money"
)

// AggregateType is the name under which bank accounts are stored
const AggregateType = "bank_account"

// Account types
const (
	Checking   Type = "CHECKING"
	Savings    Type = "SAVINGS"
	Investment Type = "INVESTMENT"
)

// Account statuses, CLOSED and BANNED are terminal for money movements
const (
	Active Status = "ACTIVE"
	Closed Status = "CLOSED"
	Banned Status = "BANNED"
)

var (
	// DefaultSavingsRate is the annual interest rate of a savings account opened without an explicit rate
	DefaultSavingsRate = decimal.RequireFromString("0.02")

	// ErrInvalidState occurs when a command is not allowed in the current status of the account
	ErrInvalidState = fmt.Errorf("account: %w", bankengine.ErrInvalidState)
	// ErrInsufficientFunds occurs when a debit exceeds the balance
	ErrInsufficientFunds = errors.New("bankengine: insufficient funds")
	// ErrInvalidAmount occurs when an amount is not positive
	ErrInvalidAmount = errors.New("bankengine: amount must be positive")
	// ErrExternalTransfer occurs when the recipient IBAN is not issued by the bank
	ErrExternalTransfer = errors.New("bankengine: transfers to other banks are not supported")
	// ErrNonZeroBalance occurs when an account with money on it is closed
	ErrNonZeroBalance = errors.New("bankengine: account balance must be zero")
	// ErrInvalidType occurs when the account type is unknown
	ErrInvalidType = errors.New("bankengine: unknown account type")

	daysPerYear = decimal.NewFromInt(365)

	_ aggregate.Root = &Account{}
)

type (
	// Type is the kind of bank account
	Type string

	// Status is the lifecycle status of a bank account
	Status string

	// Account is the bank account aggregate root
	Account struct {
		aggregate.BaseRoot

		id           aggregate.ID
		userID       string
		iban         money.IBAN
		accountType  Type
		name         string
		balance      money.Money
		status       Status
		interestRate decimal.Decimal
	}

	// OpenOption customizes a newly opened account
	OpenOption func(*AccountOpened)
)

// IsValid returns true for a known account type
func (t Type) IsValid() bool {
	return t == Checking || t == Savings || t == Investment
}

// WithName sets the display name of the account
func WithName(name string) OpenOption {
	return func(e *AccountOpened) {
		e.Name = strings.TrimSpace(name)
	}
}

// WithInterestRate sets the annual interest rate of a savings account
func WithInterestRate(rate decimal.Decimal) OpenOption {
	return func(e *AccountOpened) {
		if e.AccountType == Savings {
			e.InterestRate = rate
		}
	}
}

// New returns an empty account used to replay history
func New() *Account {
	return &Account{}
}

// Open opens a new ACTIVE account
func Open(
	id aggregate.ID,
	userID string,
	iban money.IBAN,
	accountType Type,
	initialBalance money.Money,
	options ...OpenOption,
) (*Account, error) {
	switch {
	case id == "":
		return nil, bankengine.InvalidArgumentError("id")
	case strings.TrimSpace(userID) == "":
		return nil, bankengine.InvalidArgumentError("userID")
	case !accountType.IsValid():
		return nil, ErrInvalidType
	case initialBalance.Currency() == "":
		return nil, bankengine.InvalidArgumentError("initialBalance")
	}
	if err := iban.Validate(); err != nil {
		return nil, err
	}

	opened := AccountOpened{
		AccountID:   id,
		UserID:      userID,
		IBAN:        iban,
		AccountType: accountType,
		Name:        string(accountType),
		Balance:     initialBalance,
		OccurredAt:  time.Now().UTC(),
	}
	if accountType == Savings {
		opened.InterestRate = DefaultSavingsRate
	}
	for _, option := range options {
		option(&opened)
	}

	a := &Account{id: id}
	if err := aggregate.RecordChange(a, opened); err != nil {
		return nil, err
	}

	return a, nil
}

// AggregateID returns the account's aggregate.ID
func (a *Account) AggregateID() aggregate.ID {
	return a.id
}

// UserID returns the owner of the account
func (a *Account) UserID() string {
	return a.userID
}

// IBAN returns the IBAN of the account
func (a *Account) IBAN() money.IBAN {
	return a.iban
}

// Type returns the account type
func (a *Account) Type() Type {
	return a.accountType
}

// Name returns the display name
func (a *Account) Name() string {
	return a.name
}

// Balance returns the current balance
func (a *Account) Balance() money.Money {
	return a.balance
}

// Status returns the lifecycle status
func (a *Account) Status() Status {
	return a.status
}

// InterestRate returns the annual interest rate
func (a *Account) InterestRate() decimal.Decimal {
	return a.interestRate
}

// Deposit credits a positive amount
func (a *Account) Deposit(amount money.Money, description string) error {
	if err := a.checkCredit(amount); err != nil {
		return err
	}

	balance, err := a.balance.Add(amount)
	if err != nil {
		return err
	}

	return aggregate.RecordChange(a, FundsDeposited{
		AccountID:   a.id,
		Amount:      amount,
		Balance:     balance,
		Description: description,
		OccurredAt:  time.Now().UTC(),
	})
}

// Withdraw debits a positive amount that is covered by the balance
func (a *Account) Withdraw(amount money.Money, description string) error {
	balance, err := a.debit(amount)
	if err != nil {
		return err
	}

	return aggregate.RecordChange(a, FundsWithdrawn{
		AccountID:   a.id,
		Amount:      amount,
		Balance:     balance,
		Description: description,
		OccurredAt:  time.Now().UTC(),
	})
}

// SendTransfer debits the amount for a transfer to another account of the same bank
func (a *Account) SendTransfer(toAccountID aggregate.ID, toIBAN money.IBAN, amount money.Money, description string) error {
	switch {
	case toAccountID == "":
		return bankengine.InvalidArgumentError("toAccountID")
	case toAccountID == a.id:
		return bankengine.InvalidArgumentError("toAccountID")
	}
	if err := toIBAN.Validate(); err != nil {
		return err
	}
	if !toIBAN.IsInternal(a.iban.BankCode()) {
		return errors.Wrapf(ErrExternalTransfer, "bank code %s", toIBAN.BankCode())
	}

	balance, err := a.debit(amount)
	if err != nil {
		return err
	}

	return aggregate.RecordChange(a, TransferSent{
		AccountID:   a.id,
		ToAccountID: toAccountID,
		ToIBAN:      toIBAN,
		Amount:      amount,
		Balance:     balance,
		Description: description,
		OccurredAt:  time.Now().UTC(),
	})
}

// ReceiveTransfer credits the amount of a transfer from another account
func (a *Account) ReceiveTransfer(fromAccountID aggregate.ID, fromIBAN money.IBAN, amount money.Money, description string) error {
	if err := a.checkCredit(amount); err != nil {
		return err
	}

	balance, err := a.balance.Add(amount)
	if err != nil {
		return err
	}

	return aggregate.RecordChange(a, TransferReceived{
		AccountID:     a.id,
		FromAccountID: fromAccountID,
		FromIBAN:      fromIBAN,
		Amount:        amount,
		Balance:       balance,
		Description:   description,
		OccurredAt:    time.Now().UTC(),
	})
}

// ApplyInterest credits one day of interest, balance × rate / 365.
// Nothing is recorded when the interest rounds to zero.
func (a *Account) ApplyInterest() error {
	if err := a.requireStatus(Active); err != nil {
		return err
	}
	if a.accountType != Savings {
		return errors.Wrapf(ErrInvalidState, "interest only applies to %s accounts", Savings)
	}
	if !a.interestRate.IsPositive() {
		return errors.Wrap(ErrInvalidState, "interest rate is not positive")
	}

	interest, err := money.New(
		a.balance.Amount().Mul(a.interestRate).Div(daysPerYear),
		a.balance.Currency(),
	)
	if err != nil {
		return err
	}
	if interest.IsZero() {
		return nil
	}

	balance, err := a.balance.Add(interest)
	if err != nil {
		return err
	}

	return aggregate.RecordChange(a, InterestApplied{
		AccountID:  a.id,
		Amount:     interest,
		Balance:    balance,
		Rate:       a.interestRate,
		OccurredAt: time.Now().UTC(),
	})
}

// Rename changes the display name of an ACTIVE account
func (a *Account) Rename(name string) error {
	if err := a.requireStatus(Active); err != nil {
		return err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return bankengine.InvalidArgumentError("name")
	}
	if name == a.name {
		return nil
	}

	return aggregate.RecordChange(a, AccountRenamed{
		AccountID:  a.id,
		Name:       name,
		OccurredAt: time.Now().UTC(),
	})
}

// Close closes an ACTIVE account that holds no money
func (a *Account) Close(reason string) error {
	if err := a.requireStatus(Active); err != nil {
		return err
	}
	if !a.balance.IsZero() {
		return errors.Wrapf(ErrNonZeroBalance, "balance is %s", a.balance)
	}

	return aggregate.RecordChange(a, AccountClosed{
		AccountID:  a.id,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

// Ban bans an ACTIVE or CLOSED account
func (a *Account) Ban(reason string) error {
	if err := a.requireStatus(Active, Closed); err != nil {
		return err
	}

	return aggregate.RecordChange(a, AccountBanned{
		AccountID:  a.id,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	})
}

// Apply changes the state of the Account
func (a *Account) Apply(change *aggregate.Changed) error {
	event, ok := change.Payload().(Event)
	if !ok {
		return bankengine.NewUnknownEventKindError(change.Payload())
	}

	switch e := event.(type) {
	case AccountOpened:
		a.id = e.AccountID
		a.userID = e.UserID
		a.iban = e.IBAN
		a.accountType = e.AccountType
		a.name = e.Name
		a.balance = e.Balance
		a.status = Active
		a.interestRate = e.InterestRate
	case FundsDeposited:
		a.balance = e.Balance
	case FundsWithdrawn:
		a.balance = e.Balance
	case TransferSent:
		a.balance = e.Balance
	case TransferReceived:
		a.balance = e.Balance
	case InterestApplied:
		a.balance = e.Balance
	case AccountRenamed:
		a.name = e.Name
	case AccountClosed:
		a.status = Closed
	case AccountBanned:
		a.status = Banned
	default:
		return bankengine.NewUnknownEventKindError(e)
	}

	return nil
}

func (a *Account) checkCredit(amount money.Money) error {
	if err := a.requireStatus(Active); err != nil {
		return err
	}
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if amount.Currency() != a.balance.Currency() {
		return money.ErrCurrencyMismatch
	}

	return nil
}

// debit returns the balance after the amount is taken off
func (a *Account) debit(amount money.Money) (money.Money, error) {
	if err := a.checkCredit(amount); err != nil {
		return money.Money{}, err
	}
	if a.balance.LessThan(amount) {
		return money.Money{}, errors.Wrapf(ErrInsufficientFunds, "balance %s is less than %s", a.balance, amount)
	}

	return a.balance.Sub(amount)
}

func (a *Account) requireStatus(allowed ...Status) error {
	for _, s := range allowed {
		if a.status == s {
			return nil
		}
	}

	return errors.Wrapf(ErrInvalidState, "account %s is %s", a.id, a.status)
}
