package account

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/money"
)

// Registered event names
const (
	AccountOpenedName    = "AccountOpened"
	FundsDepositedName   = "FundsDeposited"
	FundsWithdrawnName   = "FundsWithdrawn"
	TransferSentName     = "TransferSent"
	TransferReceivedName = "TransferReceived"
	InterestAppliedName  = "InterestApplied"
	AccountRenamedName   = "AccountRenamed"
	AccountClosedName    = "AccountClosed"
	AccountBannedName    = "AccountBanned"
)

type (
	// Event is implemented by the events of a bank account only
	Event interface {
		accountEvent()
	}

	// AccountOpened a bank account was opened
	AccountOpened struct {
		AccountID    aggregate.ID    `json:"account_id"`
		UserID       string          `json:"user_id"`
		IBAN         money.IBAN      `json:"iban"`
		AccountType  Type            `json:"account_type"`
		Name         string          `json:"name"`
		Balance      money.Money     `json:"balance"`
		InterestRate decimal.Decimal `json:"interest_rate"`
		OccurredAt   time.Time       `json:"occurred_at"`
	}

	// FundsDeposited money was deposited, Balance is the balance after the deposit
	FundsDeposited struct {
		AccountID   aggregate.ID `json:"account_id"`
		Amount      money.Money  `json:"amount"`
		Balance     money.Money  `json:"balance"`
		Description string       `json:"description"`
		OccurredAt  time.Time    `json:"occurred_at"`
	}

	// FundsWithdrawn money was withdrawn, Balance is the balance after the withdrawal
	FundsWithdrawn struct {
		AccountID   aggregate.ID `json:"account_id"`
		Amount      money.Money  `json:"amount"`
		Balance     money.Money  `json:"balance"`
		Description string       `json:"description"`
		OccurredAt  time.Time    `json:"occurred_at"`
	}

	// TransferSent money was sent to another account of the bank
	TransferSent struct {
		AccountID   aggregate.ID `json:"account_id"`
		ToAccountID aggregate.ID `json:"to_account_id"`
		ToIBAN      money.IBAN   `json:"to_iban"`
		Amount      money.Money  `json:"amount"`
		Balance     money.Money  `json:"balance"`
		Description string       `json:"description"`
		OccurredAt  time.Time    `json:"occurred_at"`
	}

	// TransferReceived money was received from another account of the bank
	TransferReceived struct {
		AccountID     aggregate.ID `json:"account_id"`
		FromAccountID aggregate.ID `json:"from_account_id"`
		FromIBAN      money.IBAN   `json:"from_iban"`
		Amount        money.Money  `json:"amount"`
		Balance       money.Money  `json:"balance"`
		Description   string       `json:"description"`
		OccurredAt    time.Time    `json:"occurred_at"`
	}

	// InterestApplied the daily interest was credited
	InterestApplied struct {
		AccountID  aggregate.ID    `json:"account_id"`
		Amount     money.Money     `json:"amount"`
		Balance    money.Money     `json:"balance"`
		Rate       decimal.Decimal `json:"rate"`
		OccurredAt time.Time       `json:"occurred_at"`
	}

	// AccountRenamed the display name of the account changed
	AccountRenamed struct {
		AccountID  aggregate.ID `json:"account_id"`
		Name       string       `json:"name"`
		OccurredAt time.Time    `json:"occurred_at"`
	}

	// AccountClosed the account was closed by its owner
	AccountClosed struct {
		AccountID  aggregate.ID `json:"account_id"`
		Reason     string       `json:"reason"`
		OccurredAt time.Time    `json:"occurred_at"`
	}

	// AccountBanned the account was banned by the bank
	AccountBanned struct {
		AccountID  aggregate.ID `json:"account_id"`
		Reason     string       `json:"reason"`
		OccurredAt time.Time    `json:"occurred_at"`
	}
)

func (AccountOpened) accountEvent()    {}
func (FundsDeposited) accountEvent()   {}
func (FundsWithdrawn) accountEvent()   {}
func (TransferSent) accountEvent()     {}
func (TransferReceived) accountEvent() {}
func (InterestApplied) accountEvent()  {}
func (AccountRenamed) accountEvent()   {}
func (AccountClosed) accountEvent()    {}
func (AccountBanned) accountEvent()    {}
