package bank

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/account"
	"github.com/hellofresh/bankengine/money"
)

// OpenAccount opens an account with a newly generated IBAN
func (s *Service) OpenAccount(
	ctx context.Context,
	userID string,
	accountType account.Type,
	initialBalance money.Money,
	name string,
) (*account.Account, error) {
	if initialBalance.Currency() != s.config.Currency {
		return nil, money.ErrCurrencyMismatch
	}

	iban, err := s.ibans.Generate(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate IBAN")
	}

	var options []account.OpenOption
	if s.config.SavingsRate.IsPositive() {
		options = append(options, account.WithInterestRate(s.config.SavingsRate))
	}
	if name != "" {
		options = append(options, account.WithName(name))
	}

	a, err := account.Open(aggregate.GenerateID(), userID, iban, accountType, initialBalance, options...)
	if err != nil {
		return nil, err
	}
	if err := s.accounts.Save(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("account opened", func(e bankengine.LoggerEntry) {
		e.String("account_id", string(a.AggregateID()))
		e.String("iban", a.IBAN().String())
		e.String("type", string(a.Type()))
	})

	return a, nil
}

// Account returns the current state of an account
func (s *Service) Account(ctx context.Context, id aggregate.ID) (*account.Account, error) {
	return s.accounts.Get(ctx, id)
}

// Deposit deposits money on an account
func (s *Service) Deposit(ctx context.Context, id aggregate.ID, amount money.Money, description string) (*account.Account, error) {
	return s.updateAccount(ctx, id, 1, func(a *account.Account) error {
		return a.Deposit(amount, description)
	})
}

// Withdraw withdraws money from an account
func (s *Service) Withdraw(ctx context.Context, id aggregate.ID, amount money.Money, description string) (*account.Account, error) {
	return s.updateAccount(ctx, id, 1, func(a *account.Account) error {
		return a.Withdraw(amount, description)
	})
}

// ApplyInterest credits the daily interest of a savings account
func (s *Service) ApplyInterest(ctx context.Context, id aggregate.ID) (*account.Account, error) {
	return s.updateAccount(ctx, id, 1, func(a *account.Account) error {
		return a.ApplyInterest()
	})
}

// RenameAccount changes the display name of an account
func (s *Service) RenameAccount(ctx context.Context, id aggregate.ID, name string) (*account.Account, error) {
	return s.updateAccount(ctx, id, 1, func(a *account.Account) error {
		return a.Rename(name)
	})
}

// CloseAccount closes an account without money on it
func (s *Service) CloseAccount(ctx context.Context, id aggregate.ID, reason string) (*account.Account, error) {
	return s.updateAccount(ctx, id, 1, func(a *account.Account) error {
		return a.Close(reason)
	})
}

// BanAccount bans an account
func (s *Service) BanAccount(ctx context.Context, id aggregate.ID, reason string) (*account.Account, error) {
	return s.updateAccount(ctx, id, 1, func(a *account.Account) error {
		return a.Ban(reason)
	})
}

// Transfer moves money between two accounts of the bank.
// The debit of the sender and the credit of the recipient are two separate appends,
// the credit is retried on concurrency conflicts once the debit is stored.
func (s *Service) Transfer(ctx context.Context, fromID, toID aggregate.ID, amount money.Money, description string) error {
	if fromID == toID {
		return bankengine.InvalidArgumentError("toID")
	}

	sender, err := s.accounts.Get(ctx, fromID)
	if err != nil {
		return err
	}
	recipient, err := s.accounts.Get(ctx, toID)
	if err != nil {
		return err
	}

	// validate the credit before any money leaves the sender
	if err := recipient.ReceiveTransfer(fromID, sender.IBAN(), amount, description); err != nil {
		return err
	}
	if err := sender.SendTransfer(toID, recipient.IBAN(), amount, description); err != nil {
		return err
	}
	if err := s.accounts.Save(ctx, sender); err != nil {
		return err
	}

	if err := s.accounts.Save(ctx, recipient); err == nil {
		return nil
	} else if !errors.Is(err, bankengine.ErrConcurrencyConflict) {
		return s.transferCreditFailed(fromID, toID, amount, err)
	}

	_, err = s.updateAccount(ctx, toID, s.config.Retries, func(a *account.Account) error {
		return a.ReceiveTransfer(fromID, sender.IBAN(), amount, description)
	})
	if err != nil {
		return s.transferCreditFailed(fromID, toID, amount, err)
	}

	return nil
}

func (s *Service) transferCreditFailed(fromID, toID aggregate.ID, amount money.Money, err error) error {
	s.logger.Error("transfer debited without credit", func(e bankengine.LoggerEntry) {
		e.Error(err)
		e.String("from_account_id", string(fromID))
		e.String("to_account_id", string(toID))
		e.String("amount", amount.String())
	})

	return errors.Wrapf(err, "failed to credit transfer to %s", toID)
}
