package bank

import (
	"context"

	"github.com/pkg/errors"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/account"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/domain/portfolio"
	"github.com/hellofresh/bankengine/matching"
	"github.com/hellofresh/bankengine/money"
)

// OpenPortfolio opens a securities portfolio linked to a cash account of the user
func (s *Service) OpenPortfolio(ctx context.Context, userID string, accountID aggregate.ID) (*portfolio.Portfolio, error) {
	a, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if a.UserID() != userID {
		return nil, ErrNotOwner
	}

	p, err := portfolio.Open(aggregate.GenerateID(), userID, accountID)
	if err != nil {
		return nil, err
	}
	if err := s.portfolios.Save(ctx, p); err != nil {
		return nil, err
	}

	return p, nil
}

// Portfolio returns the current state of a portfolio
func (s *Service) Portfolio(ctx context.Context, id aggregate.ID) (*portfolio.Portfolio, error) {
	return s.portfolios.Get(ctx, id)
}

// DepositShares adds shares transferred in from outside the bank
func (s *Service) DepositShares(ctx context.Context, portfolioID aggregate.ID, securityID string, quantity int64) (*portfolio.Portfolio, error) {
	return s.updatePortfolio(ctx, portfolioID, 1, func(p *portfolio.Portfolio) error {
		return p.Credit(securityID, quantity, "deposit")
	})
}

// Order returns the current state of an order
func (s *Service) Order(ctx context.Context, id aggregate.ID) (*order.Order, error) {
	return s.orders.Get(ctx, id)
}

// PlaceOrder reserves the funds of a BUY or the shares of a SELL order, stores the order and
// matches it. The returned order reflects the state after matching.
func (s *Service) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, int, error) {
	a, err := s.accounts.Get(ctx, cmd.AccountID)
	if err != nil {
		return nil, 0, err
	}
	p, err := s.portfolios.Get(ctx, cmd.PortfolioID)
	if err != nil {
		return nil, 0, err
	}
	if a.UserID() != cmd.UserID || p.UserID() != cmd.UserID || p.AccountID() != cmd.AccountID {
		return nil, 0, ErrNotOwner
	}
	if a.Status() != account.Active {
		return nil, 0, errors.Wrapf(account.ErrInvalidState, "account %s is %s", a.AggregateID(), a.Status())
	}
	if cmd.Price.Currency() != s.config.Currency {
		return nil, 0, money.ErrCurrencyMismatch
	}

	o, err := order.Place(
		aggregate.GenerateID(),
		cmd.UserID,
		cmd.AccountID,
		cmd.PortfolioID,
		cmd.SecurityID,
		cmd.Side,
		cmd.Quantity,
		cmd.Price,
		s.config.OrderFee,
	)
	if err != nil {
		return nil, 0, err
	}

	reason := "order reservation " + string(o.AggregateID())
	if o.Side() == order.Buy {
		reserved, err := o.ReservedAmount()
		if err != nil {
			return nil, 0, err
		}
		if err := a.Withdraw(reserved, reason); err != nil {
			return nil, 0, err
		}
		if err := s.accounts.Save(ctx, a); err != nil {
			return nil, 0, err
		}
	} else {
		if err := p.Debit(o.SecurityID(), o.Quantity(), reason); err != nil {
			return nil, 0, err
		}
		if err := s.portfolios.Save(ctx, p); err != nil {
			return nil, 0, err
		}
	}

	if err := s.orders.Save(ctx, o); err != nil {
		if refundErr := s.release(ctx, o, "order rejected "+string(o.AggregateID())); refundErr != nil {
			s.logger.Error("failed to release reservation of rejected order", func(e bankengine.LoggerEntry) {
				e.Error(refundErr)
				e.String("order_id", string(o.AggregateID()))
			})
		}
		return nil, 0, err
	}

	s.logger.Info("order placed", func(e bankengine.LoggerEntry) {
		e.String("order_id", string(o.AggregateID()))
		e.String("security_id", o.SecurityID())
		e.String("side", string(o.Side()))
		e.Int64("quantity", o.Quantity())
		e.String("price", o.Price().String())
	})

	executions, err := s.engine.Match(ctx, o)
	if err != nil {
		return nil, executions, errors.Wrapf(err, "failed to match order %s", o.AggregateID())
	}

	placed, err := s.orders.Get(ctx, o.AggregateID())
	if err != nil {
		return nil, executions, err
	}

	return placed, executions, nil
}

// CancelOrder cancels a pending order and releases what is still reserved
func (s *Service) CancelOrder(ctx context.Context, userID string, orderID aggregate.ID, reason string) (*order.Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID() != userID {
		return nil, ErrNotOwner
	}

	if err := o.Cancel(reason); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return nil, err
	}

	if err := s.release(ctx, o, "order cancelled "+string(o.AggregateID())); err != nil {
		s.logger.Error("failed to release reservation of cancelled order", func(e bankengine.LoggerEntry) {
			e.Error(err)
			e.String("order_id", string(o.AggregateID()))
		})
		return o, err
	}

	return o, nil
}

// release gives back what is still reserved for an order,
// remaining × price + fee for a BUY and the remaining shares for a SELL
func (s *Service) release(ctx context.Context, o *order.Order, reason string) error {
	if o.Side() == order.Sell {
		_, err := s.updatePortfolio(ctx, o.PortfolioID(), s.config.Retries, func(p *portfolio.Portfolio) error {
			return p.Credit(o.SecurityID(), o.RemainingQuantity(), reason)
		})
		return err
	}

	refund, err := o.RefundOnCancel()
	if err != nil {
		return err
	}

	_, err = s.updateAccount(ctx, o.AccountID(), s.config.Retries, func(a *account.Account) error {
		return a.Deposit(refund, reason)
	})
	return err
}

// Settle moves shares and money of an execution: the buyer receives the shares and the
// price improvement, the seller receives quantity × price minus the fee of the execution
func (s *Service) Settle(ctx context.Context, execution matching.Execution) error {
	buy, sell := execution.BuyOrder, execution.SellOrder
	reason := "execution " + string(buy.AggregateID()) + "/" + string(sell.AggregateID())

	var errs []error
	if _, err := s.updatePortfolio(ctx, buy.PortfolioID(), s.config.Retries, func(p *portfolio.Portfolio) error {
		return p.Credit(execution.SecurityID, execution.Quantity, reason)
	}); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to credit shares to buyer"))
	}

	if refund, err := buy.RefundOnExecution(execution.Quantity, execution.Price); err != nil {
		errs = append(errs, err)
	} else if refund.IsPositive() {
		if _, err := s.updateAccount(ctx, buy.AccountID(), s.config.Retries, func(a *account.Account) error {
			return a.Deposit(refund, reason)
		}); err != nil {
			errs = append(errs, errors.Wrap(err, "failed to refund buyer"))
		}
	}

	if err := s.creditSeller(ctx, sell.AccountID(), execution, reason); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to credit seller"))
	}

	if len(errs) == 0 {
		return nil
	}
	for _, err := range errs[1:] {
		s.logger.Error("settlement step failed", func(e bankengine.LoggerEntry) {
			e.Error(err)
			e.String("buy_order_id", string(buy.AggregateID()))
			e.String("sell_order_id", string(sell.AggregateID()))
		})
	}

	return errs[0]
}

func (s *Service) creditSeller(ctx context.Context, accountID aggregate.ID, execution matching.Execution, reason string) error {
	gross, err := execution.Price.Times(execution.Quantity)
	if err != nil {
		return err
	}

	switch {
	case gross.GreaterThan(execution.Fee):
		net, err := gross.Sub(execution.Fee)
		if err != nil {
			return err
		}
		_, err = s.updateAccount(ctx, accountID, s.config.Retries, func(a *account.Account) error {
			return a.Deposit(net, reason)
		})
		return err
	case gross.LessThan(execution.Fee):
		owed, err := execution.Fee.Sub(gross)
		if err != nil {
			return err
		}
		_, err = s.updateAccount(ctx, accountID, s.config.Retries, func(a *account.Account) error {
			return a.Withdraw(owed, "fee "+reason)
		})
		return err
	}

	return nil
}
