// Package bank handles the commands of the bank: account management, transfers, interest and
// securities orders including the reservation of funds or shares and the settlement of executions.
//
// Aggregates are written one at a time. Commands return a concurrency conflict to the caller,
// follow-up writes that must not get lost (settlements, refunds and transfer credits) are retried.
package bank

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
	"github.com/hellofresh/bankengine/domain/account"
	"github.com/hellofresh/bankengine/domain/order"
	"github.com/hellofresh/bankengine/domain/portfolio"
	"github.com/hellofresh/bankengine/matching"
	"github.com/hellofresh/bankengine/money"
)

// DefaultRetries is the number of attempts for follow-up writes
const DefaultRetries = 5

var (
	// ErrNotOwner occurs when a user acts on an account, portfolio or order of another user
	ErrNotOwner = errors.New("bankengine: resource belongs to another user")

	_ matching.Settler = &Service{}
)

type (
	// Config holds the business settings of the Service
	Config struct {
		Currency    string
		OrderFee    money.Money
		SavingsRate decimal.Decimal
		Retries     int
	}

	// Service executes the commands of the bank
	Service struct {
		accounts   *account.Repository
		orders     *order.Repository
		portfolios *portfolio.Repository
		ibans      *money.Generator
		engine     *matching.Engine

		config Config
		logger bankengine.Logger
	}

	// PlaceOrder is the command to place a limit order
	PlaceOrder struct {
		UserID      string
		AccountID   aggregate.ID
		PortfolioID aggregate.ID
		SecurityID  string
		Side        order.Side
		Quantity    int64
		Price       money.Money
	}
)

// NewService returns a new Service, the Service settles the executions of its matching engine
func NewService(
	accounts *account.Repository,
	orders *order.Repository,
	portfolios *portfolio.Repository,
	ibans *money.Generator,
	book matching.OrderBook,
	config Config,
	logger bankengine.Logger,
	metrics bankengine.Metrics,
) (*Service, error) {
	switch {
	case accounts == nil:
		return nil, bankengine.InvalidArgumentError("accounts")
	case orders == nil:
		return nil, bankengine.InvalidArgumentError("orders")
	case portfolios == nil:
		return nil, bankengine.InvalidArgumentError("portfolios")
	case ibans == nil:
		return nil, bankengine.InvalidArgumentError("ibans")
	case config.OrderFee.Currency() != config.Currency:
		return nil, bankengine.InvalidArgumentError("config.OrderFee")
	}
	if config.Retries <= 0 {
		config.Retries = DefaultRetries
	}
	if logger == nil {
		logger = bankengine.NopLogger
	}

	s := &Service{
		accounts:   accounts,
		orders:     orders,
		portfolios: portfolios,
		ibans:      ibans,
		config:     config,
		logger:     logger,
	}

	engine, err := matching.NewEngine(orders, book, s, matching.WithLogger(logger), matching.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}
	s.engine = engine

	return s, nil
}

// updateAccount loads the account, changes it and saves it.
// attempts > 1 retries the whole cycle on concurrency conflicts.
func (s *Service) updateAccount(ctx context.Context, id aggregate.ID, attempts int, change func(*account.Account) error) (*account.Account, error) {
	var updated *account.Account
	err := Retry(ctx, attempts, func(ctx context.Context) error {
		a, err := s.accounts.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := change(a); err != nil {
			return err
		}
		if err := s.accounts.Save(ctx, a); err != nil {
			return err
		}

		updated = a
		return nil
	})

	return updated, err
}

// updatePortfolio loads the portfolio, changes it and saves it
func (s *Service) updatePortfolio(ctx context.Context, id aggregate.ID, attempts int, change func(*portfolio.Portfolio) error) (*portfolio.Portfolio, error) {
	var updated *portfolio.Portfolio
	err := Retry(ctx, attempts, func(ctx context.Context) error {
		p, err := s.portfolios.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := change(p); err != nil {
			return err
		}
		if err := s.portfolios.Save(ctx, p); err != nil {
			return err
		}

		updated = p
		return nil
	})

	return updated, err
}
