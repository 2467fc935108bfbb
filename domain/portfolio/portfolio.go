package portfolio

import (
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
)

// AggregateType is the name under which portfolios are stored
const AggregateType = "portfolio"

var (
	// ErrInsufficientShares occurs when more shares are debited than held
	ErrInsufficientShares = errors.New("bankengine: insufficient shares")
	// ErrInvalidQuantity occurs when a quantity is not positive
	ErrInvalidQuantity = errors.New("bankengine: share quantity must be positive")

	_ aggregate.Root = &Portfolio{}
)

// Portfolio holds the securities of a user, holdings never drop below zero
type Portfolio struct {
	aggregate.BaseRoot

	id        aggregate.ID
	userID    string
	accountID aggregate.ID
	holdings  map[string]int64
}

// New returns an empty portfolio used to replay history
func New() *Portfolio {
	return &Portfolio{}
}

// Open opens an empty portfolio linked to the cash account of the user
func Open(id aggregate.ID, userID string, accountID aggregate.ID) (*Portfolio, error) {
	switch {
	case id == "":
		return nil, bankengine.InvalidArgumentError("id")
	case strings.TrimSpace(userID) == "":
		return nil, bankengine.InvalidArgumentError("userID")
	case accountID == "":
		return nil, bankengine.InvalidArgumentError("accountID")
	}

	p := &Portfolio{id: id}
	if err := aggregate.RecordChange(p, PortfolioOpened{
		PortfolioID: id,
		UserID:      userID,
		AccountID:   accountID,
		OccurredAt:  time.Now().UTC(),
	}); err != nil {
		return nil, err
	}

	return p, nil
}

// AggregateID returns the portfolio's aggregate.ID
func (p *Portfolio) AggregateID() aggregate.ID {
	return p.id
}

// UserID returns the owner
func (p *Portfolio) UserID() string {
	return p.userID
}

// AccountID returns the linked cash account
func (p *Portfolio) AccountID() aggregate.ID {
	return p.accountID
}

// Holding returns the number of shares held of the security
func (p *Portfolio) Holding(securityID string) int64 {
	return p.holdings[securityID]
}

// Holdings returns a copy of all non-zero holdings
func (p *Portfolio) Holdings() map[string]int64 {
	holdings := make(map[string]int64, len(p.holdings))
	for securityID, quantity := range p.holdings {
		if quantity > 0 {
			holdings[securityID] = quantity
		}
	}

	return holdings
}

// Credit adds shares of a security
func (p *Portfolio) Credit(securityID string, quantity int64, reason string) error {
	if err := validate(securityID, quantity); err != nil {
		return err
	}

	return aggregate.RecordChange(p, SharesCredited{
		PortfolioID: p.id,
		SecurityID:  securityID,
		Quantity:    quantity,
		Holding:     p.holdings[securityID] + quantity,
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	})
}

// Debit takes out shares of a security
func (p *Portfolio) Debit(securityID string, quantity int64, reason string) error {
	if err := validate(securityID, quantity); err != nil {
		return err
	}

	held := p.holdings[securityID]
	if held < quantity {
		return errors.Wrapf(ErrInsufficientShares, "holding %d %s, need %d", held, securityID, quantity)
	}

	return aggregate.RecordChange(p, SharesDebited{
		PortfolioID: p.id,
		SecurityID:  securityID,
		Quantity:    quantity,
		Holding:     held - quantity,
		Reason:      reason,
		OccurredAt:  time.Now().UTC(),
	})
}

// Apply changes the state of the Portfolio
func (p *Portfolio) Apply(change *aggregate.Changed) error {
	event, ok := change.Payload().(Event)
	if !ok {
		return bankengine.NewUnknownEventKindError(change.Payload())
	}

	switch e := event.(type) {
	case PortfolioOpened:
		p.id = e.PortfolioID
		p.userID = e.UserID
		p.accountID = e.AccountID
		p.holdings = map[string]int64{}
	case SharesCredited:
		p.holdings[e.SecurityID] = e.Holding
	case SharesDebited:
		p.holdings[e.SecurityID] = e.Holding
	default:
		return bankengine.NewUnknownEventKindError(e)
	}

	return nil
}

func validate(securityID string, quantity int64) error {
	if strings.TrimSpace(securityID) == "" {
		return bankengine.InvalidArgumentError("securityID")
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	return nil
}
