package portfolio

import (
	"time"

	"github.com/hellofresh/bankengine/aggregate"
)

// Registered event names
const (
	PortfolioOpenedName = "PortfolioOpened"
	SharesCreditedName  = "SharesCredited"
	SharesDebitedName   = "SharesDebited"
)

type (
	// Event is implemented by the events of a portfolio only
	Event interface {
		portfolioEvent()
	}

	// PortfolioOpened a securities portfolio was opened for a user
	PortfolioOpened struct {
		PortfolioID aggregate.ID `json:"portfolio_id"`
		UserID      string       `json:"user_id"`
		AccountID   aggregate.ID `json:"account_id"`
		OccurredAt  time.Time    `json:"occurred_at"`
	}

	// SharesCredited shares were added, Holding is the holding after the credit
	SharesCredited struct {
		PortfolioID aggregate.ID `json:"portfolio_id"`
		SecurityID  string       `json:"security_id"`
		Quantity    int64        `json:"quantity"`
		Holding     int64        `json:"holding"`
		Reason      string       `json:"reason"`
		OccurredAt  time.Time    `json:"occurred_at"`
	}

	// SharesDebited shares were taken out, Holding is the holding after the debit
	SharesDebited struct {
		PortfolioID aggregate.ID `json:"portfolio_id"`
		SecurityID  string       `json:"security_id"`
		Quantity    int64        `json:"quantity"`
		Holding     int64        `json:"holding"`
		Reason      string       `json:"reason"`
		OccurredAt  time.Time    `json:"occurred_at"`
	}
)

func (PortfolioOpened) portfolioEvent() {}
func (SharesCredited) portfolioEvent()  {}
func (SharesDebited) portfolioEvent()   {}
