package portfolio

import (
	"context"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
)

// Repository loads and stores portfolios
type Repository struct {
	repo *aggregate.Repository
}

// NewType returns the aggregate.Type of a portfolio
func NewType() (*aggregate.Type, error) {
	return aggregate.NewType(AggregateType, func() aggregate.Root {
		return New()
	})
}

// NewRepository create a new Repository
func NewRepository(
	store bankengine.EventStore,
	name bankengine.StreamName,
	options ...aggregate.RepositoryOption,
) (*Repository, error) {
	portfolioType, err := NewType()
	if err != nil {
		return nil, err
	}

	repo, err := aggregate.NewRepository(store, name, portfolioType, options...)
	if err != nil {
		return nil, err
	}

	return &Repository{repo}, nil
}

// Get loads the portfolio
func (r *Repository) Get(ctx context.Context, id aggregate.ID) (*Portfolio, error) {
	root, err := r.repo.GetAggregateRoot(ctx, id)
	if err != nil {
		return nil, err
	}

	return root.(*Portfolio), nil
}

// Save the portfolio
func (r *Repository) Save(ctx context.Context, p *Portfolio) error {
	return r.repo.SaveAggregateRoot(ctx, p)
}
