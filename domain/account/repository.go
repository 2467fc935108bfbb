package account

import (
	"context"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
)

// Repository loads and stores bank accounts
type Repository struct {
	repo *aggregate.Repository
}

// NewType returns the aggregate.Type of a bank account
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
	accountType, err := NewType()
	if err != nil {
		return nil, err
	}

	repo, err := aggregate.NewRepository(store, name, accountType, options...)
	if err != nil {
		return nil, err
	}

	return &Repository{repo}, nil
}

// Get loads the bank account
func (r *Repository) Get(ctx context.Context, id aggregate.ID) (*Account, error) {
	root, err := r.repo.GetAggregateRoot(ctx, id)
	if err != nil {
		return nil, err
	}

	return root.(*Account), nil
}

// Save the bank account
func (r *Repository) Save(ctx context.Context, account *Account) error {
	return r.repo.SaveAggregateRoot(ctx, account)
}
