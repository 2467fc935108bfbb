package order

import (
	"context"

	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
)

// Repository loads and stores orders
type Repository struct {
	repo *aggregate.Repository
}

// NewType returns the aggregate.Type of an order
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
	orderType, err := NewType()
	if err != nil {
		return nil, err
	}

	repo, err := aggregate.NewRepository(store, name, orderType, options...)
	if err != nil {
		return nil, err
	}

	return &Repository{repo}, nil
}

// Get loads the order
func (r *Repository) Get(ctx context.Context, id aggregate.ID) (*Order, error) {
	root, err := r.repo.GetAggregateRoot(ctx, id)
	if err != nil {
		return nil, err
	}

	return root.(*Order), nil
}

// Save the order
func (r *Repository) Save(ctx context.Context, o *Order) error {
	return r.repo.SaveAggregateRoot(ctx, o)
}

// Load returns the events of the order in version order
func (r *Repository) Load(ctx context.Context, id aggregate.ID) ([]*aggregate.Changed, error) {
	return r.repo.Load(ctx, id)
}
