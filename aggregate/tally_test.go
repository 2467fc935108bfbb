//go:build unit
// +build unit

package aggregate_test

import (
	"github.com/hellofresh/bankengine"
	"github.com/hellofresh/bankengine/aggregate"
)

// tally is a minimal aggregate root used to exercise the kernel
type (
	tally struct {
		aggregate.BaseRoot

		id    aggregate.ID
		total int
		log   []int
	}

	otherRoot struct {
		aggregate.BaseRoot
	}

	tallyOpened struct {
		ID aggregate.ID
	}

	tallyAdded struct {
		Amount int
	}

	unknownEvent struct{}
)

func openTally() (*tally, error) {
	t := &tally{id: aggregate.GenerateID()}
	if err := aggregate.RecordChange(t, tallyOpened{ID: t.id}); err != nil {
		return nil, err
	}

	return t, nil
}

func (t *tally) Add(amount int) error {
	return aggregate.RecordChange(t, tallyAdded{Amount: amount})
}

func (t *tally) AggregateID() aggregate.ID {
	return t.id
}

func (t *tally) Apply(change *aggregate.Changed) error {
	switch e := change.Payload().(type) {
	case tallyOpened:
		t.id = e.ID
	case tallyAdded:
		t.total += e.Amount
		t.log = append(t.log, e.Amount)
	default:
		return bankengine.NewUnknownEventKindError(e)
	}

	return nil
}

func (o *otherRoot) AggregateID() aggregate.ID {
	return "other"
}

func (o *otherRoot) Apply(*aggregate.Changed) error {
	return nil
}
