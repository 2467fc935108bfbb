package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hellofresh/bankengine"
)

// Sequence hands out account numbers from a postgres sequence.
// nextval is atomic across connections and processes.
type Sequence struct {
	db   *sql.DB
	name string
}

// NewSequence returns a Sequence backed by the named postgres sequence
func NewSequence(db *sql.DB, name string) (*Sequence, error) {
	switch {
	case db == nil:
		return nil, bankengine.InvalidArgumentError("db")
	case name == "":
		return nil, bankengine.InvalidArgumentError("name")
	}

	return &Sequence{db: db, name: name}, nil
}

// Create creates the sequence when it does not exist
func (s *Sequence) Create(ctx context.Context) error {
	/* #nosec G201 */
	_, err := s.db.ExecContext(ctx, fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START 1", pq.QuoteIdentifier(s.name)))

	return err
}

// Next returns the next value of the sequence
func (s *Sequence) Next(ctx context.Context) (uint64, error) {
	var next int64
	if err := s.db.QueryRowContext(ctx, "SELECT nextval($1::regclass)", s.name).Scan(&next); err != nil {
		return 0, err
	}

	return uint64(next), nil
}
