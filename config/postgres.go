package config

import (
	"context"
	"database/sql"
	"time"

	// postgres driver
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/hellofresh/bankengine"
	driverPostgres "github.com/hellofresh/bankengine/driver/sql/postgres"
	strategyPostgres "github.com/hellofresh/bankengine/strategy/json/sql/postgres"
)

// AccountNumberSequence is the postgres sequence account numbers are taken from
const AccountNumberSequence = "bank_account_numbers"

// OpenPostgres opens the database and waits until it accepts connections
func OpenPostgres(ctx context.Context, dsn string, logger bankengine.Logger) (*sql.DB, error) {
	if dsn == "" {
		return nil, bankengine.InvalidArgumentError("POSTGRES_DSN")
	}
	if logger == nil {
		logger = bankengine.NopLogger
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt > 5 {
			break
		}

		logger.Warn("failed to ping db waiting to try again", func(e bankengine.LoggerEntry) {
			e.Error(err)
			e.Int("attempt", attempt)
		})

		if waitErr := wait(ctx, time.Second); waitErr != nil {
			err = waitErr
			break
		}
	}

	if closeErr := db.Close(); closeErr != nil {
		logger.Warn("failed to close db", func(e bankengine.LoggerEntry) {
			e.Error(closeErr)
		})
	}

	return nil, errors.Wrap(err, "bankengine: postgres is not reachable")
}

// OpenGorm returns a gorm handle sharing the connection pool of db
func OpenGorm(db *sql.DB) (*gorm.DB, error) {
	if db == nil {
		return nil, bankengine.InvalidArgumentError("db")
	}

	return gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
}

// SetupDB creates the event stream table, the account number sequence and the read model tables
func SetupDB(
	ctx context.Context,
	manager *strategyPostgres.SingleStreamManager,
	db *sql.DB,
	streamName bankengine.StreamName,
	migrations ...func(context.Context) error,
) error {
	eventStore, err := manager.NewEventStore()
	if err != nil {
		return err
	}

	err = eventStore.Create(ctx, streamName)
	if err != nil && err != driverPostgres.ErrTableAlreadyExists {
		return errors.Wrapf(err, "bankengine: failed to create stream %s", streamName)
	}

	sequence, err := driverPostgres.NewSequence(db, AccountNumberSequence)
	if err != nil {
		return err
	}
	if err := sequence.Create(ctx); err != nil {
		return errors.Wrap(err, "bankengine: failed to create account number sequence")
	}

	for _, migrate := range migrations {
		if err := migrate(ctx); err != nil {
			return err
		}
	}

	return nil
}

func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
