// Package mongostore implements the storage contract on MongoDB.
package mongostore

import (
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	"github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mongodb"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.mongodb.org/mongo-driver/mongo"
)

//go:embed migrations/*.json
var migrationFiles embed.FS

var (
	_ repositories.Collection[domain.User]         = (*Collection[domain.User])(nil)
	_ repositories.Collection[domain.Item]         = (*Collection[domain.Item])(nil)
	_ repositories.Collection[domain.Transaction]  = (*Collection[domain.Transaction])(nil)
	_ repositories.Collection[domain.Notification] = (*Collection[domain.Notification])(nil)
	_ repositories.Collection[domain.GuestRequest] = (*Collection[domain.GuestRequest])(nil)
)

// New builds a store over db. The client must have been created with Registry().
func New(db *mongo.Database, timeout time.Duration) *repositories.Store {
	return &repositories.Store{
		Users:         NewCollection[domain.User](db, repositories.UsersSpec, timeout),
		Items:         NewCollection[domain.Item](db, repositories.ItemsSpec, timeout),
		Transactions:  NewCollection[domain.Transaction](db, repositories.TransactionsSpec, timeout),
		Notifications: NewCollection[domain.Notification](db, repositories.NotificationsSpec, timeout),
		GuestRequests: NewCollection[domain.GuestRequest](db, repositories.GuestRequestsSpec, timeout),
	}
}

// Migrate applies the embedded index migrations to the database.
// It reports whether any migration was applied.
func Migrate(client *mongo.Client, database string) (applied bool, err error) {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return false, fmt.Errorf("opening embedded migrations: %w", err)
	}

	driver, err := mongodb.WithInstance(client, &mongodb.Config{DatabaseName: database})
	if err != nil {
		return false, fmt.Errorf("creating mongodb migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "mongodb", driver)
	if err != nil {
		return false, fmt.Errorf("creating migrate instance: %w", err)
	}

	upErr := m.Up()
	// Closing the driver would disconnect the shared client, so only the source is closed.
	if srcErr := src.Close(); srcErr != nil && upErr == nil {
		upErr = srcErr
	}

	if errors.Is(upErr, migrate.ErrNoChange) {
		return false, nil
	}
	if upErr != nil {
		return false, fmt.Errorf("applying migrations: %w", upErr)
	}
	return true, nil
}
