// Package filestore implements the storage contract on plain JSON files.
package filestore

import (
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	"github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/spf13/afero"
)

var (
	_ repositories.Collection[domain.User]         = (*Collection[domain.User])(nil)
	_ repositories.Collection[domain.Item]         = (*Collection[domain.Item])(nil)
	_ repositories.Collection[domain.Transaction]  = (*Collection[domain.Transaction])(nil)
	_ repositories.Collection[domain.Notification] = (*Collection[domain.Notification])(nil)
	_ repositories.Collection[domain.GuestRequest] = (*Collection[domain.GuestRequest])(nil)
)

// New opens (creating if needed) a file store rooted at dir.
func New(fs afero.Fs, dir string, timeout time.Duration) (*repositories.Store, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.StorageFailure(err, "creating data directory %s", dir)
	}
	return &repositories.Store{
		Users:         NewCollection[domain.User](fs, dir, repositories.UsersSpec, timeout),
		Items:         NewCollection[domain.Item](fs, dir, repositories.ItemsSpec, timeout),
		Transactions:  NewCollection[domain.Transaction](fs, dir, repositories.TransactionsSpec, timeout),
		Notifications: NewCollection[domain.Notification](fs, dir, repositories.NotificationsSpec, timeout),
		GuestRequests: NewCollection[domain.GuestRequest](fs, dir, repositories.GuestRequestsSpec, timeout),
	}, nil
}
