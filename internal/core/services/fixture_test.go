package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/adapters/storage/filestore"
	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
	portsrepo "github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/checkout_ledger_app/internal/core/services"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeClock is a settable clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingEmitter keeps every emitted event.
type recordingEmitter struct {
	mu     sync.Mutex
	events []domain.NotificationEvent
}

func (r *recordingEmitter) Emit(_ context.Context, ev domain.NotificationEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingEmitter) ofType(t domain.NotificationType) []domain.NotificationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.NotificationEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingEmitter) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func newMemStore(t *testing.T) *portsrepo.Store {
	t.Helper()
	store, err := filestore.New(afero.NewMemMapFs(), "/data", 2*time.Second)
	require.NoError(t, err)
	return store
}

func createUser(t *testing.T, store *portsrepo.Store, name string, role domain.Role, perms ...string) domain.Actor {
	t.Helper()
	u, err := store.Users.Create(context.Background(), portsrepo.FieldsFrom(&domain.User{
		Name:        name,
		Role:        role,
		Permissions: perms,
		Status:      domain.UserStatusActive,
	}))
	require.NoError(t, err)
	return domain.Actor{UserID: u.ID, Role: u.Role, Permissions: u.Permissions}
}

func createItem(t *testing.T, store *portsrepo.Store, name string, total int) *domain.Item {
	t.Helper()
	item, err := store.Items.Create(context.Background(), portsrepo.FieldsFrom(&domain.Item{
		Name:              name,
		TotalQuantity:     total,
		AvailableQuantity: total,
		IsCheckoutable:    true,
		RequiresApproval:  true,
		Status:            domain.ItemStatusActive,
	}))
	require.NoError(t, err)
	return item
}

var errInjected = errors.New("disk on fire")

var fivePerDay = services.NewPenaltyCalculator(decimal.NewFromInt(5), "USD")

// flakyCollection fails Update calls for which failUpdate returns true.
type flakyCollection[T any] struct {
	portsrepo.Collection[T]

	mu         sync.Mutex
	updates    int
	failUpdate func(n int, fields portsrepo.Fields) bool
}

func (f *flakyCollection[T]) Update(ctx context.Context, id string, fields portsrepo.Fields) (*T, error) {
	f.mu.Lock()
	f.updates++
	n := f.updates
	fail := f.failUpdate != nil && f.failUpdate(n, fields)
	f.mu.Unlock()
	if fail {
		return nil, apperrors.StorageFailure(errInjected, "injected update failure")
	}
	return f.Collection.Update(ctx, id, fields)
}
