package repositories

import (
	"context"
	"reflect"
	"strings"

	"github.com/SscSPs/checkout_ledger_app/internal/core/domain"
)

// Fields is a set of named field values used to create or partially update a document.
// Keys are the entity's JSON field names.
type Fields map[string]any

// Filter selects documents in FindAll. Keys naming an indexed field match exactly,
// the SearchKey matches a case-insensitive substring of the search fields, and
// any other key is ignored.
type Filter map[string]string

// SearchKey is the filter key for substring search.
const SearchKey = "search"

// Reserved field names managed by the storage layer.
const (
	FieldID        = "id"
	FieldCreatedAt = "createdAt"
	FieldUpdatedAt = "updatedAt"
)

// CollectionReader defines read operations on one entity collection.
type CollectionReader[T any] interface {
	// FindByID returns the entity or an apperrors NotFound error.
	FindByID(ctx context.Context, id string) (*T, error)

	// FindByField returns the first entity (by creation order) whose field equals value,
	// or an apperrors NotFound error.
	FindByField(ctx context.Context, field, value string) (*T, error)

	// FindAll returns every entity matching filter, ordered by creation time then id.
	FindAll(ctx context.Context, filter Filter) ([]T, error)
}

// CollectionWriter defines write operations on one entity collection.
type CollectionWriter[T any] interface {
	// Create stores a new entity, assigning its id and timestamps.
	Create(ctx context.Context, fields Fields) (*T, error)

	// Update merges partial into the stored entity and refreshes updatedAt.
	// It returns (nil, nil) when the id does not resolve.
	Update(ctx context.Context, id string, partial Fields) (*T, error)

	// Delete removes the entity and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// Collection combines the read and write operations on one entity collection.
// Every backend must give identical observable behaviour.
type Collection[T any] interface {
	CollectionReader[T]
	CollectionWriter[T]
}

// CollectionSpec describes the query surface of a collection.
type CollectionSpec struct {
	Name          string
	IndexedFields []string
	UniqueFields  []string
	SearchFields  []string
}

// IsIndexed reports whether field takes part in exact-match filtering.
func (s CollectionSpec) IsIndexed(field string) bool {
	for _, f := range s.IndexedFields {
		if f == field {
			return true
		}
	}
	return false
}

// Collection layouts shared by all backends.
var (
	UsersSpec = CollectionSpec{
		Name:          "users",
		IndexedFields: []string{"role", "status", "team", "email"},
		UniqueFields:  []string{"email"},
		SearchFields:  []string{"name", "email"},
	}
	ItemsSpec = CollectionSpec{
		Name:          "items",
		IndexedFields: []string{"status", "category", "condition", "location", "qrCode", "barcode"},
		UniqueFields:  []string{"qrCode", "barcode"},
		SearchFields:  []string{"name", "description", "category", "location"},
	}
	TransactionsSpec = CollectionSpec{
		Name:          "transactions",
		IndexedFields: []string{"status", "type", "item", "user", "transactionNumber"},
		UniqueFields:  []string{"transactionNumber"},
		SearchFields:  []string{"transactionNumber", "purpose", "destination"},
	}
	NotificationsSpec = CollectionSpec{
		Name:          "notifications",
		IndexedFields: []string{"recipient", "type", "relatedTransaction", "relatedItem", "priority"},
		SearchFields:  []string{"title", "message"},
	}
	GuestRequestsSpec = CollectionSpec{
		Name:          "guestRequests",
		IndexedFields: []string{"status", "item", "email"},
		SearchFields:  []string{"name", "email", "purpose"},
	}
)

// Store groups the collections the engine works with.
type Store struct {
	Users         Collection[domain.User]
	Items         Collection[domain.Item]
	Transactions  Collection[domain.Transaction]
	Notifications Collection[domain.Notification]
	GuestRequests Collection[domain.GuestRequest]
}

// FieldsFrom converts an entity struct into Fields keyed by JSON field names.
// Embedded structs (the storage Document) are skipped, "omitempty" fields with
// zero values are left out and values keep their Go types.
func FieldsFrom(v any) Fields {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Fields{}
		}
		rv = rv.Elem()
	}
	out := Fields{}
	if rv.Kind() != reflect.Struct {
		return out
	}
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		sf := rt.Field(i)
		if sf.Anonymous || !sf.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(sf.Tag.Get("json"), ",")
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		fv := rv.Field(i)
		if strings.Contains(opts, "omitempty") && fv.IsZero() {
			continue
		}
		out[name] = fv.Interface()
	}
	return out
}
