package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type document = map[string]any

// Collection stores one entity type as a JSON array in a single file.
// Every operation reads, modifies and rewrites the whole file while holding
// the collection's exclusive lock.
type Collection[T any] struct {
	fs      afero.Fs
	file    string
	spec    repositories.CollectionSpec
	timeout time.Duration
	lock    chan struct{}
	now     func() time.Time
}

// NewCollection creates a file-backed collection at <dir>/<spec.Name>.json.
func NewCollection[T any](fs afero.Fs, dir string, spec repositories.CollectionSpec, timeout time.Duration) *Collection[T] {
	return &Collection[T]{
		fs:      fs,
		file:    filepath.Join(dir, spec.Name+".json"),
		spec:    spec,
		timeout: timeout,
		lock:    make(chan struct{}, 1),
		now:     func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	var found *T
	err := c.withLock(ctx, func(ctx context.Context) error {
		docs, err := c.load()
		if err != nil {
			return err
		}
		idx := indexOf(docs, id)
		if idx < 0 {
			return apperrors.NotFound("%s %s not found", c.spec.Name, id)
		}
		found, err = c.decode(docs[idx])
		return err
	})
	return found, err
}

func (c *Collection[T]) FindByField(ctx context.Context, field, value string) (*T, error) {
	var found *T
	err := c.withLock(ctx, func(ctx context.Context) error {
		docs, err := c.load()
		if err != nil {
			return err
		}
		sortDocs(docs)
		for _, doc := range docs {
			if stringValue(doc[field]) == value {
				found, err = c.decode(doc)
				return err
			}
		}
		return apperrors.NotFound("%s with %s %q not found", c.spec.Name, field, value)
	})
	return found, err
}

func (c *Collection[T]) FindAll(ctx context.Context, filter repositories.Filter) ([]T, error) {
	out := []T{}
	err := c.withLock(ctx, func(ctx context.Context) error {
		docs, err := c.load()
		if err != nil {
			return err
		}
		sortDocs(docs)
		for _, doc := range docs {
			if !c.matches(doc, filter) {
				continue
			}
			entity, err := c.decode(doc)
			if err != nil {
				return err
			}
			out = append(out, *entity)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Collection[T]) Create(ctx context.Context, fields repositories.Fields) (*T, error) {
	doc, err := normalize(fields)
	if err != nil {
		return nil, apperrors.Validation("invalid %s fields: %v", c.spec.Name, err)
	}
	now := c.now().Format(time.RFC3339Nano)
	doc[repositories.FieldID] = uuid.NewString()
	doc[repositories.FieldCreatedAt] = now
	doc[repositories.FieldUpdatedAt] = now

	var created *T
	err = c.withLock(ctx, func(ctx context.Context) error {
		docs, err := c.load()
		if err != nil {
			return err
		}
		if err := c.checkUnique(docs, doc); err != nil {
			return err
		}
		// Decode before writing so an entity that cannot be read back is never stored.
		if created, err = c.decode(doc); err != nil {
			return err
		}
		return c.save(ctx, append(docs, doc))
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (c *Collection[T]) Update(ctx context.Context, id string, partial repositories.Fields) (*T, error) {
	patch, err := normalize(partial)
	if err != nil {
		return nil, apperrors.Validation("invalid %s fields: %v", c.spec.Name, err)
	}

	var updated *T
	err = c.withLock(ctx, func(ctx context.Context) error {
		docs, err := c.load()
		if err != nil {
			return err
		}
		idx := indexOf(docs, id)
		if idx < 0 {
			return nil
		}
		merged := make(document, len(docs[idx])+len(patch))
		for k, v := range docs[idx] {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}
		merged[repositories.FieldUpdatedAt] = c.now().Format(time.RFC3339Nano)

		if err := c.checkUnique(docs, merged); err != nil {
			return err
		}
		if updated, err = c.decode(merged); err != nil {
			return err
		}
		docs[idx] = merged
		return c.save(ctx, docs)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	deleted := false
	err := c.withLock(ctx, func(ctx context.Context) error {
		docs, err := c.load()
		if err != nil {
			return err
		}
		idx := indexOf(docs, id)
		if idx < 0 {
			return nil
		}
		deleted = true
		return c.save(ctx, append(docs[:idx], docs[idx+1:]...))
	})
	return deleted, err
}

// withLock runs fn while holding the collection lock, bounded by the storage timeout.
func (c *Collection[T]) withLock(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	select {
	case c.lock <- struct{}{}:
	case <-ctx.Done():
		return apperrors.StorageFailure(ctx.Err(), "waiting for %s collection lock", c.spec.Name)
	}
	defer func() { <-c.lock }()

	return fn(ctx)
}

func (c *Collection[T]) load() ([]document, error) {
	raw, err := afero.ReadFile(c.fs, c.file)
	if errors.Is(err, os.ErrNotExist) {
		return []document{}, nil
	}
	if err != nil {
		return nil, apperrors.StorageFailure(err, "reading %s", c.file)
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return []document{}, nil
	}
	var docs []document
	if err := json.Unmarshal(raw, &docs); err != nil {
		return nil, apperrors.StorageFailure(err, "decoding %s", c.file)
	}
	return docs, nil
}

// save writes docs to a temporary file and renames it over the collection file.
func (c *Collection[T]) save(ctx context.Context, docs []document) error {
	if err := ctx.Err(); err != nil {
		return apperrors.StorageFailure(err, "writing %s", c.file)
	}
	raw, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return apperrors.StorageFailure(err, "encoding %s", c.spec.Name)
	}
	tmp := c.file + ".tmp"
	if err := afero.WriteFile(c.fs, tmp, raw, 0o644); err != nil {
		return apperrors.StorageFailure(err, "writing %s", tmp)
	}
	if err := c.fs.Rename(tmp, c.file); err != nil {
		_ = c.fs.Remove(tmp)
		return apperrors.StorageFailure(err, "replacing %s", c.file)
	}
	return nil
}

func (c *Collection[T]) decode(doc document) (*T, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, apperrors.StorageFailure(err, "encoding %s document", c.spec.Name)
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, apperrors.Validation("%s document does not match its schema: %v", c.spec.Name, err)
	}
	return &out, nil
}

func (c *Collection[T]) matches(doc document, filter repositories.Filter) bool {
	for key, want := range filter {
		if want == "" {
			continue
		}
		switch {
		case key == repositories.SearchKey:
			if !c.containsSearch(doc, want) {
				return false
			}
		case c.spec.IsIndexed(key):
			if stringValue(doc[key]) != want {
				return false
			}
		}
	}
	return true
}

func (c *Collection[T]) containsSearch(doc document, term string) bool {
	term = strings.ToLower(term)
	for _, field := range c.spec.SearchFields {
		if strings.Contains(strings.ToLower(stringValue(doc[field])), term) {
			return true
		}
	}
	return false
}

func (c *Collection[T]) checkUnique(docs []document, candidate document) error {
	id := stringValue(candidate[repositories.FieldID])
	for _, field := range c.spec.UniqueFields {
		value := stringValue(candidate[field])
		if value == "" {
			continue
		}
		for _, doc := range docs {
			if stringValue(doc[repositories.FieldID]) != id && stringValue(doc[field]) == value {
				return apperrors.Validation("%s %s %q already exists", c.spec.Name, field, value)
			}
		}
	}
	return nil
}

// normalize turns native Go values into their JSON shape and drops storage-managed keys.
func normalize(fields repositories.Fields) (document, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	doc := document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	delete(doc, repositories.FieldID)
	delete(doc, repositories.FieldCreatedAt)
	delete(doc, repositories.FieldUpdatedAt)
	return doc, nil
}

func indexOf(docs []document, id string) int {
	for i, doc := range docs {
		if stringValue(doc[repositories.FieldID]) == id {
			return i
		}
	}
	return -1
}

func sortDocs(docs []document) {
	sort.SliceStable(docs, func(i, j int) bool {
		ti, tj := parseTime(docs[i][repositories.FieldCreatedAt]), parseTime(docs[j][repositories.FieldCreatedAt])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return stringValue(docs[i][repositories.FieldID]) < stringValue(docs[j][repositories.FieldID])
	})
}

func parseTime(v any) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, stringValue(v))
	return t
}

func stringValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	default:
		return fmt.Sprint(val)
	}
}
