package mongostore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/apperrors"
	"github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsoncodec"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoIDField = "_id"

// Collection implements the storage contract over one MongoDB collection.
type Collection[T any] struct {
	coll    *mongo.Collection
	reg     *bsoncodec.Registry
	spec    repositories.CollectionSpec
	timeout time.Duration
	now     func() time.Time
}

// NewCollection wraps the named collection of db.
func NewCollection[T any](db *mongo.Database, spec repositories.CollectionSpec, timeout time.Duration) *Collection[T] {
	return &Collection[T]{
		coll:    db.Collection(spec.Name),
		reg:     Registry(),
		spec:    spec,
		timeout: timeout,
		// BSON dates carry millisecond precision.
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var out T
	err := c.coll.FindOne(ctx, bson.M{mongoIDField: id}).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("%s %s not found", c.spec.Name, id)
	}
	if err != nil {
		return nil, c.failure(err, "finding %s %s", c.spec.Name, id)
	}
	return &out, nil
}

func (c *Collection[T]) FindByField(ctx context.Context, field, value string) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	opts := options.FindOne().SetSort(creationOrder())
	var out T
	err := c.coll.FindOne(ctx, bson.M{fieldName(field): value}, opts).Decode(&out)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperrors.NotFound("%s with %s %q not found", c.spec.Name, field, value)
	}
	if err != nil {
		return nil, c.failure(err, "finding %s by %s", c.spec.Name, field)
	}
	return &out, nil
}

func (c *Collection[T]) FindAll(ctx context.Context, filter repositories.Filter) ([]T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cursor, err := c.coll.Find(ctx, c.query(filter), options.Find().SetSort(creationOrder()))
	if err != nil {
		return nil, c.failure(err, "listing %s", c.spec.Name)
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, c.failure(err, "decoding %s", c.spec.Name)
	}
	return out, nil
}

func (c *Collection[T]) Create(ctx context.Context, fields repositories.Fields) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	now := c.now()
	doc := withoutReserved(fields)
	doc[mongoIDField] = uuid.NewString()
	doc[repositories.FieldCreatedAt] = now
	doc[repositories.FieldUpdatedAt] = now
	if err := c.conforms(doc); err != nil {
		return nil, err
	}

	if _, err := c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperrors.Validation("%s already contains a document with the same unique field value", c.spec.Name)
		}
		return nil, c.failure(err, "inserting into %s", c.spec.Name)
	}

	var out T
	if err := c.coll.FindOne(ctx, bson.M{mongoIDField: doc[mongoIDField]}).Decode(&out); err != nil {
		return nil, c.failure(err, "reading back %s %v", c.spec.Name, doc[mongoIDField])
	}
	return &out, nil
}

func (c *Collection[T]) Update(ctx context.Context, id string, partial repositories.Fields) (*T, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	set := withoutReserved(partial)
	set[repositories.FieldUpdatedAt] = c.now()

	var current bson.M
	err := c.coll.FindOne(ctx, bson.M{mongoIDField: id}).Decode(&current)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, c.failure(err, "reading %s %s", c.spec.Name, id)
	}
	for k, v := range set {
		current[k] = v
	}
	if err := c.conforms(current); err != nil {
		return nil, err
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var out T
	err = c.coll.FindOneAndUpdate(ctx, bson.M{mongoIDField: id}, bson.M{"$set": set}, opts).Decode(&out)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, nil
	case mongo.IsDuplicateKeyError(err):
		return nil, apperrors.Validation("%s already contains a document with the same unique field value", c.spec.Name)
	case err != nil:
		return nil, c.failure(err, "updating %s %s", c.spec.Name, id)
	}
	return &out, nil
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.coll.DeleteOne(ctx, bson.M{mongoIDField: id})
	if err != nil {
		return false, c.failure(err, "deleting %s %s", c.spec.Name, id)
	}
	return res.DeletedCount > 0, nil
}

func (c *Collection[T]) query(filter repositories.Filter) bson.D {
	q := bson.D{}
	for key, want := range filter {
		if want == "" {
			continue
		}
		switch {
		case key == repositories.SearchKey:
			pattern := bson.M{"$regex": regexp.QuoteMeta(want), "$options": "i"}
			or := bson.A{}
			for _, field := range c.spec.SearchFields {
				or = append(or, bson.M{field: pattern})
			}
			q = append(q, bson.E{Key: "$or", Value: or})
		case c.spec.IsIndexed(key):
			q = append(q, bson.E{Key: key, Value: want})
		}
	}
	return q
}

// conforms rejects doc with a validation error when it would not decode into T,
// so a mistyped field never reaches the database.
func (c *Collection[T]) conforms(doc bson.M) error {
	raw, err := bson.MarshalWithRegistry(c.reg, doc)
	if err != nil {
		return apperrors.Validation("invalid %s fields: %v", c.spec.Name, err)
	}
	var out T
	if err := bson.UnmarshalWithRegistry(c.reg, raw, &out); err != nil {
		return apperrors.Validation("%s document does not match its schema: %v", c.spec.Name, err)
	}
	return nil
}

func (c *Collection[T]) failure(err error, format string, args ...any) error {
	return apperrors.StorageFailure(err, format, args...)
}

func withoutReserved(fields repositories.Fields) bson.M {
	doc := bson.M{}
	for k, v := range fields {
		switch k {
		case repositories.FieldID, mongoIDField, repositories.FieldCreatedAt, repositories.FieldUpdatedAt:
			continue
		}
		doc[k] = v
	}
	return doc
}

func fieldName(field string) string {
	if field == repositories.FieldID {
		return mongoIDField
	}
	return field
}

func creationOrder() bson.D {
	return bson.D{{Key: repositories.FieldCreatedAt, Value: 1}, {Key: mongoIDField, Value: 1}}
}
