package mongostore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/SscSPs/checkout_ledger_app/internal/adapters/storage/mongostore"
	"github.com/SscSPs/checkout_ledger_app/internal/adapters/storage/storagetest"
	"github.com/SscSPs/checkout_ledger_app/internal/core/ports/repositories"
	"github.com/SscSPs/checkout_ledger_app/pkg/database"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
)

// TestMongoStoreConformance runs against a real server. Set TEST_MONGO_URI to enable it.
func TestMongoStoreConformance(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := database.NewMongoClient(ctx, uri, mongostore.Registry())
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseMongoClient(context.Background(), client) })

	suite.Run(t, &storagetest.ConformanceSuite{
		NewStore: func(t *testing.T) *repositories.Store {
			name := "checkout_test_" + uuid.NewString()[:8]
			applied, err := mongostore.Migrate(client, name)
			require.NoError(t, err)
			require.True(t, applied)
			t.Cleanup(func() { _ = client.Database(name).Drop(context.Background()) })
			return mongostore.New(client.Database(name), 5*time.Second)
		},
	})
}

func TestRegistry_DecimalRoundTrip(t *testing.T) {
	type doc struct {
		Amount decimal.Decimal `bson:"amount"`
	}
	reg := mongostore.Registry()

	raw, err := bson.MarshalWithRegistry(reg, doc{Amount: decimal.RequireFromString("19.99")})
	require.NoError(t, err)

	var stored bson.M
	require.NoError(t, bson.Unmarshal(raw, &stored))
	assert.Equal(t, "19.99", stored["amount"])

	var decoded doc
	require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &decoded))
	assert.True(t, decoded.Amount.Equal(decimal.RequireFromString("19.99")))
}

func TestRegistry_DecodesNumericDecimals(t *testing.T) {
	type doc struct {
		Amount decimal.Decimal `bson:"amount"`
	}
	reg := mongostore.Registry()

	for name, value := range map[string]any{"double": 2.5, "int32": int32(7), "int64": int64(9)} {
		t.Run(name, func(t *testing.T) {
			raw, err := bson.Marshal(bson.M{"amount": value})
			require.NoError(t, err)

			var decoded doc
			require.NoError(t, bson.UnmarshalWithRegistry(reg, raw, &decoded))
			assert.Equal(t, decimal.NewFromFloat(toFloat(value)).String(), decoded.Amount.String())
		})
	}
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	}
	return 0
}
