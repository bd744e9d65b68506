package cart

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupMongo(t *testing.T) *MongoRepository {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	repo := NewMongoRepository(db)
	require.NoError(t, repo.CreateIndexes(ctx))
	return repo
}

func TestMongoRepository_GetCart_NotFound(t *testing.T) {
	repo := setupMongo(t)

	c, err := repo.GetCart(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, c)
}

func TestMongoRepository_SaveAndLoad(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()

	c := &domain.Cart{
		OwnerID: "user123",
		Lines: []domain.CartLine{
			{ProductID: 1, Name: "Premium Custom T-Shirt", Price: decimal.RequireFromString("299.99"), Quantity: 2, Size: "L",
				Customization: &domain.Customization{Text: "Sipho", GoldFoil: true}},
		},
	}
	require.NoError(t, repo.SaveCart(ctx, c))
	assert.False(t, c.CreatedAt.IsZero())

	got, err := repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, "299.99", got.Lines[0].Price.String())
	assert.Equal(t, "L", got.Lines[0].Size)
	assert.True(t, got.Lines[0].Customization.GoldFoil)

	c.SetQuantity(1, 5)
	require.NoError(t, repo.SaveCart(ctx, c))

	got, err = repo.GetCart(ctx, "user123")
	require.NoError(t, err)
	require.Len(t, got.Lines, 1)
	assert.Equal(t, 5, got.Lines[0].Quantity)
}

func TestMongoRepository_DeleteCart(t *testing.T) {
	repo := setupMongo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveCart(ctx, &domain.Cart{OwnerID: "user123", Lines: []domain.CartLine{{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(1)}}}))
	require.NoError(t, repo.DeleteCart(ctx, "user123"))

	_, err := repo.GetCart(ctx, "user123")
	assert.ErrorIs(t, err, ErrCartNotFound)

	assert.ErrorIs(t, repo.DeleteCart(ctx, "user123"), ErrCartNotFound)
}
