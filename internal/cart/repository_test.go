package cart

import (
	"context"
	"testing"

	"github.com/fjod/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_IsolatesCallers(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	c := &domain.Cart{OwnerID: "u", Lines: []domain.CartLine{{ProductID: 1, Quantity: 1}}}
	require.NoError(t, repo.SaveCart(ctx, c))

	c.Lines[0].Quantity = 50

	got, err := repo.GetCart(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 1, got.Lines[0].Quantity)

	got.Lines[0].Quantity = 7
	again, _ := repo.GetCart(ctx, "u")
	assert.Equal(t, 1, again.Lines[0].Quantity)
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	assert.ErrorIs(t, repo.DeleteCart(ctx, "u"), ErrCartNotFound)
	require.NoError(t, repo.SaveCart(ctx, &domain.Cart{OwnerID: "u"}))
	require.NoError(t, repo.DeleteCart(ctx, "u"))

	_, err := repo.GetCart(ctx, "u")
	assert.ErrorIs(t, err, ErrCartNotFound)
}
