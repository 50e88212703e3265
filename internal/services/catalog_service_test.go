package services

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sweetshop/internal/models"
)

func newCatalog(t *testing.T) (*testEnv, *CatalogService) {
	env := newTestEnv(t)
	env.shop.sweets = []models.Sweet{
		{ID: "1", Name: "Ladoo", Category: "Indian", Price: 2.0, Quantity: 10},
		{ID: "2", Name: "Kaju Barfi", Category: "Indian", Price: 3.0, Quantity: 5},
		{ID: "3", Name: "Fudge", Category: "Western", Price: 4.5, Quantity: 8},
	}
	svc := NewCatalogService(env.api, env.sessions, zerolog.Nop())
	_, err := svc.Load(context.Background())
	require.NoError(t, err)
	return env, svc
}

func TestLoadIsPublic(t *testing.T) {
	env := newTestEnv(t)
	env.shop.sweets = []models.Sweet{{ID: "1", Name: "Ladoo"}}
	svc := NewCatalogService(env.api, env.sessions, zerolog.Nop())

	sweets, err := svc.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, sweets, 1)
}

func TestSweetsFiltersLocally(t *testing.T) {
	_, svc := newCatalog(t)

	assert.Len(t, svc.Sweets("", ""), 3)
	assert.Len(t, svc.Sweets("indian", ""), 2)

	byName := svc.Sweets("", "barfi")
	require.Len(t, byName, 1)
	assert.Equal(t, "Kaju Barfi", byName[0].Name)

	both := svc.Sweets("Indian", "ladoo")
	require.Len(t, both, 1)
	assert.Equal(t, "Ladoo", both[0].Name)

	assert.Empty(t, svc.Sweets("Western", "ladoo"))
}

func TestCategories(t *testing.T) {
	_, svc := newCatalog(t)
	assert.Equal(t, []string{"Indian", "Western"}, svc.Categories())
}

func TestPurchaseRequiresSession(t *testing.T) {
	_, svc := newCatalog(t)

	_, err := svc.Purchase(context.Background(), "1", 1)
	assert.ErrorIs(t, err, ErrSignInRequired)
}

func TestPurchaseDecrementsStockAndTotalsReceipt(t *testing.T) {
	env, svc := newCatalog(t)
	env.signInAs(t, "customer")

	receipt, err := svc.Purchase(context.Background(), "1", 3)
	require.NoError(t, err)
	assert.Equal(t, "Ladoo", receipt.Name)
	assert.Equal(t, 3, receipt.Quantity)
	assert.Equal(t, "6.00", receipt.Total)

	sweets := svc.Sweets("", "Ladoo")
	require.Len(t, sweets, 1)
	assert.Equal(t, 7, sweets[0].Quantity)
	assert.Equal(t, 7, env.shop.sweets[0].Quantity)
}

func TestPurchaseClampsQuantityToOne(t *testing.T) {
	env, svc := newCatalog(t)
	env.signInAs(t, "customer")

	receipt, err := svc.Purchase(context.Background(), "3", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.Quantity)
	assert.Equal(t, "4.50", receipt.Total)
}

func TestPurchaseUnknownSweet(t *testing.T) {
	env, svc := newCatalog(t)
	env.signInAs(t, "customer")

	_, err := svc.Purchase(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, ErrSweetNotFound)
}

// A backend rejection leaves the cached stock unchanged.
func TestPurchaseRejectionKeepsStock(t *testing.T) {
	env, svc := newCatalog(t)
	env.signInAs(t, "customer")

	_, err := svc.Purchase(context.Background(), "2", 100)
	require.Error(t, err)

	sweets := svc.Sweets("", "Kaju Barfi")
	require.Len(t, sweets, 1)
	assert.Equal(t, 5, sweets[0].Quantity)
}

func TestCartRoundTrip(t *testing.T) {
	_, svc := newCatalog(t)

	require.NoError(t, svc.AddToCart("1", 2))
	require.NoError(t, svc.AddToCart("3", 1))
	assert.ErrorIs(t, svc.AddToCart("missing", 1), ErrSweetNotFound)

	lines := svc.CartLines()
	require.Len(t, lines, 2)
	assert.InDelta(t, 8.5, svc.CartTotal(), 1e-9)

	svc.RemoveFromCart("1")
	assert.Len(t, svc.CartLines(), 1)
	assert.InDelta(t, 4.5, svc.CartTotal(), 1e-9)
}
