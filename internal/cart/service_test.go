package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
)

func newTestService(t *testing.T) (*Service, store.Repositories) {
	t.Helper()
	repos := memstore.New()
	return NewService(repos, zap.NewNop()), repos
}

func seedProduct(t *testing.T, repos store.Repositories, price float64, qty int, track bool, status string) models.Product {
	t.Helper()
	p := models.Product{
		Name:      "Widget",
		Price:     price,
		SKU:       primitive.NewObjectID().Hex(),
		Status:    status,
		Images:    []string{"https://cdn.example.com/widget.png"},
		Inventory: models.Inventory{Quantity: qty, LowStockThreshold: 2, TrackQuantity: track},
		CreatedAt: time.Now(),
	}
	require.NoError(t, repos.Products.Create(context.Background(), &p))
	return p
}

func TestAddMergesSameProductAndVariant(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	p := seedProduct(t, repos, 29.99, 10, true, models.ProductStatusActive)
	red := map[string]string{"color": "red"}

	_, err := svc.Add(ctx, user, p.ID, 1, red)
	require.NoError(t, err)
	view, err := svc.Add(ctx, user, p.ID, 2, map[string]string{"color": "red"})
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, 3, view.ItemCount)
	assert.InDelta(t, 89.97, view.Total, 0.001)

	view, err = svc.Add(ctx, user, p.ID, 1, map[string]string{"color": "blue"})
	require.NoError(t, err)
	assert.Len(t, view.Items, 2)
}

func TestAddRejectsInsufficientCumulativeStock(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	p := seedProduct(t, repos, 5, 3, true, models.ProductStatusActive)

	_, err := svc.Add(ctx, user, p.ID, 2, nil)
	require.NoError(t, err)

	_, err = svc.Add(ctx, user, p.ID, 2, nil)
	require.Error(t, err)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindValidation, appErr.Kind)
	assert.Equal(t, "Only 3 items available", appErr.Message)
	assert.Equal(t, 4, appErr.Details["requested"])
}

func TestAddIgnoresStockWhenUntracked(t *testing.T) {
	svc, repos := newTestService(t)
	p := seedProduct(t, repos, 5, 0, false, models.ProductStatusActive)

	view, err := svc.Add(context.Background(), primitive.NewObjectID(), p.ID, 50, nil)
	require.NoError(t, err)
	assert.Equal(t, 50, view.ItemCount)
	assert.True(t, view.Items[0].Product.InStock)
}

func TestAddRejectsMissingAndInactiveProducts(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()
	user := primitive.NewObjectID()

	_, err := svc.Add(ctx, user, primitive.NewObjectID(), 1, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	draft := seedProduct(t, repos, 5, 10, true, models.ProductStatusDraft)
	_, err = svc.Add(ctx, user, draft.ID, 1, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = svc.Add(ctx, user, draft.ID, 0, nil)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}

func TestUpdateRemoveAndClear(t *testing.T) {
	svc, repos := newTestService(t)
	ctx := context.Background()
	user := primitive.NewObjectID()
	a := seedProduct(t, repos, 10, 5, true, models.ProductStatusActive)
	b := seedProduct(t, repos, 2.5, 5, true, models.ProductStatusActive)

	_, err := svc.Add(ctx, user, a.ID, 1, nil)
	require.NoError(t, err)
	view, err := svc.Add(ctx, user, b.ID, 2, nil)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	itemA := view.Items[0].ID

	view, err = svc.Update(ctx, user, itemA, 4)
	require.NoError(t, err)
	assert.Equal(t, 6, view.ItemCount)
	assert.InDelta(t, 45.0, view.Total, 0.001)

	_, err = svc.Update(ctx, user, itemA, 6)
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	_, err = svc.Update(ctx, user, primitive.NewObjectID(), 1)
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))

	view, err = svc.Remove(ctx, user, itemA)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, b.ID, view.Items[0].ProductID)

	view, err = svc.Clear(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.Total)
}

func TestGetCreatesEmptyCart(t *testing.T) {
	svc, _ := newTestService(t)
	view, err := svc.Get(context.Background(), primitive.NewObjectID())
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.ItemCount)
}
