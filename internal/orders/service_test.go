package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"storefront/internal/apperror"
	"storefront/internal/events"
	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/payment/paymenttest"
	"storefront/internal/store"
	"storefront/internal/store/memstore"
)

type sentEmail struct {
	kind    string
	orderID primitive.ObjectID
	status  string
	to      string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentEmail
	err  error
}

func (n *fakeNotifier) SendOrderConfirmation(_ context.Context, order models.Order, customer models.User) error {
	return n.record("confirmation", order, customer)
}

func (n *fakeNotifier) SendOrderStatusUpdate(_ context.Context, order models.Order, customer models.User) error {
	return n.record("status", order, customer)
}

func (n *fakeNotifier) record(kind string, order models.Order, customer models.User) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEmail{kind: kind, orderID: order.ID, status: order.Status, to: customer.Email})
	return n.err
}

func (n *fakeNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.sent {
		if e.kind == kind {
			c++
		}
	}
	return c
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc       *Service
	repos     store.Repositories
	gateway   *paymenttest.Gateway
	notifier  *fakeNotifier
	publisher *recordingPublisher
	customer  models.User
	tracked   models.Product
	untracked models.Product
}

var fixedNow = time.Date(2024, 3, 9, 14, 30, 5, 0, time.UTC)

func newFixture(t *testing.T, withGateway bool) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{
		repos:     memstore.New(),
		notifier:  &fakeNotifier{},
		publisher: &recordingPublisher{},
	}
	deps := Deps{
		Repos:     f.repos,
		Notifier:  f.notifier,
		Publisher: f.publisher,
		Logger:    zap.NewNop(),
	}
	if withGateway {
		f.gateway = paymenttest.New()
		deps.Gateway = f.gateway
	}
	f.svc = NewService(deps)
	f.svc.now = func() time.Time { return fixedNow }

	f.customer = models.User{Name: "Ada", Email: "ada@example.com", Role: models.RoleCustomer, IsActive: true}
	require.NoError(t, f.repos.Users.Create(ctx, &f.customer))

	f.tracked = models.Product{
		Name:      "Tracked",
		Price:     29.99,
		SKU:       "TRACKED",
		Status:    models.ProductStatusActive,
		Images:    []string{"https://cdn.example.com/tracked.png"},
		Inventory: models.Inventory{Quantity: 10, LowStockThreshold: 2, TrackQuantity: true},
	}
	require.NoError(t, f.repos.Products.Create(ctx, &f.tracked))
	f.untracked = models.Product{
		Name:      "Untracked",
		Price:     19.99,
		SKU:       "UNTRACKED",
		Status:    models.ProductStatusActive,
		Inventory: models.Inventory{Quantity: 0, TrackQuantity: false},
	}
	require.NoError(t, f.repos.Products.Create(ctx, &f.untracked))
	return f
}

func (f *fixture) fillCart(t *testing.T, trackedQty, untrackedQty int) {
	t.Helper()
	var items []models.CartItem
	if trackedQty > 0 {
		items = append(items, models.CartItem{ID: primitive.NewObjectID(), ProductID: f.tracked.ID, Quantity: trackedQty})
	}
	if untrackedQty > 0 {
		items = append(items, models.CartItem{ID: primitive.NewObjectID(), ProductID: f.untracked.ID, Quantity: untrackedQty})
	}
	_, err := f.repos.Carts.SaveItems(context.Background(), f.customer.ID, items)
	require.NoError(t, err)
}

func (f *fixture) createOrder(t *testing.T) CreateResult {
	t.Helper()
	f.fillCart(t, 2, 3)
	res, err := f.svc.Create(context.Background(), f.customer.ID, CreateInput{ShippingAddress: validAddress()})
	require.NoError(t, err)
	return res
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	p, err := f.repos.Products.FindByID(context.Background(), f.tracked.ID)
	require.NoError(t, err)
	return p.Inventory.Quantity
}

func validAddress() models.ShippingAddress {
	return models.ShippingAddress{Street: "1 Main St", City: "Springfield", State: "IL", ZipCode: "62701", Country: "US"}
}

func TestCreateSnapshotsCartAndComputesTotals(t *testing.T) {
	f := newFixture(t, true)
	res := f.createOrder(t)
	order := res.Order

	assert.Equal(t, 119.95, order.Subtotal)
	assert.Equal(t, 9.60, order.Tax)
	assert.Equal(t, 5.99, order.Shipping)
	assert.Equal(t, 135.54, order.Total)
	assert.Equal(t, "ORD-20240309-143005-", order.OrderNumber[:20])
	assert.Len(t, order.OrderNumber, 24)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentStatus)

	require.Len(t, order.Items, 2)
	assert.Equal(t, "Tracked", order.Items[0].Name)
	assert.Equal(t, "https://cdn.example.com/tracked.png", order.Items[0].Image)

	require.NotEmpty(t, res.ClientSecret)
	assert.Equal(t, msgCreated, res.Message)
	intent := f.gateway.Intent(order.PaymentIntentID)
	assert.Equal(t, int64(13554), intent.Amount)
	assert.Equal(t, order.ID.Hex(), intent.Metadata["orderId"])
	assert.Equal(t, order.OrderNumber, intent.Metadata["orderNumber"])

	assert.Equal(t, 10, f.stock(t), "stock is taken at payment, not at order creation")
	assert.Equal(t, []string{events.OrderCreated}, f.publisher.types())
}

func TestCreateWithoutGatewayRequiresManualPayment(t *testing.T) {
	f := newFixture(t, false)
	res := f.createOrder(t)
	assert.Empty(t, res.ClientSecret)
	assert.Empty(t, res.Order.PaymentIntentID)
	assert.Equal(t, msgManualPayment, res.Message)
}

func TestCreateSwallowsIntentFailure(t *testing.T) {
	f := newFixture(t, true)
	f.gateway.CreateErr = errors.New("gateway down")
	res := f.createOrder(t)
	assert.Empty(t, res.ClientSecret)
	assert.False(t, res.Order.ID.IsZero())
}

func TestCreateRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete address leaves cart alone", func(t *testing.T) {
		f := newFixture(t, true)
		f.fillCart(t, 1, 0)
		addr := validAddress()
		addr.City = " "
		_, err := f.svc.Create(ctx, f.customer.ID, CreateInput{ShippingAddress: addr})
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, apperror.KindValidation, appErr.Kind)
		assert.Equal(t, []string{"city"}, appErr.Details["missing"])

		cart, err := f.repos.Carts.Get(ctx, f.customer.ID)
		require.NoError(t, err)
		assert.Len(t, cart.Items, 1)
	})

	t.Run("empty cart", func(t *testing.T) {
		f := newFixture(t, true)
		_, err := f.svc.Create(ctx, f.customer.ID, CreateInput{ShippingAddress: validAddress()})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})

	t.Run("insufficient stock rejects the whole order", func(t *testing.T) {
		f := newFixture(t, true)
		f.fillCart(t, 11, 1)
		_, err := f.svc.Create(ctx, f.customer.ID, CreateInput{ShippingAddress: validAddress()})
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, 10, appErr.Details["available"])
		assert.Equal(t, 11, appErr.Details["requested"])

		page, err := f.svc.ListMine(ctx, f.customer.ID, 1, 10)
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})

	t.Run("inactive product", func(t *testing.T) {
		f := newFixture(t, true)
		draft := models.ProductStatusDraft
		_, err := f.repos.Products.Update(ctx, f.tracked.ID, models.ProductUpdate{Status: &draft})
		require.NoError(t, err)
		f.fillCart(t, 1, 0)
		_, err = f.svc.Create(ctx, f.customer.ID, CreateInput{ShippingAddress: validAddress()})
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	})
}

func TestCreateRetriesOrderNumberCollision(t *testing.T) {
	f := newFixture(t, false)
	suffixes := []int{42, 42, 43}
	f.svc.suffix = func() int {
		n := suffixes[0]
		suffixes = suffixes[1:]
		return n
	}

	first := f.createOrder(t)
	second := f.createOrder(t)
	assert.Equal(t, "ORD-20240309-143005-0042", first.Order.OrderNumber)
	assert.Equal(t, "ORD-20240309-143005-0043", second.Order.OrderNumber)
}

func TestConfirmPaymentTwiceDecrementsOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.createOrder(t)
	f.gateway.SetStatus(res.Order.PaymentIntentID, payment.StatusSucceeded)

	paid, err := f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, res.ClientSecret)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.PaymentStatus)
	assert.Equal(t, models.OrderStatusProcessing, paid.Status)
	require.NotNil(t, paid.PaidAt)

	again, err := f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, res.Order.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, again.PaymentStatus)

	assert.Equal(t, 8, f.stock(t))
	assert.Equal(t, 1, f.notifier.count("confirmation"))
	cart, err := f.repos.Carts.Get(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Equal(t, []string{events.OrderCreated, events.OrderPaid}, f.publisher.types())
}

func TestConfirmPaymentRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("intent not succeeded", func(t *testing.T) {
		f := newFixture(t, true)
		res := f.createOrder(t)
		_, err := f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, res.Order.PaymentIntentID)
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, "Payment not completed. Status: requires_payment_method", appErr.Message)
		assert.Equal(t, 10, f.stock(t))
	})

	t.Run("other customer's order", func(t *testing.T) {
		f := newFixture(t, true)
		res := f.createOrder(t)
		stranger := models.User{ID: primitive.NewObjectID(), Role: models.RoleCustomer}
		_, err := f.svc.ConfirmPayment(ctx, stranger, res.Order.ID, res.Order.PaymentIntentID)
		assert.True(t, apperror.IsKind(err, apperror.KindForbidden))
		assert.Equal(t, 0, f.gateway.Retrieves)
	})

	t.Run("intent of another order", func(t *testing.T) {
		f := newFixture(t, true)
		res := f.createOrder(t)
		other, err := f.gateway.CreateIntent(ctx, 13554, "usd", nil)
		require.NoError(t, err)
		f.gateway.SetStatus(other.ID, payment.StatusSucceeded)
		_, err = f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, other.ID)
		assert.True(t, apperror.IsKind(err, apperror.KindValidation))
		assert.Equal(t, 10, f.stock(t))
	})

	t.Run("no gateway", func(t *testing.T) {
		f := newFixture(t, false)
		res := f.createOrder(t)
		_, err := f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, "pi_123")
		assert.True(t, apperror.IsKind(err, apperror.KindUnavailable))
	})
}

func TestWebhookThenConfirmDecrementsOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.createOrder(t)
	intentID := res.Order.PaymentIntentID
	f.gateway.SetStatus(intentID, payment.StatusSucceeded)

	out, err := f.svc.HandleWebhook(ctx, f.gateway.Payload("evt_1", payment.EventPaymentSucceeded, intentID), paymenttest.Signature)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)

	order, err := f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, intentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, 8, f.stock(t))
	assert.Equal(t, 1, f.notifier.count("confirmation"))
}

func TestLatePaymentDoesNotReviveCancelledOrder(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.createOrder(t)
	intentID := res.Order.PaymentIntentID

	_, err := f.svc.UpdateStatus(ctx, res.Order.ID, models.OrderStatusCancelled, "")
	require.NoError(t, err)
	f.gateway.SetStatus(intentID, payment.StatusSucceeded)

	out, err := f.svc.HandleWebhook(ctx, f.gateway.Payload("evt_late", payment.EventPaymentSucceeded, intentID), paymenttest.Signature)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)

	_, err = f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, intentID)
	appErr, ok := apperror.As(err)
	require.True(t, ok)
	assert.Equal(t, apperror.KindConflict, appErr.Kind)
	assert.Equal(t, msgOrderCancelled, appErr.Message)

	stored, err := f.repos.Orders.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, stored.Status)
	assert.Equal(t, models.PaymentStatusPending, stored.PaymentStatus)
	assert.Equal(t, 10, f.stock(t))
	assert.Equal(t, 0, f.notifier.count("confirmation"))
	assert.NotContains(t, f.publisher.types(), "order.paid")
}

func TestConcurrentConfirmAndWebhookSettleOnce(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.createOrder(t)
	intentID := res.Order.PaymentIntentID
	f.gateway.SetStatus(intentID, payment.StatusSucceeded)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, intentID)
		}()
		go func() {
			defer wg.Done()
			eventID := primitive.NewObjectID().Hex()
			_, _ = f.svc.HandleWebhook(ctx, f.gateway.Payload(eventID, payment.EventPaymentSucceeded, intentID), paymenttest.Signature)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, f.stock(t))
	assert.Equal(t, 1, f.notifier.count("confirmation"))
}

func TestWebhookDeduplicatesAndVerifies(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.createOrder(t)
	intentID := res.Order.PaymentIntentID
	f.gateway.SetStatus(intentID, payment.StatusSucceeded)
	payload := f.gateway.Payload("evt_dup", payment.EventPaymentSucceeded, intentID)

	_, err := f.svc.HandleWebhook(ctx, payload, "forged")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))

	first, err := f.svc.HandleWebhook(ctx, payload, paymenttest.Signature)
	require.NoError(t, err)
	assert.False(t, first.Duplicate)
	second, err := f.svc.HandleWebhook(ctx, payload, paymenttest.Signature)
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	unknown, err := f.svc.HandleWebhook(ctx, f.gateway.Payload("evt_other", "charge.refunded", intentID), paymenttest.Signature)
	require.NoError(t, err)
	assert.Equal(t, "charge.refunded", unknown.EventType)
	assert.Equal(t, 8, f.stock(t))
}

func TestWebhookFailureThenSuccess(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	res := f.createOrder(t)
	intentID := res.Order.PaymentIntentID

	f.gateway.SetStatus(intentID, "requires_payment_method")
	_, err := f.svc.HandleWebhook(ctx, f.gateway.Payload("evt_fail", payment.EventPaymentFailed, intentID), paymenttest.Signature)
	require.NoError(t, err)
	order, err := f.repos.Orders.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, order.PaymentStatus)

	f.gateway.SetStatus(intentID, payment.StatusSucceeded)
	_, err = f.svc.HandleWebhook(ctx, f.gateway.Payload("evt_ok", payment.EventPaymentSucceeded, intentID), paymenttest.Signature)
	require.NoError(t, err)
	order, err = f.repos.Orders.FindByID(ctx, res.Order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
	assert.Equal(t, 8, f.stock(t))
	assert.Equal(t,
		[]string{events.OrderCreated, events.OrderPaymentFailed, events.OrderPaid},
		f.publisher.types())
}

func TestUpdateStatusEmailsOnFulfilmentStates(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	res := f.createOrder(t)

	order, err := f.svc.UpdateStatus(ctx, res.Order.ID, models.OrderStatusProcessing, "")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusProcessing, order.Status)
	assert.Zero(t, f.notifier.count("status"))

	order, err = f.svc.UpdateStatus(ctx, res.Order.ID, models.OrderStatusShipped, " TRK123 ")
	require.NoError(t, err)
	assert.Equal(t, "TRK123", order.TrackingNumber)
	require.NotNil(t, order.ShippedAt)
	assert.Equal(t, 1, f.notifier.count("status"))

	_, err = f.svc.UpdateStatus(ctx, res.Order.ID, "lost", "")
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
	_, err = f.svc.UpdateStatus(ctx, primitive.NewObjectID(), models.OrderStatusShipped, "")
	assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
}

func TestEmailFailureDoesNotFailPayment(t *testing.T) {
	f := newFixture(t, true)
	f.notifier.err = errors.New("smtp down")
	ctx := context.Background()
	res := f.createOrder(t)
	f.gateway.SetStatus(res.Order.PaymentIntentID, payment.StatusSucceeded)

	order, err := f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, res.Order.PaymentIntentID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, order.PaymentStatus)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("pending order is deleted", func(t *testing.T) {
		f := newFixture(t, true)
		res := f.createOrder(t)
		require.NoError(t, f.svc.Cancel(ctx, f.customer, res.Order.ID))
		_, err := f.svc.Get(ctx, f.customer, res.Order.ID)
		assert.True(t, apperror.IsKind(err, apperror.KindNotFound))
		assert.Contains(t, f.publisher.types(), events.OrderCancelled)
	})

	t.Run("paid order is kept", func(t *testing.T) {
		f := newFixture(t, true)
		res := f.createOrder(t)
		f.gateway.SetStatus(res.Order.PaymentIntentID, payment.StatusSucceeded)
		_, err := f.svc.ConfirmPayment(ctx, f.customer, res.Order.ID, res.Order.PaymentIntentID)
		require.NoError(t, err)

		err = f.svc.Cancel(ctx, f.customer, res.Order.ID)
		appErr, ok := apperror.As(err)
		require.True(t, ok)
		assert.Equal(t, 400, appErr.Status())
		_, err = f.svc.Get(ctx, f.customer, res.Order.ID)
		assert.NoError(t, err)
	})

	t.Run("shipped order", func(t *testing.T) {
		f := newFixture(t, false)
		res := f.createOrder(t)
		_, err := f.svc.UpdateStatus(ctx, res.Order.ID, models.OrderStatusShipped, "")
		require.NoError(t, err)
		assert.True(t, apperror.IsKind(f.svc.Cancel(ctx, f.customer, res.Order.ID), apperror.KindValidation))
	})

	t.Run("someone else's order", func(t *testing.T) {
		f := newFixture(t, false)
		res := f.createOrder(t)
		stranger := models.User{ID: primitive.NewObjectID(), Role: models.RoleCustomer}
		assert.True(t, apperror.IsKind(f.svc.Cancel(ctx, stranger, res.Order.ID), apperror.KindForbidden))
	})
}

func TestGetAndList(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	res := f.createOrder(t)

	admin := models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
	stranger := models.User{ID: primitive.NewObjectID(), Role: models.RoleCustomer}

	_, err := f.svc.Get(ctx, admin, res.Order.ID)
	assert.NoError(t, err)
	_, err = f.svc.Get(ctx, stranger, res.Order.ID)
	assert.True(t, apperror.IsKind(err, apperror.KindForbidden))

	mine, err := f.svc.ListMine(ctx, f.customer.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), mine.Total)
	assert.Equal(t, int64(1), mine.Page)

	all, err := f.svc.ListAll(ctx, models.OrderFilter{PaymentStatus: models.PaymentStatusPaid})
	require.NoError(t, err)
	assert.Zero(t, all.Total)
	assert.Empty(t, all.Orders)

	_, err = f.svc.ListAll(ctx, models.OrderFilter{Status: "bogus"})
	assert.True(t, apperror.IsKind(err, apperror.KindValidation))
}
