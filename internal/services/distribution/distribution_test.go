package distribution

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lecoq-erp/internal/database"
	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/services/inventory"
	"lecoq-erp/internal/services/orders"
)

type env struct {
	db     *gorm.DB
	orders *orders.Service
	svc    *Service
	user   *models.User
}

func newTestEnv(t *testing.T) *env {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))

	user := &models.User{
		Username: "repartos",
		Email:    "repartos@lecoq.mx",
		Password: "hash",
		FullName: "Coordinador de Repartos",
		Role:     models.RoleSales,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)

	orderSvc := orders.NewService(db, inventory.NewService(db, nil), nil)
	return &env{
		db:     db,
		orders: orderSvc,
		svc:    NewService(db, orderSvc, nil),
		user:   user,
	}
}

// confirmedOrder seeds a product-backed order already moved to CONFIRMED, the
// state a delivery is normally scheduled from.
func (e *env) confirmedOrder(t *testing.T) *models.Order {
	t.Helper()
	product := &models.Product{
		Name:         "Salsa Verde",
		Presentation: "500ml",
		Price:        decimal.RequireFromString("2.50"),
		Stock:        100,
		IsActive:     true,
	}
	require.NoError(t, e.db.Create(product).Error)

	order := &models.Order{
		CustomerName: "Abarrotes La Central",
		Details:      []models.OrderDetail{{ProductID: product.ID, Quantity: 10}},
	}
	require.NoError(t, e.orders.Create(context.Background(), order, e.user.ID))
	confirmed, err := e.orders.ChangeStatus(context.Background(), order.ID, "CONFIRMED")
	require.NoError(t, err)
	return confirmed
}

func (e *env) orderStatus(t *testing.T, orderID int64) models.OrderStatus {
	t.Helper()
	order, err := e.orders.FindByID(context.Background(), orderID)
	require.NoError(t, err)
	return order.Status
}

func newDelivery() *models.Delivery {
	return &models.Delivery{
		DeliveryAddress: "Av. Central 123",
		DriverName:      "Juan Perez",
		VehiclePlate:    "ABC-123",
	}
}

func TestCreateDeliveryMovesOrderToPreparation(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)

	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	assert.Equal(t, models.DeliveryScheduled, delivery.Status)
	assert.False(t, delivery.DepartureDate.IsZero())
	assert.Equal(t, models.OrderInPreparation, e.orderStatus(t, order.ID))
}

func TestCreateDeliveryRejectsDuplicates(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)

	require.NoError(t, e.svc.Create(context.Background(), newDelivery(), order.ID, e.user.ID))
	err := e.svc.Create(context.Background(), newDelivery(), order.ID, e.user.ID)
	assert.ErrorIs(t, err, ErrDuplicateDelivery)
}

func TestCreateDeliveryRequiresExistingOrder(t *testing.T) {
	e := newTestEnv(t)
	err := e.svc.Create(context.Background(), newDelivery(), 999, e.user.ID)
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}

func TestCreateDeliveryRejectsPendingOrder(t *testing.T) {
	e := newTestEnv(t)

	order := &models.Order{CustomerName: "Cliente", Total: decimal.RequireFromString("10.00")}
	require.NoError(t, e.orders.Create(context.Background(), order, e.user.ID))

	// A pending order cannot jump straight to IN_PREPARATION.
	err := e.svc.Create(context.Background(), newDelivery(), order.ID, e.user.ID)
	assert.ErrorIs(t, err, orders.ErrInvalidTransition)
}

func TestMarkInTransitShipsOrder(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)
	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	updated, err := e.svc.MarkInTransit(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryInTransit, updated.Status)
	assert.Equal(t, models.OrderShipped, e.orderStatus(t, order.ID))
}

func TestMarkDeliveredCompletesOrder(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)
	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	_, err := e.svc.MarkInTransit(context.Background(), delivery.ID)
	require.NoError(t, err)

	updated, err := e.svc.MarkDelivered(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, updated.Status)
	require.NotNil(t, updated.DeliveryDate)
	assert.Equal(t, models.OrderDelivered, e.orderStatus(t, order.ID))
}

func TestMarkFailedReturnsOrderToConfirmed(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)
	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	_, err := e.svc.MarkInTransit(context.Background(), delivery.ID)
	require.NoError(t, err)

	updated, err := e.svc.MarkFailed(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryFailed, updated.Status)
	assert.Equal(t, models.OrderConfirmed, e.orderStatus(t, order.ID))

	// A failed delivery can be rescheduled, which puts the order back in
	// preparation.
	rescheduled, err := e.svc.ChangeStatus(context.Background(), delivery.ID, "SCHEDULED")
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryScheduled, rescheduled.Status)
	assert.Equal(t, models.OrderInPreparation, e.orderStatus(t, order.ID))
}

func TestRescheduledDeliveryCanBeDelivered(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)
	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	_, err := e.svc.MarkFailed(context.Background(), delivery.ID)
	require.NoError(t, err)
	_, err = e.svc.ChangeStatus(context.Background(), delivery.ID, "SCHEDULED")
	require.NoError(t, err)

	updated, err := e.svc.MarkDelivered(context.Background(), delivery.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DeliveryDelivered, updated.Status)
	assert.Equal(t, models.OrderDelivered, e.orderStatus(t, order.ID))
}

func TestRepeatedMarkDeliveredKeepsTimestamp(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)
	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	_, err := e.svc.MarkDelivered(context.Background(), delivery.ID)
	require.NoError(t, err)
	first, err := e.svc.FindByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	require.NotNil(t, first.DeliveryDate)

	_, err = e.svc.MarkDelivered(context.Background(), delivery.ID)
	require.NoError(t, err)
	second, err := e.svc.FindByID(context.Background(), delivery.ID)
	require.NoError(t, err)
	require.NotNil(t, second.DeliveryDate)
	assert.True(t, second.DeliveryDate.Equal(*first.DeliveryDate))
}

func TestChangeStatusRejectsInvalidInput(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)
	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	_, err := e.svc.ChangeStatus(context.Background(), delivery.ID, "EN_CAMINO")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = e.svc.MarkDelivered(context.Background(), delivery.ID)
	require.NoError(t, err)

	// Delivered is terminal.
	_, err = e.svc.MarkInTransit(context.Background(), delivery.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = e.svc.ChangeStatus(context.Background(), 999, "IN_TRANSIT")
	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}

func TestDeleteScheduledDeliveryRestoresOrder(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)
	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	require.NoError(t, e.svc.Delete(context.Background(), delivery.ID))
	assert.Equal(t, models.OrderConfirmed, e.orderStatus(t, order.ID))

	_, err := e.svc.FindByID(context.Background(), delivery.ID)
	assert.ErrorIs(t, err, ErrDeliveryNotFound)

	// The order is free for a new delivery again.
	require.NoError(t, e.svc.Create(context.Background(), newDelivery(), order.ID, e.user.ID))
}

func TestFindByOrder(t *testing.T) {
	e := newTestEnv(t)
	order := e.confirmedOrder(t)
	delivery := newDelivery()
	require.NoError(t, e.svc.Create(context.Background(), delivery, order.ID, e.user.ID))

	found, err := e.svc.FindByOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, delivery.ID, found.ID)

	_, err = e.svc.FindByOrder(context.Background(), 999)
	assert.ErrorIs(t, err, ErrDeliveryNotFound)
}
