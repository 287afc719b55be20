package orders

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
)

func newTestEnv(t *testing.T) (*gorm.DB, *Service) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db, NewService(db, inventory.NewService(db, nil), nil)
}

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Username: "vendedor",
		Email:    "vendedor@lecoq.mx",
		Password: "hash",
		FullName: "Vendedor Uno",
		Role:     models.RoleSales,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedProduct(t *testing.T, db *gorm.DB, name, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:         name,
		Presentation: "500ml",
		Price:        decimal.RequireFromString(price),
		Stock:        stock,
		IsActive:     true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func currentStock(t *testing.T, db *gorm.DB, productID int64) int {
	t.Helper()
	var product models.Product
	require.NoError(t, db.First(&product, productID).Error)
	return product.Stock
}

func TestCreateOrderComputesTotalsAndSnapshotsPrice(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Salsa Verde", "2.50", 100)

	order := &models.Order{
		CustomerName: "Abarrotes La Central",
		Details: []models.OrderDetail{
			{ProductID: product.ID, Quantity: 10},
		},
	}
	require.NoError(t, svc.Create(context.Background(), order, user.ID))

	assert.Equal(t, models.OrderPending, order.Status)
	assert.NotEmpty(t, order.OrderNumber)
	assert.True(t, order.Total.Equal(decimal.RequireFromString("25.00")), "got total %s", order.Total)
	require.Len(t, order.Details, 1)
	assert.True(t, order.Details[0].UnitPrice.Equal(decimal.RequireFromString("2.50")))
	assert.True(t, order.Details[0].Subtotal.Equal(decimal.RequireFromString("25.00")))

	// Creation only reserves nothing: stock is untouched until confirmation.
	assert.Equal(t, 100, currentStock(t, db, product.ID))

	// A later catalog price change must not rewrite the snapshot.
	require.NoError(t, db.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("price", decimal.RequireFromString("9.99")).Error)
	details, err := svc.FindDetails(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, details[0].UnitPrice.Equal(decimal.RequireFromString("2.50")))
}

func TestCreateOrderRejectsExcessiveQuantity(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Mole", "45.00", 5)

	order := &models.Order{
		CustomerName: "Cliente",
		Details:      []models.OrderDetail{{ProductID: product.ID, Quantity: 6}},
	}
	err := svc.Create(context.Background(), order, user.ID)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Contains(t, err.Error(), "Mole")

	var count int64
	require.NoError(t, db.Model(&models.Order{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCreateOrderManualTotal(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)

	order := &models.Order{CustomerName: "Cliente", Total: decimal.Zero}
	assert.ErrorIs(t, svc.Create(context.Background(), order, user.ID), ErrInvalidTotal)

	order = &models.Order{CustomerName: "Cliente", Total: decimal.RequireFromString("120.00")}
	require.NoError(t, svc.Create(context.Background(), order, user.ID))
	assert.True(t, order.Total.Equal(decimal.RequireFromString("120.00")))
}

func TestCreateOrderUnknownUser(t *testing.T) {
	_, svc := newTestEnv(t)

	order := &models.Order{CustomerName: "Cliente", Total: decimal.RequireFromString("10.00")}
	assert.ErrorIs(t, svc.Create(context.Background(), order, 999), ErrUserNotFound)
}

func TestConfirmDebitsAndCancelRestoresStock(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Salsa Verde", "2.50", 100)

	order := &models.Order{
		CustomerName: "Cliente",
		Details:      []models.OrderDetail{{ProductID: product.ID, Quantity: 10}},
	}
	require.NoError(t, svc.Create(context.Background(), order, user.ID))

	confirmed, err := svc.ChangeStatus(context.Background(), order.ID, "CONFIRMED")
	require.NoError(t, err)
	assert.Equal(t, models.OrderConfirmed, confirmed.Status)
	assert.Equal(t, 90, currentStock(t, db, product.ID))

	cancelled, err := svc.ChangeStatus(context.Background(), order.ID, "CANCELLED")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)
	assert.Equal(t, 100, currentStock(t, db, product.ID))
}

func TestRepeatedConfirmIsIdempotent(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Salsa Verde", "2.50", 100)

	order := &models.Order{
		CustomerName: "Cliente",
		Details:      []models.OrderDetail{{ProductID: product.ID, Quantity: 10}},
	}
	require.NoError(t, svc.Create(context.Background(), order, user.ID))

	_, err := svc.ChangeStatus(context.Background(), order.ID, "CONFIRMED")
	require.NoError(t, err)
	_, err = svc.ChangeStatus(context.Background(), order.ID, "CONFIRMED")
	require.NoError(t, err)

	// The second confirm is a no-op, not a second debit.
	assert.Equal(t, 90, currentStock(t, db, product.ID))
}

func TestChangeStatusRejectsInvalidInput(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)

	order := &models.Order{CustomerName: "Cliente", Total: decimal.RequireFromString("10.00")}
	require.NoError(t, svc.Create(context.Background(), order, user.ID))

	_, err := svc.ChangeStatus(context.Background(), order.ID, "ENTREGADO")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.ChangeStatus(context.Background(), order.ID, "DELIVERED")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = svc.ChangeStatus(context.Background(), 999, "CONFIRMED")
	assert.ErrorIs(t, err, ErrOrderNotFound)

}

func TestTerminalStatesAcceptNoTransitions(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)

	order := &models.Order{CustomerName: "Cliente", Total: decimal.RequireFromString("10.00")}
	require.NoError(t, svc.Create(context.Background(), order, user.ID))

	_, err := svc.ChangeStatus(context.Background(), order.ID, "CANCELLED")
	require.NoError(t, err)

	_, err = svc.ChangeStatus(context.Background(), order.ID, "PENDING")
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCompetingOrdersCannotOversellStock(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Mole", "45.00", 10)

	first := &models.Order{
		CustomerName: "Cliente A",
		Details:      []models.OrderDetail{{ProductID: product.ID, Quantity: 8}},
	}
	second := &models.Order{
		CustomerName: "Cliente B",
		Details:      []models.OrderDetail{{ProductID: product.ID, Quantity: 8}},
	}

	// Both orders pass the availability pre-check at creation time.
	require.NoError(t, svc.Create(context.Background(), first, user.ID))
	require.NoError(t, svc.Create(context.Background(), second, user.ID))

	_, err := svc.ChangeStatus(context.Background(), first.ID, "CONFIRMED")
	require.NoError(t, err)
	assert.Equal(t, 2, currentStock(t, db, product.ID))

	// The conditional stock update catches what the pre-check could not.
	_, err = svc.ChangeStatus(context.Background(), second.ID, "CONFIRMED")
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)
	assert.Equal(t, 2, currentStock(t, db, product.ID))

	remaining, err := svc.FindByID(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, remaining.Status)
}

func TestDeleteConfirmedOrderRestoresStock(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Salsa Roja", "3.00", 50)

	order := &models.Order{
		CustomerName: "Cliente",
		Details:      []models.OrderDetail{{ProductID: product.ID, Quantity: 20}},
	}
	require.NoError(t, svc.Create(context.Background(), order, user.ID))
	_, err := svc.ChangeStatus(context.Background(), order.ID, "CONFIRMED")
	require.NoError(t, err)
	require.Equal(t, 30, currentStock(t, db, product.ID))

	require.NoError(t, svc.Delete(context.Background(), order.ID))
	assert.Equal(t, 50, currentStock(t, db, product.ID))

	var details int64
	require.NoError(t, db.Model(&models.OrderDetail{}).Where("order_id = ?", order.ID).Count(&details).Error)
	assert.Zero(t, details)

	_, err = svc.FindByID(context.Background(), order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeletePendingOrderLeavesStockAlone(t *testing.T) {
	db, svc := newTestEnv(t)
	user := seedUser(t, db)
	product := seedProduct(t, db, "Salsa Roja", "3.00", 50)

	order := &models.Order{
		CustomerName: "Cliente",
		Details:      []models.OrderDetail{{ProductID: product.ID, Quantity: 20}},
	}
	require.NoError(t, svc.Create(context.Background(), order, user.ID))
	require.NoError(t, svc.Delete(context.Background(), order.ID))
	assert.Equal(t, 50, currentStock(t, db, product.ID))
}

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderPending, models.OrderConfirmed, true},
		{models.OrderPending, models.OrderCancelled, true},
		{models.OrderPending, models.OrderShipped, false},
		{models.OrderConfirmed, models.OrderInPreparation, true},
		{models.OrderInPreparation, models.OrderDelivered, true},
		{models.OrderInPreparation, models.OrderConfirmed, true},
		{models.OrderShipped, models.OrderDelivered, true},
		{models.OrderDelivered, models.OrderCancelled, false},
		{models.OrderCancelled, models.OrderPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}
