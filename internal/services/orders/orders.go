package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/events"
	"lecoq-erp/internal/services/inventory"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrInvalidTotal      = errors.New("order without details must carry a total greater than zero")
	ErrInvalidQuantity   = errors.New("detail quantity must be greater than zero")
)

// transitions that may be requested for an order, including the ones the
// delivery workflow drives (see DESIGN.md).
var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderPending:       {models.OrderConfirmed, models.OrderCancelled},
	models.OrderConfirmed:     {models.OrderInPreparation, models.OrderShipped, models.OrderCancelled},
	models.OrderInPreparation: {models.OrderShipped, models.OrderDelivered, models.OrderConfirmed, models.OrderCancelled},
	models.OrderShipped:       {models.OrderDelivered, models.OrderConfirmed, models.OrderCancelled},
	models.OrderDelivered:     {},
	models.OrderCancelled:     {},
}

func CanTransition(from, to models.OrderStatus) bool {
	for _, allowed := range orderTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Service struct {
	db        *gorm.DB
	inventory *inventory.Service
	events    *events.Publisher
}

func NewService(db *gorm.DB, inventorySvc *inventory.Service, publisher *events.Publisher) *Service {
	return &Service{
		db:        db,
		inventory: inventorySvc,
		events:    publisher,
	}
}

// Create persists a new order owned by userID. When the order carries
// details, each line snapshots the product's current price and the total is
// computed from the lines; availability is checked but stock is not yet
// debited (that happens on confirmation). An order without details keeps the
// caller-supplied total as-is, which the seeder and "quick orders" rely on.
func (s *Service) Create(ctx context.Context, order *models.Order, userID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", ErrUserNotFound, userID)
			}
			return err
		}
		order.UserID = user.ID
		order.User = nil
		order.Status = models.OrderPending

		if order.OrderNumber == "" {
			order.OrderNumber = fmt.Sprintf("PED-%d", time.Now().UnixMilli())
		}
		if order.OrderDate.IsZero() {
			order.OrderDate = time.Now()
		}

		if len(order.Details) == 0 {
			if !order.Total.IsPositive() {
				return ErrInvalidTotal
			}
			return tx.Create(order).Error
		}

		total := decimal.Zero
		for i := range order.Details {
			detail := &order.Details[i]
			if detail.Quantity <= 0 {
				return ErrInvalidQuantity
			}

			price, name, err := inventory.PriceOf(tx, detail.ProductID)
			if err != nil {
				return err
			}

			ok, err := s.inventory.CheckStockAvailable(tx, detail.ProductID, detail.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w for product: %s", inventory.ErrInsufficientStock, name)
			}

			detail.ID = 0
			detail.Product = nil
			detail.UnitPrice = price
			detail.Subtotal = price.Mul(decimal.NewFromInt(int64(detail.Quantity)))
			total = total.Add(detail.Subtotal)
		}

		order.Total = total
		return tx.Create(order).Error
	})
	if err != nil {
		return err
	}

	s.events.Publish(events.Event{
		Entity:   "order",
		EntityID: order.ID,
		Type:     events.TypeCreated,
		Status:   string(order.Status),
	})
	return nil
}

// ChangeStatus moves the order to newStatus after validating the transition.
// Confirming a pending order debits stock for every line; cancelling a
// confirmed order credits it back. Every other transition is a plain status
// write.
func (s *Service) ChangeStatus(ctx context.Context, orderID int64, newStatus string) (*models.Order, error) {
	status, ok := models.ParseOrderStatus(newStatus)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	var order *models.Order
	var touched []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var innerErr error
		order, touched, innerErr = s.changeStatusTx(tx, orderID, status)
		return innerErr
	})
	if err != nil {
		return nil, err
	}
	if len(touched) > 0 {
		s.inventory.InvalidateStock(ctx, touched...)
	}

	s.events.Publish(events.Event{
		Entity:   "order",
		EntityID: order.ID,
		Type:     events.TypeStatusChanged,
		Status:   string(order.Status),
	})
	return order, nil
}

// ChangeStatusTx is the transactional entry point used by the delivery
// workflow so the order update commits atomically with the delivery's own
// write. Delivery-driven transitions never move stock, so there is nothing
// to invalidate afterwards.
func (s *Service) ChangeStatusTx(tx *gorm.DB, orderID int64, status models.OrderStatus) (*models.Order, error) {
	order, _, err := s.changeStatusTx(tx, orderID, status)
	return order, err
}

// changeStatusTx returns the IDs of products whose stock it adjusted; the
// caller invalidates their cache entries after the transaction commits.
func (s *Service) changeStatusTx(tx *gorm.DB, orderID int64, status models.OrderStatus) (*models.Order, []int64, error) {
	var order models.Order
	if err := tx.Preload("Details").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrOrderNotFound
		}
		return nil, nil, err
	}

	previous := order.Status
	if previous == status {
		return &order, nil, nil
	}
	if !CanTransition(previous, status) {
		return nil, nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, status)
	}

	// Stock commit on confirmation, release on cancelling a confirmed order.
	var touched []int64
	if status == models.OrderConfirmed && previous == models.OrderPending {
		for _, detail := range order.Details {
			if err := s.inventory.AdjustStock(tx, detail.ProductID, -detail.Quantity); err != nil {
				return nil, nil, err
			}
			touched = append(touched, detail.ProductID)
		}
	}
	if status == models.OrderCancelled && previous == models.OrderConfirmed {
		for _, detail := range order.Details {
			if err := s.inventory.AdjustStock(tx, detail.ProductID, detail.Quantity); err != nil {
				return nil, nil, err
			}
			touched = append(touched, detail.ProductID)
		}
	}

	order.Status = status
	if err := tx.Save(&order).Error; err != nil {
		return nil, nil, err
	}
	return &order, touched, nil
}

// Update rewrites the customer-facing header fields. Lines, total and status
// are never touched here.
func (s *Service) Update(ctx context.Context, orderID int64, updated models.Order) (*models.Order, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	order.CustomerName = updated.CustomerName
	order.CustomerTaxID = updated.CustomerTaxID
	order.CustomerAddress = updated.CustomerAddress
	order.CustomerPhone = updated.CustomerPhone
	order.EstimatedDelivery = updated.EstimatedDelivery
	order.Notes = updated.Notes

	if err := s.db.WithContext(ctx).Save(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Delete removes the order and its details. A confirmed order has already
// debited stock, so the debit is compensated before the rows go away.
func (s *Service) Delete(ctx context.Context, orderID int64) error {
	var touched []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Details").First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrOrderNotFound
			}
			return err
		}

		if order.Status == models.OrderConfirmed {
			for _, detail := range order.Details {
				if err := s.inventory.AdjustStock(tx, detail.ProductID, detail.Quantity); err != nil {
					return err
				}
				touched = append(touched, detail.ProductID)
			}
		}

		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Order{}, orderID).Error
	})
	if err != nil {
		return err
	}
	if len(touched) > 0 {
		s.inventory.InvalidateStock(ctx, touched...)
	}

	s.events.Publish(events.Event{
		Entity:   "order",
		EntityID: orderID,
		Type:     events.TypeDeleted,
	})
	return nil
}

// --- Accessors ---

func (s *Service) FindAll(ctx context.Context) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Details").
		Order("order_date desc").
		Find(&orders).Error
	return orders, err
}

func (s *Service) FindByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Details").
		Preload("Details.Product").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) FindByUser(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("user_id = ?", userID).
		Order("order_date desc").
		Find(&orders).Error
	return orders, err
}

func (s *Service) FindByStatus(ctx context.Context, status string) ([]models.Order, error) {
	parsed, ok := models.ParseOrderStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("status = ?", parsed).
		Order("order_date desc").
		Find(&orders).Error
	return orders, err
}

func (s *Service) FindByStatusIn(ctx context.Context, statuses []string) ([]models.Order, error) {
	parsed := make([]models.OrderStatus, 0, len(statuses))
	for _, raw := range statuses {
		status, ok := models.ParseOrderStatus(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
		}
		parsed = append(parsed, status)
	}
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("status IN ?", parsed).
		Order("order_date desc").
		Find(&orders).Error
	return orders, err
}

func (s *Service) SearchByCustomer(ctx context.Context, name string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("LOWER(customer_name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Order("order_date desc").
		Find(&orders).Error
	return orders, err
}

func (s *Service) FindByDateRange(ctx context.Context, from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("order_date BETWEEN ? AND ?", from, to).
		Order("order_date desc").
		Find(&orders).Error
	return orders, err
}

func (s *Service) FindDetails(ctx context.Context, orderID int64) ([]models.OrderDetail, error) {
	if _, err := s.FindByID(ctx, orderID); err != nil {
		return nil, err
	}
	var details []models.OrderDetail
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("order_id = ?", orderID).
		Find(&details).Error
	return details, err
}
