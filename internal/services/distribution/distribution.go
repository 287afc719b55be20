package distribution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"lecoq-erp/internal/database/models"
	"lecoq-erp/internal/events"
	"lecoq-erp/internal/services/orders"
)

var (
	ErrDeliveryNotFound  = errors.New("delivery not found")
	ErrDuplicateDelivery = errors.New("a delivery already exists for this order")
	ErrInvalidStatus     = errors.New("invalid delivery status")
	ErrInvalidTransition = errors.New("status transition not allowed")
)

// FAILED->SCHEDULED allows rescheduling a failed delivery without creating a
// second record for the order.
var deliveryTransitions = map[models.DeliveryStatus][]models.DeliveryStatus{
	models.DeliveryScheduled: {models.DeliveryInTransit, models.DeliveryDelivered, models.DeliveryFailed},
	models.DeliveryInTransit: {models.DeliveryDelivered, models.DeliveryFailed},
	models.DeliveryDelivered: {},
	models.DeliveryFailed:    {models.DeliveryScheduled},
}

func CanTransition(from, to models.DeliveryStatus) bool {
	for _, allowed := range deliveryTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type Service struct {
	db     *gorm.DB
	orders *orders.Service
	events *events.Publisher
}

func NewService(db *gorm.DB, orderSvc *orders.Service, publisher *events.Publisher) *Service {
	return &Service{
		db:     db,
		orders: orderSvc,
		events: publisher,
	}
}

// Create schedules the delivery for an order and moves that order to
// IN_PREPARATION. At most one delivery may exist per order.
func (s *Service) Create(ctx context.Context, delivery *models.Delivery, orderID, userID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orders.ErrOrderNotFound
			}
			return err
		}

		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", orders.ErrUserNotFound, userID)
			}
			return err
		}

		var count int64
		if err := tx.Model(&models.Delivery{}).Where("order_id = ?", orderID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateDelivery
		}

		delivery.OrderID = order.ID
		delivery.Order = nil
		delivery.UserID = user.ID
		delivery.User = nil
		delivery.Status = models.DeliveryScheduled
		if delivery.DepartureDate.IsZero() {
			delivery.DepartureDate = time.Now()
		}

		if err := tx.Create(delivery).Error; err != nil {
			return err
		}

		_, err := s.orders.ChangeStatusTx(tx, orderID, models.OrderInPreparation)
		return err
	})
	if err != nil {
		return err
	}

	s.events.Publish(events.Event{
		Entity:   "delivery",
		EntityID: delivery.ID,
		Type:     events.TypeCreated,
		Status:   string(delivery.Status),
	})
	return nil
}

// ChangeStatus advances the delivery and drives the associated order:
// in-transit ships the order, delivered completes it (stamping the actual
// delivery time), failed reverts it to CONFIRMED for rescheduling, and a
// reschedule puts the order back in preparation. Re-sending the current
// status is a no-op.
func (s *Service) ChangeStatus(ctx context.Context, deliveryID int64, newStatus string) (*models.Delivery, error) {
	status, ok := models.ParseDeliveryStatus(newStatus)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	var delivery *models.Delivery
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Delivery
		if err := tx.First(&d, deliveryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeliveryNotFound
			}
			return err
		}

		previous := d.Status
		if previous != status && !CanTransition(previous, status) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, previous, status)
		}
		d.Status = status

		if previous != status {
			switch status {
			case models.DeliveryScheduled:
				if _, err := s.orders.ChangeStatusTx(tx, d.OrderID, models.OrderInPreparation); err != nil {
					return err
				}
			case models.DeliveryInTransit:
				if _, err := s.orders.ChangeStatusTx(tx, d.OrderID, models.OrderShipped); err != nil {
					return err
				}
			case models.DeliveryDelivered:
				now := time.Now()
				d.DeliveryDate = &now
				if _, err := s.orders.ChangeStatusTx(tx, d.OrderID, models.OrderDelivered); err != nil {
					return err
				}
			case models.DeliveryFailed:
				if _, err := s.orders.ChangeStatusTx(tx, d.OrderID, models.OrderConfirmed); err != nil {
					return err
				}
			}
		}

		if err := tx.Save(&d).Error; err != nil {
			return err
		}
		delivery = &d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(events.Event{
		Entity:   "delivery",
		EntityID: delivery.ID,
		Type:     events.TypeStatusChanged,
		Status:   string(delivery.Status),
	})
	return delivery, nil
}

func (s *Service) MarkDelivered(ctx context.Context, deliveryID int64) (*models.Delivery, error) {
	return s.ChangeStatus(ctx, deliveryID, string(models.DeliveryDelivered))
}

func (s *Service) MarkInTransit(ctx context.Context, deliveryID int64) (*models.Delivery, error) {
	return s.ChangeStatus(ctx, deliveryID, string(models.DeliveryInTransit))
}

func (s *Service) MarkFailed(ctx context.Context, deliveryID int64) (*models.Delivery, error) {
	return s.ChangeStatus(ctx, deliveryID, string(models.DeliveryFailed))
}

// Update rewrites the logistics fields; status and order linkage stay put.
func (s *Service) Update(ctx context.Context, deliveryID int64, updated models.Delivery) (*models.Delivery, error) {
	var delivery models.Delivery
	if err := s.db.WithContext(ctx).First(&delivery, deliveryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}

	delivery.DriverName = updated.DriverName
	delivery.DriverPhone = updated.DriverPhone
	delivery.VehiclePlate = updated.VehiclePlate
	delivery.VehicleModel = updated.VehicleModel
	delivery.DepartureDate = updated.DepartureDate
	delivery.DeliveryAddress = updated.DeliveryAddress
	delivery.Notes = updated.Notes

	if err := s.db.WithContext(ctx).Save(&delivery).Error; err != nil {
		return nil, err
	}
	return &delivery, nil
}

// Delete removes the delivery. A delivery that never started returns its
// order to CONFIRMED so it can be rescheduled.
func (s *Service) Delete(ctx context.Context, deliveryID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var delivery models.Delivery
		if err := tx.First(&delivery, deliveryID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeliveryNotFound
			}
			return err
		}

		if delivery.Status == models.DeliveryScheduled {
			if _, err := s.orders.ChangeStatusTx(tx, delivery.OrderID, models.OrderConfirmed); err != nil {
				return err
			}
		}

		return tx.Delete(&models.Delivery{}, deliveryID).Error
	})
}

// --- Accessors ---

func (s *Service) FindAll(ctx context.Context) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Order("departure_date desc").
		Find(&deliveries).Error
	return deliveries, err
}

func (s *Service) FindByID(ctx context.Context, id int64) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Preload("Order.Details").
		First(&delivery, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

func (s *Service) FindByOrder(ctx context.Context, orderID int64) (*models.Delivery, error) {
	var delivery models.Delivery
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		First(&delivery).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return &delivery, nil
}

func (s *Service) FindByUser(ctx context.Context, userID int64) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Where("user_id = ?", userID).
		Order("departure_date desc").
		Find(&deliveries).Error
	return deliveries, err
}

func (s *Service) FindByStatus(ctx context.Context, status string) ([]models.Delivery, error) {
	parsed, ok := models.ParseDeliveryStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Where("status = ?", parsed).
		Order("departure_date desc").
		Find(&deliveries).Error
	return deliveries, err
}

func (s *Service) FindByStatusIn(ctx context.Context, statuses []string) ([]models.Delivery, error) {
	parsed := make([]models.DeliveryStatus, 0, len(statuses))
	for _, raw := range statuses {
		status, ok := models.ParseDeliveryStatus(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
		}
		parsed = append(parsed, status)
	}
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Where("status IN ?", parsed).
		Find(&deliveries).Error
	return deliveries, err
}

func (s *Service) SearchByDriver(ctx context.Context, name string) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Where("LOWER(driver_name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Find(&deliveries).Error
	return deliveries, err
}

func (s *Service) FindByVehiclePlate(ctx context.Context, plate string) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Where("vehicle_plate = ?", plate).
		Find(&deliveries).Error
	return deliveries, err
}

func (s *Service) FindByDateRange(ctx context.Context, from, to time.Time) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := s.db.WithContext(ctx).
		Preload("Order").
		Where("departure_date BETWEEN ? AND ?", from, to).
		Order("departure_date desc").
		Find(&deliveries).Error
	return deliveries, err
}
