package maquila

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
	"lecoq-erp/internal/services/orders"
)

var (
	ErrMaquilaNotFound   = errors.New("maquila order not found")
	ErrDetailNotFound    = errors.New("maquila detail not found")
	ErrInvalidStatus     = errors.New("invalid maquila status")
	ErrInvalidTransition = errors.New("status transition not allowed")
	ErrNotFinalized      = errors.New("operation requires a finalized maquila order")
	ErrAlreadyReceived   = errors.New("maquila order already received")
	ErrInvalidQuantity   = errors.New("received quantity cannot exceed requested quantity")
	ErrInvalidTotal      = errors.New("maquila order without details must carry a cost total greater than zero")
)

var maquilaTransitions = map[models.MaquilaStatus][]models.MaquilaStatus{
	models.MaquilaPending:   {models.MaquilaEnProcess, models.MaquilaCancelled},
	models.MaquilaEnProcess: {models.MaquilaFinalized, models.MaquilaCancelled},
	models.MaquilaFinalized: {models.MaquilaReceived, models.MaquilaCancelled},
	models.MaquilaReceived:  {},
	models.MaquilaCancelled: {},
}

func CanTransition(from, to models.MaquilaStatus) bool {
	for _, allowed := range maquilaTransitions[from] {
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

// Create persists a new contract-manufacturing order. Details reference
// existing products and accumulate unit cost x requested quantity into the
// cost total; an order without details keeps the caller-supplied total. No
// stock check: this is an inbound order.
func (s *Service) Create(ctx context.Context, order *models.MaquilaOrder, userID int64) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %d", orders.ErrUserNotFound, userID)
			}
			return err
		}
		order.UserID = user.ID
		order.User = nil
		order.Status = models.MaquilaPending

		if order.OrderNumber == "" {
			order.OrderNumber = fmt.Sprintf("MAQ-%d", time.Now().UnixMilli())
		}
		if order.OrderDate.IsZero() {
			order.OrderDate = time.Now()
		}

		if len(order.Details) == 0 {
			if !order.CostTotal.IsPositive() {
				return ErrInvalidTotal
			}
			return tx.Create(order).Error
		}

		costTotal := decimal.Zero
		for i := range order.Details {
			detail := &order.Details[i]
			if detail.RequestedQty <= 0 {
				return fmt.Errorf("%w: requested quantity must be greater than zero", ErrInvalidQuantity)
			}
			if detail.ReceivedQty != 0 {
				detail.ReceivedQty = 0
			}

			var product models.Product
			if err := tx.Select("id").First(&product, detail.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return inventory.ErrProductNotFound
				}
				return err
			}

			detail.ID = 0
			detail.Product = nil
			detail.Subtotal = detail.UnitCost.Mul(decimal.NewFromInt(int64(detail.RequestedQty)))
			costTotal = costTotal.Add(detail.Subtotal)
		}

		order.CostTotal = costTotal
		return tx.Create(order).Error
	})
	if err != nil {
		return err
	}

	s.events.Publish(events.Event{
		Entity:   "maquila",
		EntityID: order.ID,
		Type:     events.TypeCreated,
		Status:   string(order.Status),
	})
	return nil
}

// ChangeStatus moves the order along PENDING -> EN_PROCESS -> FINALIZED ->
// RECEIVED (CANCELLED from any non-terminal state). Finalizing stamps the
// actual delivery date.
func (s *Service) ChangeStatus(ctx context.Context, id int64, newStatus string) (*models.MaquilaOrder, error) {
	status, ok := models.ParseMaquilaStatus(newStatus)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	var order *models.MaquilaOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.MaquilaOrder
		if err := tx.First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMaquilaNotFound
			}
			return err
		}

		if m.Status != status {
			if !CanTransition(m.Status, status) {
				return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, status)
			}
			m.Status = status
			if status == models.MaquilaFinalized {
				now := time.Now()
				m.ActualDelivery = &now
			}
		}

		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		order = &m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.events.Publish(events.Event{
		Entity:   "maquila",
		EntityID: order.ID,
		Type:     events.TypeStatusChanged,
		Status:   string(order.Status),
	})
	return order, nil
}

func (s *Service) MarkEnProcess(ctx context.Context, id int64) (*models.MaquilaOrder, error) {
	return s.ChangeStatus(ctx, id, string(models.MaquilaEnProcess))
}

func (s *Service) MarkFinalized(ctx context.Context, id int64) (*models.MaquilaOrder, error) {
	return s.ChangeStatus(ctx, id, string(models.MaquilaFinalized))
}

func (s *Service) MarkCancelled(ctx context.Context, id int64) (*models.MaquilaOrder, error) {
	return s.ChangeStatus(ctx, id, string(models.MaquilaCancelled))
}

// Receive credits stock for every detail with a positive received quantity
// and marks the order RECEIVED. Only a finalized order can be received.
func (s *Service) Receive(ctx context.Context, id int64) (*models.MaquilaOrder, error) {
	var order *models.MaquilaOrder
	var touched []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.MaquilaOrder
		if err := tx.Preload("Details").First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMaquilaNotFound
			}
			return err
		}

		if m.Status != models.MaquilaFinalized {
			return fmt.Errorf("%w: current status is %s", ErrNotFinalized, m.Status)
		}

		for _, detail := range m.Details {
			if detail.ReceivedQty > 0 {
				if err := s.inventory.AdjustStock(tx, detail.ProductID, detail.ReceivedQty); err != nil {
					return err
				}
				touched = append(touched, detail.ProductID)
			}
		}

		m.Status = models.MaquilaReceived
		if err := tx.Save(&m).Error; err != nil {
			return err
		}
		order = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(touched) > 0 {
		s.inventory.InvalidateStock(ctx, touched...)
	}

	s.events.Publish(events.Event{
		Entity:   "maquila",
		EntityID: order.ID,
		Type:     events.TypeReceived,
		Status:   string(order.Status),
	})
	return order, nil
}

// DetailUpdate carries a received-quantity correction for one detail line.
type DetailUpdate struct {
	DetailID    int64 `json:"detail_id"`
	ReceivedQty int   `json:"received_qty"`
}

// UpdateReceivedQuantities reconciles received quantities against requested
// ones before Receive credits stock. Only valid while the order is FINALIZED;
// any invalid line aborts the whole batch.
func (s *Service) UpdateReceivedQuantities(ctx context.Context, id int64, updates []DetailUpdate) (*models.MaquilaOrder, error) {
	var order *models.MaquilaOrder
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.MaquilaOrder
		if err := tx.Preload("Details").First(&m, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMaquilaNotFound
			}
			return err
		}

		if m.Status != models.MaquilaFinalized {
			return fmt.Errorf("%w: current status is %s", ErrNotFinalized, m.Status)
		}

		for _, update := range updates {
			var detail *models.MaquilaDetail
			for i := range m.Details {
				if m.Details[i].ID == update.DetailID {
					detail = &m.Details[i]
					break
				}
			}
			if detail == nil {
				return fmt.Errorf("%w: %d", ErrDetailNotFound, update.DetailID)
			}
			if update.ReceivedQty < 0 || update.ReceivedQty > detail.RequestedQty {
				return fmt.Errorf("%w: detail %d requested %d, got %d",
					ErrInvalidQuantity, detail.ID, detail.RequestedQty, update.ReceivedQty)
			}

			if err := tx.Model(&models.MaquilaDetail{}).
				Where("id = ?", detail.ID).
				Update("received_qty", update.ReceivedQty).Error; err != nil {
				return err
			}
			detail.ReceivedQty = update.ReceivedQty
		}

		order = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Update rewrites the supplier header fields.
func (s *Service) Update(ctx context.Context, id int64, updated models.MaquilaOrder) (*models.MaquilaOrder, error) {
	var order models.MaquilaOrder
	if err := s.db.WithContext(ctx).First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaquilaNotFound
		}
		return nil, err
	}

	order.SupplierName = updated.SupplierName
	order.SupplierTaxID = updated.SupplierTaxID
	order.SupplierContact = updated.SupplierContact
	order.SupplierPhone = updated.SupplierPhone
	order.EstimatedDelivery = updated.EstimatedDelivery
	order.Notes = updated.Notes

	if err := s.db.WithContext(ctx).Save(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// Delete refuses to remove a RECEIVED order: its stock credit has already
// been applied and deleting the record would orphan that adjustment.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.MaquilaOrder
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMaquilaNotFound
			}
			return err
		}

		if order.Status == models.MaquilaReceived {
			return ErrAlreadyReceived
		}

		if err := tx.Where("maquila_order_id = ?", id).Delete(&models.MaquilaDetail{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.MaquilaOrder{}, id).Error
	})
}

// --- Accessors ---

func (s *Service) FindAll(ctx context.Context) ([]models.MaquilaOrder, error) {
	var maquilas []models.MaquilaOrder
	err := s.db.WithContext(ctx).
		Preload("Details").
		Order("order_date desc").
		Find(&maquilas).Error
	return maquilas, err
}

func (s *Service) FindByID(ctx context.Context, id int64) (*models.MaquilaOrder, error) {
	var order models.MaquilaOrder
	err := s.db.WithContext(ctx).
		Preload("Details").
		Preload("Details.Product").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaquilaNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) FindByOrderNumber(ctx context.Context, orderNumber string) (*models.MaquilaOrder, error) {
	var order models.MaquilaOrder
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("order_number = ?", orderNumber).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMaquilaNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (s *Service) FindByUser(ctx context.Context, userID int64) ([]models.MaquilaOrder, error) {
	var maquilas []models.MaquilaOrder
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("user_id = ?", userID).
		Order("order_date desc").
		Find(&maquilas).Error
	return maquilas, err
}

func (s *Service) FindByStatus(ctx context.Context, status string) ([]models.MaquilaOrder, error) {
	parsed, ok := models.ParseMaquilaStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	var maquilas []models.MaquilaOrder
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("status = ?", parsed).
		Order("order_date desc").
		Find(&maquilas).Error
	return maquilas, err
}

func (s *Service) FindByStatusIn(ctx context.Context, statuses []string) ([]models.MaquilaOrder, error) {
	parsed := make([]models.MaquilaStatus, 0, len(statuses))
	for _, raw := range statuses {
		status, ok := models.ParseMaquilaStatus(raw)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
		}
		parsed = append(parsed, status)
	}
	var maquilas []models.MaquilaOrder
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("status IN ?", parsed).
		Find(&maquilas).Error
	return maquilas, err
}

func (s *Service) SearchBySupplier(ctx context.Context, name string) ([]models.MaquilaOrder, error) {
	var maquilas []models.MaquilaOrder
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("LOWER(supplier_name) LIKE ?", "%"+strings.ToLower(name)+"%").
		Find(&maquilas).Error
	return maquilas, err
}

func (s *Service) FindByDateRange(ctx context.Context, from, to time.Time) ([]models.MaquilaOrder, error) {
	var maquilas []models.MaquilaOrder
	err := s.db.WithContext(ctx).
		Preload("Details").
		Where("order_date BETWEEN ? AND ?", from, to).
		Order("order_date desc").
		Find(&maquilas).Error
	return maquilas, err
}

func (s *Service) FindDetails(ctx context.Context, id int64) ([]models.MaquilaDetail, error) {
	if _, err := s.FindByID(ctx, id); err != nil {
		return nil, err
	}
	var details []models.MaquilaDetail
	err := s.db.WithContext(ctx).
		Preload("Product").
		Where("maquila_order_id = ?", id).
		Find(&details).Error
	return details, err
}
