package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/orderstack/orderstack/internal/models"
)

// SenderRepository defines the interface for sender profile operations
type SenderRepository interface {
	Create(ctx context.Context, sender *models.Sender) error
	GetByID(ctx context.Context, id string) (*models.Sender, error)
	List(ctx context.Context) ([]models.Sender, error)
	Update(ctx context.Context, sender *models.Sender) error
	Delete(ctx context.Context, id string) error
}

// GormSenderRepository implements SenderRepository using GORM
type GormSenderRepository struct {
	db *gorm.DB
}

// NewSenderRepository creates a new sender repository instance
func NewSenderRepository(db *gorm.DB) SenderRepository {
	return &GormSenderRepository{db: db}
}

// Create adds a new sender to the database
func (r *GormSenderRepository) Create(ctx context.Context, sender *models.Sender) error {
	if sender == nil {
		return ErrInvalidInput
	}
	if err := sender.Validate(); err != nil {
		return err
	}

	var existing models.Sender
	result := r.db.WithContext(ctx).Where("email = ?", sender.Email).First(&existing)
	if result.Error == nil {
		return ErrSenderAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}

	sender.CreatedAt = time.Now()
	sender.UpdatedAt = time.Now()

	return r.db.WithContext(ctx).Create(sender).Error
}

// GetByID retrieves a sender by its ID
func (r *GormSenderRepository) GetByID(ctx context.Context, id string) (*models.Sender, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}

	var sender models.Sender
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&sender)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrSenderNotFound
		}
		return nil, result.Error
	}

	return &sender, nil
}

// List retrieves all configured senders
func (r *GormSenderRepository) List(ctx context.Context) ([]models.Sender, error) {
	var senders []models.Sender
	result := r.db.WithContext(ctx).Order("company_name ASC").Find(&senders)
	if result.Error != nil {
		return nil, result.Error
	}

	return senders, nil
}

// Update updates an existing sender
func (r *GormSenderRepository) Update(ctx context.Context, sender *models.Sender) error {
	if sender == nil || sender.ID == "" {
		return ErrInvalidInput
	}
	if err := sender.Validate(); err != nil {
		return err
	}

	var exists models.Sender
	result := r.db.WithContext(ctx).Where("id = ?", sender.ID).First(&exists)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return ErrSenderNotFound
		}
		return result.Error
	}

	sender.UpdatedAt = time.Now()

	updateResult := r.db.WithContext(ctx).Model(&models.Sender{}).
		Where("id = ?", sender.ID).
		Updates(map[string]interface{}{
			"company_name":     sender.CompanyName,
			"email":            sender.Email,
			"cities":           sender.Cities,
			"cell_coordinates": sender.CellCoordinates,
			"supplier_probes":  sender.SupplierProbes,
			"updated_at":       sender.UpdatedAt,
		})

	return updateResult.Error
}

// Delete removes a sender from the database
func (r *GormSenderRepository) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}

	result := r.db.WithContext(ctx).Delete(&models.Sender{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrSenderNotFound
	}

	return nil
}
