// Package product manages the catalogue and each product's commission policy.
// Policy changes only affect sales approved afterwards; commissions already
// written keep their amounts until an explicit recalculation.
package product

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"vendorsales-backend/internal/actor"
	"vendorsales-backend/internal/apperr"
	"vendorsales-backend/internal/audit"
	"vendorsales-backend/internal/commission"
	"vendorsales-backend/internal/models"
)

var (
	ErrProductNotFound = apperr.NotFound("product not found")
	ErrNameRequired    = apperr.Validation("product name is required")
	ErrNameTaken       = apperr.Conflict("a product with this name already exists")
	ErrInvalidPolicy   = apperr.Validation("commission must be fixed (>= 0) or percentage (0-100)")
)

type CreateInput struct {
	Name            string
	Brand           string
	Model           string
	CommissionType  models.CommissionType
	CommissionValue decimal.Decimal
}

type UpdateInput struct {
	Name            *string
	Brand           *string
	Model           *string
	CommissionType  *models.CommissionType
	CommissionValue *decimal.Decimal
	IsActive        *bool
}

type Catalog struct {
	db *gorm.DB
}

func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) Create(ctx context.Context, a actor.Actor, in CreateInput) (*models.Product, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, ErrNameRequired
	}
	if !commission.ValidPolicy(commission.Policy{Type: in.CommissionType, Value: in.CommissionValue}) {
		return nil, ErrInvalidPolicy
	}

	var p models.Product
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := uniqueName(tx, in.Name, 0); err != nil {
			return err
		}
		p = models.Product{
			Name:            in.Name,
			Brand:           strings.TrimSpace(in.Brand),
			Model:           strings.TrimSpace(in.Model),
			CommissionType:  in.CommissionType,
			CommissionValue: in.CommissionValue,
			IsActive:        true,
		}
		if err := tx.Create(&p).Error; err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       a,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionCreate,
			Description: "Product " + p.Name + " created",
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Update edits a product in place. The resulting policy is validated as a
// whole, so switching type and value in one request is allowed.
func (c *Catalog) Update(ctx context.Context, a actor.Actor, id uint, in UpdateInput) (*models.Product, error) {
	if err := a.RequireAdmin(); err != nil {
		return nil, err
	}

	var p models.Product
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}
		before := p

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return ErrNameRequired
			}
			if err := uniqueName(tx, name, p.ID); err != nil {
				return err
			}
			p.Name = name
		}
		if in.Brand != nil {
			p.Brand = strings.TrimSpace(*in.Brand)
		}
		if in.Model != nil {
			p.Model = strings.TrimSpace(*in.Model)
		}
		if in.CommissionType != nil {
			p.CommissionType = *in.CommissionType
		}
		if in.CommissionValue != nil {
			p.CommissionValue = *in.CommissionValue
		}
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		if !commission.ValidPolicy(commission.PolicyOf(p)) {
			return ErrInvalidPolicy
		}

		// Select("*") so is_active=false is written too
		if err := tx.Model(&p).Select("*").Omit("created_at").Updates(&p).Error; err != nil {
			return fmt.Errorf("update product: %w", err)
		}

		desc := "Product " + p.Name + " updated"
		if !before.CommissionValue.Equal(p.CommissionValue) || before.CommissionType != p.CommissionType {
			desc = fmt.Sprintf("Product %s commission changed from %s %s to %s %s",
				p.Name, before.CommissionType, before.CommissionValue, p.CommissionType, p.CommissionValue)
		}
		return audit.WriteLog(tx, audit.LogOptions{
			Actor:       a,
			EntityType:  "product",
			EntityID:    p.ID,
			Action:      models.AuditActionUpdate,
			Description: desc,
			Before:      before,
			After:       p,
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns products by name. Inactive products are included only when
// includeInactive is set.
func (c *Catalog) List(ctx context.Context, includeInactive bool) ([]models.Product, error) {
	q := c.db.WithContext(ctx).Model(&models.Product{})
	if !includeInactive {
		q = q.Where("is_active = ?", true)
	}
	var products []models.Product
	if err := q.Order("name ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func uniqueName(tx *gorm.DB, name string, exceptID uint) error {
	var count int64
	if err := tx.Model(&models.Product{}).Where("LOWER(name) = LOWER(?) AND id <> ?", name, exceptID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrNameTaken
	}
	return nil
}
