package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/stocksync-backend/pkg/db/models"
)

// Repository manages persistence for product identities.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, identity *models.ProductIdentity) error
	Save(ctx context.Context, identity *models.ProductIdentity) error
	FindBySKU(ctx context.Context, sku string) (*models.ProductIdentity, error)
	FindByAlias(ctx context.Context, alias string) (*models.ProductIdentity, error)
	FindByNameSubstring(ctx context.Context, fragment string) (*models.ProductIdentity, error)
	ListTemporary(ctx context.Context) ([]models.ProductIdentity, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, identity *models.ProductIdentity) error {
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(identity).Error
}

func (r *repository) Save(ctx context.Context, identity *models.ProductIdentity) error {
	return r.db.WithContext(ctx).Save(identity).Error
}

func (r *repository) FindBySKU(ctx context.Context, sku string) (*models.ProductIdentity, error) {
	var identity models.ProductIdentity
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Where("UPPER(sku) = ?", strings.ToUpper(sku)).
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &identity, nil
}

// FindByAlias matches only permanent identities. Temporary identities
// never participate in resolution, so two sightings of the same unknown
// reference produce two distinct temp identities until someone remaps.
func (r *repository) FindByAlias(ctx context.Context, alias string) (*models.ProductIdentity, error) {
	identities, err := r.listActive(ctx)
	if err != nil {
		return nil, err
	}
	for i := range identities {
		if identities[i].Temporary {
			continue
		}
		if identities[i].HasAlias(alias) {
			return &identities[i], nil
		}
	}
	return nil, nil
}

func (r *repository) FindByNameSubstring(ctx context.Context, fragment string) (*models.ProductIdentity, error) {
	fragment = strings.ToLower(strings.TrimSpace(fragment))
	if fragment == "" {
		return nil, nil
	}
	var identity models.ProductIdentity
	err := r.db.WithContext(ctx).
		Where("active = ? AND temporary = ?", true, false).
		Where("LOWER(name) LIKE ?", "%"+fragment+"%").
		Order("sku ASC").
		First(&identity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &identity, nil
}

func (r *repository) ListTemporary(ctx context.Context) ([]models.ProductIdentity, error) {
	var identities []models.ProductIdentity
	if err := r.db.WithContext(ctx).
		Where("active = ? AND temporary = ?", true, true).
		Order("created_at ASC").
		Find(&identities).Error; err != nil {
		return nil, err
	}
	return identities, nil
}

func (r *repository) listActive(ctx context.Context) ([]models.ProductIdentity, error) {
	var identities []models.ProductIdentity
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("sku ASC").
		Find(&identities).Error; err != nil {
		return nil, err
	}
	return identities, nil
}
