package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/models"
)

// LinkRepository est une interface qui définit les méthodes d'accès aux données
type LinkRepository interface {
	CreateLink(ctx context.Context, link *models.Link) error
	GetLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error)
	GetLinkByID(ctx context.Context, id uuid.UUID) (*models.Link, error)
	UpdateLink(ctx context.Context, id uuid.UUID, update models.LinkUpdate) (*models.Link, error)
	IncrementClicks(ctx context.Context, id uuid.UUID) error
	DeleteLink(ctx context.Context, id uuid.UUID) error
	ListLinksByOwner(ctx context.Context, ownerID string) ([]models.Link, error)
	ListActiveLinks(ctx context.Context, now time.Time) ([]models.Link, error)
	ListExpiredAnonymousLinks(ctx context.Context, before time.Time) ([]models.Link, error)
	CountLinks(ctx context.Context) (int64, error)
	SumClicks(ctx context.Context) (int64, error)
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink inserts a new link. The unique index on short_code is the final
// authority on collisions: a duplicate fails with ErrShortCodeTaken and the
// existing row is left untouched.
func (r *GormLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		if isUniqueViolation(err) {
			return customerrors.ErrShortCodeTaken
		}
		return fmt.Errorf("failed to create link: %w", err)
	}
	return nil
}

// GetLinkByShortCode récupère un lien de la base de données en utilisant son shortCode.
func (r *GormLinkRepository) GetLinkByShortCode(ctx context.Context, shortCode string) (*models.Link, error) {
	var link models.Link
	if err := r.db.WithContext(ctx).Where("short_code = ?", shortCode).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrShortCodeNotFound
		}
		return nil, fmt.Errorf("failed to get link by short code %q: %w", shortCode, err)
	}
	return &link, nil
}

// GetLinkByID récupère un lien par son identifiant stable.
func (r *GormLinkRepository) GetLinkByID(ctx context.Context, id uuid.UUID) (*models.Link, error) {
	var link models.Link
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, customerrors.ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link %s: %w", id, err)
	}
	return &link, nil
}

// UpdateLink applies the owner-mutable fields and returns the stored result.
func (r *GormLinkRepository) UpdateLink(ctx context.Context, id uuid.UUID, update models.LinkUpdate) (*models.Link, error) {
	var link models.Link
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&link).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return customerrors.ErrLinkNotFound
			}
			return err
		}
		if update.Empty() {
			return nil
		}
		if err := tx.Model(&link).Updates(update.Columns()).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&link).Error
	})
	if err != nil {
		if errors.Is(err, customerrors.ErrLinkNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update link %s: %w", id, err)
	}
	return &link, nil
}

// IncrementClicks atomically adds one to the link's counter.
func (r *GormLinkRepository) IncrementClicks(ctx context.Context, id uuid.UUID) error {
	return incrementClicks(r.db.WithContext(ctx), id)
}

func incrementClicks(db *gorm.DB, id uuid.UUID) error {
	result := db.Model(&models.Link{}).
		Where("id = ?", id).
		UpdateColumn("clicks", gorm.Expr("clicks + ?", 1))
	if result.Error != nil {
		return fmt.Errorf("failed to increment clicks for link %s: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return customerrors.ErrLinkNotFound
	}
	return nil
}

// DeleteLink removes the link and all of its click events in one transaction.
func (r *GormLinkRepository) DeleteLink(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("link_id = ?", id).Delete(&models.Click{}).Error; err != nil {
			return fmt.Errorf("failed to delete clicks for link %s: %w", id, err)
		}
		result := tx.Where("id = ?", id).Delete(&models.Link{})
		if result.Error != nil {
			return fmt.Errorf("failed to delete link %s: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return customerrors.ErrLinkNotFound
		}
		return nil
	})
}

// ListLinksByOwner returns an account's links, newest first.
func (r *GormLinkRepository) ListLinksByOwner(ctx context.Context, ownerID string) ([]models.Link, error) {
	var links []models.Link
	if err := r.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at desc").Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to list links for owner %s: %w", ownerID, err)
	}
	return links, nil
}

// ListActiveLinks returns the links a visitor could currently be redirected through.
func (r *GormLinkRepository) ListActiveLinks(ctx context.Context, now time.Time) ([]models.Link, error) {
	var links []models.Link
	if err := r.db.WithContext(ctx).
		Where("is_active = ? AND (expires_at IS NULL OR expires_at > ?)", true, now.UTC()).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve active links: %w", err)
	}
	return links, nil
}

// ListExpiredAnonymousLinks returns unowned links whose expiry is before the given time.
func (r *GormLinkRepository) ListExpiredAnonymousLinks(ctx context.Context, before time.Time) ([]models.Link, error) {
	var links []models.Link
	if err := r.db.WithContext(ctx).
		Where("(owner_id IS NULL OR owner_id = '') AND expires_at IS NOT NULL AND expires_at < ?", before.UTC()).
		Find(&links).Error; err != nil {
		return nil, fmt.Errorf("failed to retrieve expired anonymous links: %w", err)
	}
	return links, nil
}

// CountLinks returns the number of stored links.
func (r *GormLinkRepository) CountLinks(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Link{}).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count links: %w", err)
	}
	return count, nil
}

// SumClicks returns the total of every link's click counter.
func (r *GormLinkRepository) SumClicks(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Link{}).
		Select("COALESCE(SUM(clicks), 0)").
		Scan(&total).Error; err != nil {
		return 0, fmt.Errorf("failed to sum clicks: %w", err)
	}
	return total, nil
}

// isUniqueViolation recognises duplicate-key errors from both drivers, whether
// or not the dialector translated them.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
