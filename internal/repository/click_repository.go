package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	customerrors "github.com/linkgate/urlshortener/internal/errors"
	"github.com/linkgate/urlshortener/internal/models"
)

// ClickRepository est une interface qui définit les méthodes d'accès aux données
type ClickRepository interface {
	RecordClick(ctx context.Context, click *models.Click) error
	CountClicksByLinkID(ctx context.Context, linkID uuid.UUID) (int64, error)
	ListClicksByLinkID(ctx context.Context, linkID uuid.UUID) ([]models.Click, error)
	CountClicksGroupedBy(ctx context.Context, linkID uuid.UUID, dimension Dimension) (map[string]int64, error)
}

// Dimension is a click attribute that may be grouped on.
type Dimension string

const (
	DimensionCountry Dimension = "country"
	DimensionCity    Dimension = "city"
	DimensionDevice  Dimension = "device"
	DimensionBrowser Dimension = "browser"
	DimensionOS      Dimension = "os"
)

func (d Dimension) valid() bool {
	switch d {
	case DimensionCountry, DimensionCity, DimensionDevice, DimensionBrowser, DimensionOS:
		return true
	}
	return false
}

// GormClickRepository est l'implémentation de l'interface ClickRepository utilisant GORM.
type GormClickRepository struct {
	db *gorm.DB
}

// NewClickRepository crée et retourne une nouvelle instance de GormClickRepository.
func NewClickRepository(db *gorm.DB) *GormClickRepository {
	return &GormClickRepository{db: db}
}

// RecordClick inserts the click event and increments the link's counter as one
// unit: both are committed or neither is. A link that no longer exists fails
// with ErrLinkNotFound and nothing is written.
func (r *GormClickRepository) RecordClick(ctx context.Context, click *models.Click) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := incrementClicks(tx, click.LinkID); err != nil {
			return err
		}
		if err := tx.Create(click).Error; err != nil {
			return fmt.Errorf("failed to create click: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, customerrors.ErrLinkNotFound) {
			return err
		}
		return fmt.Errorf("failed to record click for link %s: %w", click.LinkID, err)
	}
	return nil
}

// CountClicksByLinkID compte le nombre total de clics pour un ID de lien donné.
func (r *GormClickRepository) CountClicksByLinkID(ctx context.Context, linkID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Click{}).Where("link_id = ?", linkID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count clicks for link ID %s: %w", linkID, err)
	}
	return count, nil
}

// ListClicksByLinkID returns every click of a link, newest first.
func (r *GormClickRepository) ListClicksByLinkID(ctx context.Context, linkID uuid.UUID) ([]models.Click, error) {
	var clicks []models.Click
	if err := r.db.WithContext(ctx).Where("link_id = ?", linkID).Order("clicked_at desc").Find(&clicks).Error; err != nil {
		return nil, fmt.Errorf("failed to list clicks for link ID %s: %w", linkID, err)
	}
	return clicks, nil
}

// CountClicksGroupedBy returns click counts per value of the given dimension.
func (r *GormClickRepository) CountClicksGroupedBy(ctx context.Context, linkID uuid.UUID, dimension Dimension) (map[string]int64, error) {
	if !dimension.valid() {
		return nil, fmt.Errorf("unsupported click dimension %q", dimension)
	}

	var rows []struct {
		Label string
		Cnt   int64
	}
	column := string(dimension)
	if err := r.db.WithContext(ctx).Model(&models.Click{}).
		Select(column+" AS label, COUNT(*) AS cnt").
		Where("link_id = ?", linkID).
		Group(column).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to group clicks by %s for link ID %s: %w", column, linkID, err)
	}

	stats := make(map[string]int64, len(rows))
	for _, row := range rows {
		stats[row.Label] = row.Cnt
	}
	return stats, nil
}
