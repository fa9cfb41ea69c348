package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Link représente un lien raccourci dans la base de données.
// ShortCode is the public key; ID is the stable key used for updates and deletes.
type Link struct {
	ID                  uuid.UUID  `gorm:"type:char(36);primaryKey" json:"id"`
	ShortCode           string     `gorm:"uniqueIndex;size:20;not null" json:"short_code"`
	OriginalURL         string     `gorm:"type:text;not null" json:"original_url"`
	CustomCode          *string    `gorm:"size:20" json:"custom_code,omitempty"`
	Title               *string    `gorm:"size:255" json:"title,omitempty"`
	Description         *string    `gorm:"type:text" json:"description,omitempty"`
	Clicks              int64      `gorm:"not null;default:0" json:"clicks"`
	IsActive            bool       `gorm:"not null" json:"is_active"`
	IsPasswordProtected bool       `gorm:"not null;default:false" json:"is_password_protected"`
	Password            *string    `gorm:"size:255" json:"-"`
	ExpiresAt           *time.Time `gorm:"index" json:"expires_at,omitempty"`
	OwnerID             *string    `gorm:"size:64;index" json:"owner_id,omitempty"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Events []Click `gorm:"foreignKey:LinkID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeCreate assigns the immutable identifier.
func (l *Link) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// IsExpired reports whether the link's expiry lies strictly before now.
func (l *Link) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// IsAnonymous reports whether the link has no owning account.
func (l *Link) IsAnonymous() bool {
	return l.OwnerID == nil || *l.OwnerID == ""
}

// LinkUpdate lists the owner-mutable fields. Nil pointers are left untouched.
type LinkUpdate struct {
	Title       *string
	Description *string
	ExpiresAt   *time.Time
	ClearExpiry bool
	IsActive    *bool
}

// Empty reports whether the update changes nothing.
func (u LinkUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.ExpiresAt == nil && !u.ClearExpiry && u.IsActive == nil
}

// Columns maps the update onto column names for a GORM Updates call.
func (u LinkUpdate) Columns() map[string]interface{} {
	cols := make(map[string]interface{})
	if u.Title != nil {
		cols["title"] = *u.Title
	}
	if u.Description != nil {
		cols["description"] = *u.Description
	}
	if u.ClearExpiry {
		cols["expires_at"] = nil
	} else if u.ExpiresAt != nil {
		cols["expires_at"] = u.ExpiresAt.UTC()
	}
	if u.IsActive != nil {
		cols["is_active"] = *u.IsActive
	}
	return cols
}
