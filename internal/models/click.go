package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Sentinel values stored when a visitor attribute cannot be determined.
const (
	UnknownValue  = "Unknown"
	DefaultDevice = "Desktop"
	DirectReferer = "Direct"
)

// Click represents one successful, gated visit to a Link.
// Rows are written only together with the link's counter increment and are
// never updated or deleted individually.
type Click struct {
	// ID is the primary key, assigned before insert.
	ID uuid.UUID `gorm:"type:char(36);primaryKey" json:"id"`

	// LinkID references the Link that was visited.
	// - index: click listings and counts are always filtered by link
	LinkID uuid.UUID `gorm:"type:char(36);index;not null" json:"link_id"`

	// ClickedAt records the moment of the visit, stored in UTC.
	ClickedAt time.Time `gorm:"index;not null" json:"clicked_at"`

	// Derived visitor attributes. Each falls back to UnknownValue
	// (or DefaultDevice for Device) when it cannot be determined.
	Country string `gorm:"size:64;not null" json:"country"`
	City    string `gorm:"size:128;not null" json:"city"`
	Device  string `gorm:"size:32;not null" json:"device"`
	Browser string `gorm:"size:64;not null" json:"browser"`
	OS      string `gorm:"size:64;not null" json:"os"`

	// Referer is the raw Referer header; nil means a direct visit.
	Referer *string `gorm:"type:text" json:"referer,omitempty"`

	// Raw request metadata kept for later re-derivation.
	// - size:64: sufficient for IPv6 and the "unknown" marker
	IPAddress string `gorm:"size:64" json:"ip_address"`
	UserAgent string `gorm:"type:text" json:"user_agent"`
}

// BeforeCreate assigns the identifier.
func (c *Click) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ClickEvent is the lightweight record of a committed click handed to
// publishers after the transaction succeeds.
type ClickEvent struct {
	ClickID   uuid.UUID `json:"click_id"`
	LinkID    uuid.UUID `json:"link_id"`
	ShortCode string    `json:"short_code"`
	ClickedAt time.Time `json:"clicked_at"`
	Country   string    `json:"country"`
	City      string    `json:"city"`
	Device    string    `json:"device"`
	Browser   string    `json:"browser"`
	OS        string    `json:"os"`
	Referer   string    `json:"referer,omitempty"`
}
