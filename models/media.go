package models

import "time"

const (
	MediaBrochure   = "brochure"
	MediaMap        = "map"
	MediaBackground = "background"
)

// KnownPages receive a background when it is assigned to "all".
var KnownPages = []string{"index", "bracket", "brochure", "map", "link", "tournament"}

// MediaAsset is an uploaded brochure, venue map or page background.
type MediaAsset struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Kind      string    `json:"kind" gorm:"type:varchar(16);not null;index"`
	Type      string    `json:"type,omitempty" gorm:"type:varchar(50)"` // e.g. "pdf", "image"
	ObjectKey string    `json:"path,omitempty"`
	URL       string    `json:"url" gorm:"type:text;not null"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// Link is a button on the guest landing page.
type Link struct {
	ID             string    `json:"id" gorm:"primaryKey"`
	Title          string    `json:"title" gorm:"not null"`
	URL            string    `json:"url" gorm:"type:text;not null"`
	IconPath       *string   `json:"icon_path,omitempty"`
	BackgroundPath *string   `json:"background_path,omitempty"`
	CreatedAt      time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// PageBackground assigns a background asset to a guest page.
type PageBackground struct {
	PageName     string  `json:"page_name" gorm:"primaryKey;type:varchar(50)"`
	BackgroundID *string `json:"background_id,omitempty"`
}

// Setting is a free-form key/value pair owned by the host.
type Setting struct {
	Key       string    `json:"key" gorm:"primaryKey;column:setting_key;type:varchar(50)"`
	Value     string    `json:"value" gorm:"column:setting_value;type:text"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
