package models

import "time"

// Category groups posts and drives the homepage sections.
type Category struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug           string    `gorm:"uniqueIndex;not null" json:"slug"`
	Color          string    `gorm:"not null;default:''" json:"color"`
	Icon           *string   `json:"icon"`
	Description    *string   `json:"description"`
	IsActive       bool      `gorm:"not null" json:"is_active"`
	ShowOnHomepage bool      `gorm:"not null" json:"show_on_homepage"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Region is the side of the Bosphorus a district lies on.
type Region string

const (
	RegionEurope Region = "europe"
	RegionAsia   Region = "asia"
)

// Valid reports whether r is a known region.
func (r Region) Valid() bool {
	return r == RegionEurope || r == RegionAsia
}

// District is a geographic tag for posts.
type District struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"uniqueIndex;not null" json:"name"`
	Slug     string `gorm:"uniqueIndex;not null" json:"slug"`
	Region   Region `gorm:"type:varchar(16);not null;index" json:"region"`
	IsActive bool   `gorm:"not null" json:"is_active"`
}
