package models

import "time"

// PostStatus is the moderation state of a post.
type PostStatus string

const (
	PostPending  PostStatus = "pending"
	PostApproved PostStatus = "approved"
	PostRejected PostStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s PostStatus) Valid() bool {
	switch s {
	case PostPending, PostApproved, PostRejected:
		return true
	default:
		return false
	}
}

// Post is a blog entry. Status moves only through explicit approve/reject;
// IsActive and IsFeatured are independent of it.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"not null;index" json:"title"`
	Slug          string     `gorm:"uniqueIndex;not null" json:"slug"`
	Content       *string    `gorm:"type:text" json:"content"`
	CoverImage    *string    `json:"cover_image"`
	Status        PostStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	IsActive      bool       `gorm:"not null" json:"is_active"`
	IsFeatured    bool       `gorm:"not null;index" json:"is_featured"`
	FeaturedOrder *int       `json:"featured_order"`
	Latitude      *string    `json:"latitude"`
	Longitude     *string    `json:"longitude"`
	Blocks        Blocks     `json:"blocks"`
	CategoryID    uint       `gorm:"not null;index" json:"category_id"`
	Category      *Category  `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT" json:"category,omitempty"`
	DistrictID    *uint      `gorm:"index" json:"district_id"`
	District      *District  `gorm:"foreignKey:DistrictID;constraint:OnDelete:SET NULL" json:"district,omitempty"`
	AuthorID      uint       `gorm:"not null;index" json:"author_id"`
	Author        *User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// HasLocation reports whether both coordinates are set.
func (p *Post) HasLocation() bool {
	return p.Latitude != nil && p.Longitude != nil && *p.Latitude != "" && *p.Longitude != ""
}

// CategoryName is the embedded category reference of FeaturedPost.
type CategoryName struct {
	Name string `json:"name"`
}

// FeaturedPost is the homepage card shape of a featured post.
type FeaturedPost struct {
	ID         uint          `json:"id"`
	Title      string        `json:"title"`
	CoverImage *string       `json:"cover_image"`
	Category   *CategoryName `json:"category"`
	Summary    string        `json:"summary"`
	Slug       string        `json:"slug"`
}

// MapPost is the marker shape served to the map view.
type MapPost struct {
	ID            uint    `json:"id"`
	Title         string  `json:"title"`
	Content       *string `json:"content"`
	CoverImage    *string `json:"cover_image"`
	Latitude      string  `json:"latitude"`
	Longitude     string  `json:"longitude"`
	CategoryID    uint    `json:"category_id"`
	CategoryName  string  `json:"category_name"`
	CategoryColor *string `json:"category_color"`
}

// PostEvent is published to the moderation feed.
type PostEvent struct {
	Type     string     `json:"type"`
	PostID   uint       `json:"post_id"`
	Slug     string     `json:"slug"`
	Title    string     `json:"title"`
	Status   PostStatus `json:"status"`
	AuthorID uint       `json:"author_id"`
	ActorID  uint       `json:"actor_id"`
	At       time.Time  `json:"at"`
}

// Post event types.
const (
	EventPostCreated  = "post.created"
	EventPostApproved = "post.approved"
	EventPostRejected = "post.rejected"
	EventPostDeleted  = "post.deleted"
)
