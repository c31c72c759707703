package seed

import (
	"context"
	"fmt"
	"strconv"

	"istancool/internal/middleware"
	"istancool/internal/models"
	"istancool/internal/repository"
	"istancool/internal/slug"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password of every seeded demo user.
const DemoPassword = "password123"

// Options configures the demo seeder.
type Options struct {
	NumUsers int
	NumPosts int
	// Seed makes the generated content reproducible; zero picks a random one.
	Seed int64
	// PasswordCost overrides bcrypt.DefaultCost; tests use bcrypt.MinCost.
	PasswordCost int
}

// Stats reports what Demo created.
type Stats struct {
	Users      int
	Categories int
	Posts      int
}

// Istanbul's rough bounding box, for map markers.
const (
	minLat, maxLat = 40.85, 41.25
	minLng, maxLng = 28.60, 29.40
)

// DemoCategories are created by Demo when missing.
var DemoCategories = []struct {
	Name  string
	Color string
	Icon  string
}{
	{"Gezi", "#0ea5e9", "map"},
	{"Yeme & İçme", "#f97316", "utensils"},
	{"Kültür Sanat", "#a855f7", "palette"},
	{"Tarih", "#b45309", "landmark"},
	{"Doğa", "#16a34a", "trees"},
	{"Gece Hayatı", "#e11d48", "moon"},
}

// Seeder writes demo content through the repositories so slugs are resolved
// the same way the API resolves them.
type Seeder struct {
	db         *gorm.DB
	faker      *gofakeit.Faker
	opts       Options
	users      repository.UserRepository
	categories repository.CategoryRepository
	districts  repository.DistrictRepository
	posts      repository.PostRepository
}

// NewSeeder binds a Seeder to db.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}
	return &Seeder{
		db:         db,
		faker:      gofakeit.New(opts.Seed),
		opts:       opts,
		users:      repository.NewUserRepository(db),
		categories: repository.NewCategoryRepository(db),
		districts:  repository.NewDistrictRepository(db),
		posts:      repository.NewPostRepository(db),
	}
}

// Demo seeds districts, the demo categories, users and posts.
func (s *Seeder) Demo(ctx context.Context) (*Stats, error) {
	if _, err := Districts(ctx, s.db); err != nil {
		return nil, err
	}

	categories, err := s.ensureCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("categories: %w", err)
	}
	districts, err := s.districts.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("districts: %w", err)
	}

	users, err := s.createUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("users: %w", err)
	}

	stats := &Stats{Users: len(users), Categories: len(categories)}
	if len(users) == 0 {
		return stats, nil
	}

	for i := 0; i < s.opts.NumPosts; i++ {
		author := users[s.faker.Number(0, len(users)-1)]
		category := categories[s.faker.Number(0, len(categories)-1)]
		post := s.buildPost(author, category)
		if len(districts) > 0 && s.faker.Bool() {
			id := districts[s.faker.Number(0, len(districts)-1)].ID
			post.DistrictID = &id
		}
		if err := s.posts.Create(ctx, post); err != nil {
			return nil, fmt.Errorf("post %d: %w", i, err)
		}
		stats.Posts++
	}

	middleware.Logger.InfoContext(ctx, "demo data seeded",
		"users", stats.Users, "categories", stats.Categories, "posts", stats.Posts)
	return stats, nil
}

func (s *Seeder) ensureCategories(ctx context.Context) ([]models.Category, error) {
	out := make([]models.Category, 0, len(DemoCategories))
	for i, item := range DemoCategories {
		existing, err := s.categories.GetBySlug(ctx, slug.Make(item.Name))
		if err != nil {
			return nil, err
		}
		if existing != nil {
			out = append(out, *existing)
			continue
		}
		icon := item.Icon
		description := s.faker.Sentence(10)
		category := &models.Category{
			Name:           item.Name,
			Slug:           slug.Make(item.Name),
			Color:          item.Color,
			Icon:           &icon,
			Description:    &description,
			IsActive:       true,
			ShowOnHomepage: i < 4,
		}
		if err := s.categories.Create(ctx, category); err != nil {
			return nil, err
		}
		out = append(out, *category)
	}
	return out, nil
}

func (s *Seeder) createUsers(ctx context.Context) ([]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), s.opts.PasswordCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, s.opts.NumUsers)
	for i := 0; i < s.opts.NumUsers; i++ {
		role := models.RoleUser
		if i%10 == 0 {
			role = models.RoleEditor
		}
		first, last := s.faker.FirstName(), s.faker.LastName()
		user := &models.User{
			Email:          models.NormalizeEmail(fmt.Sprintf("%s.%s.%d@istancool.local", slug.Make(first), slug.Make(last), i)),
			FirstName:      first,
			LastName:       last,
			HashedPassword: string(hash),
			Role:           role,
			IsActive:       true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, nil
}

func (s *Seeder) buildPost(author models.User, category models.Category) *models.Post {
	title := s.faker.Sentence(s.faker.Number(3, 7))
	intro := s.faker.Paragraph(1, 3, 12, " ")

	blocks := models.Blocks{
		{Type: models.BlockText, Content: intro},
		{Type: models.BlockHeading, Level: 2, Content: s.faker.Sentence(4)},
		{Type: models.BlockParagraph, Content: s.faker.Paragraph(2, 4, 14, " ")},
		{
			Type:    models.BlockImage,
			Src:     fmt.Sprintf("https://picsum.photos/seed/%s/1200/800", s.faker.UUID()),
			Alt:     title,
			Caption: s.faker.Sentence(6),
		},
		{Type: models.BlockList, Items: []string{s.faker.Sentence(5), s.faker.Sentence(5), s.faker.Sentence(5)}},
	}

	cover := fmt.Sprintf("https://picsum.photos/seed/%s/1200/800", s.faker.UUID())
	status := models.PostApproved
	switch s.faker.Number(0, 9) {
	case 0:
		status = models.PostRejected
	case 1, 2:
		status = models.PostPending
	}

	post := &models.Post{
		Title:      title,
		Slug:       slug.MakeOr(title, "post"),
		Content:    &intro,
		CoverImage: &cover,
		Status:     status,
		IsActive:   true,
		IsFeatured: status == models.PostApproved && s.faker.Number(0, 4) == 0,
		Blocks:     blocks,
		CategoryID: category.ID,
		AuthorID:   author.ID,
	}
	if s.faker.Bool() {
		lat := strconv.FormatFloat(s.faker.Float64Range(minLat, maxLat), 'f', 6, 64)
		lng := strconv.FormatFloat(s.faker.Float64Range(minLng, maxLng), 'f', 6, 64)
		post.Latitude, post.Longitude = &lat, &lng
	}
	return post
}

// Clean deletes posts, categories and users. Districts are reference data and
// stay.
func (s *Seeder) Clean(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.Post{}, &models.Category{}, &models.User{}} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
