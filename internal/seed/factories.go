// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"greenloop/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions tune how the seeder generates data.
type SeedOptions struct {
	// MaxDays spreads created_at timestamps over the last N days.
	MaxDays int
	// SkipBcrypt stores plaintext passwords. Dev fast mode only.
	SkipBcrypt bool
	// DryRun builds entities without writing to the database.
	DryRun bool
}

// Factory builds domain entities and persists them to the database.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	db   *gorm.DB
	opts SeedOptions
	rng  *rand.Rand
	// synthetic ID counter when running in DryRun mode
	nextID uint
}

// NewFactory creates a new Factory bound to the provided Gorm DB.
func NewFactory(db *gorm.DB, opts SeedOptions) *Factory {
	gofakeit.Seed(time.Now().UnixNano())
	return &Factory{
		db:     db,
		opts:   opts,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		nextID: 1000,
	}
}

var ecoActions = []string{
	"Biked to work instead of driving",
	"Planted a tree in the neighborhood park",
	"Switched the household to LED bulbs",
	"Organized a beach cleanup",
	"Started composting kitchen scraps",
	"Fixed a leaking tap and saved litres of water",
	"Brought reusable bags to the market",
	"Collected rainwater for the garden",
	"Repaired clothes instead of replacing them",
	"Set up a balcony herb garden",
	"Car-pooled for the weekly commute",
	"Swapped to a refillable water bottle",
}

// CreateUser constructs and persists a sample `models.User`.
// Optional override functions may modify the generated user before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username: gofakeit.Username() + fmt.Sprintf("%d", gofakeit.Number(100, 999)),
		Email:    gofakeit.Email(),
		Bio:      gofakeit.Sentence(10),
		Avatar:   fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
		Role:     models.RoleUser,
	}

	// Password handling: allow skipping bcrypt in dev fast mode
	if f.opts.SkipBcrypt {
		user.Password = "password123"
	} else {
		hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		user.Password = string(hashedPassword)
	}

	for _, override := range overrides {
		override(user)
	}

	if f.opts.DryRun {
		f.nextID++
		user.ID = f.nextID
		log.Printf("[dry-run] CreateUser: %s <%s>", user.Username, user.Email)
		return user, nil
	}

	if err := f.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// BuildPost constructs an eco-action post without persisting it. Useful for
// batching.
func (f *Factory) BuildPost(user *models.User, overrides ...func(*models.Post)) *models.Post {
	post := &models.Post{
		Title:   ecoActions[f.rng.Intn(len(ecoActions))],
		Content: gofakeit.Paragraph(1, 3, 5, "\n"),
		UserID:  user.ID,
		Status:  models.PostStatusPending,
	}

	// realistic created_at spread
	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	daysBack := f.rng.Intn(maxDays)
	hoursBack := f.rng.Intn(24)
	minsBack := f.rng.Intn(60)
	post.CreatedAt = time.Now().Add(-time.Duration(daysBack)*24*time.Hour -
		time.Duration(hoursBack)*time.Hour - time.Duration(minsBack)*time.Minute)

	if f.rng.Intn(3) != 0 {
		post.ImageURL = fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID())
	}

	for _, override := range overrides {
		override(post)
	}
	return post
}

// CreatePostsBatch persists multiple posts in a single DB call when possible.
func (f *Factory) CreatePostsBatch(posts []*models.Post) error {
	if len(posts) == 0 {
		return nil
	}
	if f.opts.DryRun {
		for _, p := range posts {
			f.nextID++
			p.ID = f.nextID
		}
		log.Printf("[dry-run] CreatePostsBatch: %d posts (no DB write)", len(posts))
		return nil
	}
	return f.db.Create(&posts).Error
}

// CreateItem constructs and persists a catalog item.
func (f *Factory) CreateItem(overrides ...func(*models.Item)) (*models.Item, error) {
	item := &models.Item{
		Name:        gofakeit.ProductName(),
		Description: gofakeit.Sentence(12),
		ImageURL:    fmt.Sprintf("https://picsum.photos/seed/item-%s/400/400", gofakeit.UUID()),
		Price:       int64(gofakeit.Number(2, 20)) * 10,
		Stock:       gofakeit.Number(0, 50),
		Active:      true,
	}

	for _, override := range overrides {
		override(item)
	}

	if f.opts.DryRun {
		f.nextID++
		item.ID = f.nextID
		log.Printf("[dry-run] CreateItem: %s (price=%d stock=%d)", item.Name, item.Price, item.Stock)
		return item, nil
	}

	if err := f.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// CreateStory constructs and persists a story. Timestamps stay inside the
// visibility window so seeded stories actually show up.
func (f *Factory) CreateStory(user *models.User, overrides ...func(*models.Story)) (*models.Story, error) {
	story := &models.Story{
		UserID:    user.ID,
		Content:   gofakeit.Sentence(8),
		ImageURL:  fmt.Sprintf("https://picsum.photos/seed/story-%s/600/900", gofakeit.UUID()),
		CreatedAt: time.Now().Add(-time.Duration(f.rng.Intn(23)) * time.Hour),
	}

	for _, override := range overrides {
		override(story)
	}

	if f.opts.DryRun {
		f.nextID++
		story.ID = f.nextID
		log.Printf("[dry-run] CreateStory for user %d", story.UserID)
		return story, nil
	}

	if err := f.db.Create(story).Error; err != nil {
		return nil, err
	}
	return story, nil
}
