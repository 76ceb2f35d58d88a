// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strconv"
	"time"

	"greenloop/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers   int
	NumPosts   int
	NumItems   int
	NumStories int
}

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
	rng     *rand.Rand
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{
		db:      db,
		factory: NewFactory(db, SeedOptions{MaxDays: 60}),
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ClearAll removes all seeded data. Tables are truncated children-first so
// foreign keys never block the cleanup.
func (s *Seeder) ClearAll() error {
	log.Println("🧹 Clearing existing data...")
	tables := []string{
		"story_views", "stories",
		"likes", "comments",
		"item_redemptions", "point_entries",
		"reward_settings", "items",
		"posts", "users",
	}
	for _, table := range tables {
		if err := s.db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

// Seed populates the database end to end: staff and regular users, the
// catalog, reward settings, a moderated post history with matching ledger
// entries, engagement, stories, and a few redemptions.
func (s *Seeder) Seed(opts Options) error {
	if opts.NumUsers <= 0 {
		opts.NumUsers = 50
	}
	if opts.NumPosts <= 0 {
		opts.NumPosts = 200
	}
	if opts.NumItems <= 0 {
		opts.NumItems = 12
	}
	if opts.NumStories <= 0 {
		opts.NumStories = 30
	}

	staff, err := s.seedStaff()
	if err != nil {
		return fmt.Errorf("seed staff: %w", err)
	}
	log.Printf("✓ %d staff accounts created", len(staff))

	users, err := s.seedUsers(opts.NumUsers)
	if err != nil {
		return fmt.Errorf("seed users: %w", err)
	}
	log.Printf("✓ %d users created", len(users))

	items, err := s.seedCatalog(opts.NumItems)
	if err != nil {
		return fmt.Errorf("seed catalog: %w", err)
	}
	log.Printf("✓ %d catalog items created", len(items))

	if err := s.seedSettings(staff[0], items); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	log.Println("✓ reward settings created")

	posts, err := s.seedPosts(users, staff, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("seed posts: %w", err)
	}
	log.Printf("✓ %d posts created", len(posts))

	if err := s.seedEngagement(users, posts); err != nil {
		return fmt.Errorf("seed engagement: %w", err)
	}
	log.Println("✓ likes and comments created")

	if err := s.seedStories(users, opts.NumStories); err != nil {
		return fmt.Errorf("seed stories: %w", err)
	}
	log.Printf("✓ %d stories created", opts.NumStories)

	if err := s.seedRedemptions(users, items); err != nil {
		return fmt.Errorf("seed redemptions: %w", err)
	}
	log.Println("✓ redemptions created")

	return nil
}

// seedStaff creates one admin and two moderators with predictable logins.
func (s *Seeder) seedStaff() ([]*models.User, error) {
	hashed, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)

	accounts := []struct {
		username string
		email    string
		role     models.Role
	}{
		{"admin", "admin@greenloop.dev", models.RoleAdmin},
		{"mod_flora", "flora@greenloop.dev", models.RoleModerator},
		{"mod_basil", "basil@greenloop.dev", models.RoleModerator},
	}

	staff := make([]*models.User, 0, len(accounts))
	for _, a := range accounts {
		user := &models.User{
			Username: a.username,
			Email:    a.email,
			Password: string(hashed),
			Bio:      gofakeit.Sentence(8),
			Role:     a.role,
		}
		if err := s.db.Create(user).Error; err != nil {
			return nil, err
		}
		staff = append(staff, user)
	}
	return staff, nil
}

func (s *Seeder) seedUsers(n int) ([]*models.User, error) {
	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		user, err := s.factory.CreateUser()
		if err != nil {
			return nil, err
		}
		// Everyone starts with the signup bonus on the ledger
		entry := &models.PointEntry{
			UserID:    user.ID,
			Delta:     25,
			Reason:    models.ReasonSignupBonus,
			CreatedAt: user.CreatedAt,
		}
		if err := s.db.Create(entry).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func (s *Seeder) seedCatalog(n int) ([]*models.Item, error) {
	items := make([]*models.Item, 0, n)
	for i := 0; i < n; i++ {
		item, err := s.factory.CreateItem(func(it *models.Item) {
			// A couple of retired items to exercise the inactive path
			if i%6 == 5 {
				it.Active = false
			}
		})
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *Seeder) seedSettings(admin *models.User, items []*models.Item) error {
	settings := []models.RewardSetting{
		{Kind: models.SettingDefaultReward, Key: "default", Value: 10, UpdatedBy: &admin.ID},
		{Kind: models.SettingActionReward, Key: models.ReasonPostApproved, Value: 10, UpdatedBy: &admin.ID},
		{Kind: models.SettingActionReward, Key: models.ReasonSignupBonus, Value: 25, UpdatedBy: &admin.ID},
		{Kind: models.SettingStreakMilestone, Key: "3", Value: 15, UpdatedBy: &admin.ID},
		{Kind: models.SettingStreakMilestone, Key: "7", Value: 50, UpdatedBy: &admin.ID},
	}

	// Put one item on sale through a gift price override
	if len(items) > 0 {
		settings = append(settings, models.RewardSetting{
			Kind:      models.SettingGiftPrice,
			Key:       strconv.FormatUint(uint64(items[0].ID), 10),
			Value:     items[0].Price / 2,
			UpdatedBy: &admin.ID,
		})
	}

	return s.db.Create(&settings).Error
}

// seedPosts creates a moderated history: most posts approved with review
// metadata and a matching ledger award, some rejected, the rest pending.
func (s *Seeder) seedPosts(users, staff []*models.User, n int) ([]*models.Post, error) {
	posts := make([]*models.Post, 0, n)
	for i := 0; i < n; i++ {
		author := users[s.rng.Intn(len(users))]
		posts = append(posts, s.factory.BuildPost(author))
	}
	if err := s.factory.CreatePostsBatch(posts); err != nil {
		return nil, err
	}

	var entries []models.PointEntry
	for _, post := range posts {
		roll := s.rng.Intn(10)
		if roll < 2 {
			continue // stays pending
		}

		reviewer := staff[1+s.rng.Intn(len(staff)-1)]
		reviewedAt := post.CreatedAt.Add(time.Duration(1+s.rng.Intn(48)) * time.Hour)
		status := models.PostStatusApproved
		if roll < 3 {
			status = models.PostStatusRejected
		}

		if err := s.db.Model(post).Updates(map[string]interface{}{
			"status":      status,
			"reviewed_by": reviewer.ID,
			"reviewed_at": reviewedAt,
		}).Error; err != nil {
			return nil, err
		}
		post.Status = status

		if status == models.PostStatusApproved {
			entries = append(entries, models.PointEntry{
				UserID:      post.UserID,
				ActorID:     &reviewer.ID,
				Delta:       10,
				Reason:      models.ReasonPostApproved,
				ReferenceID: &post.ID,
				CreatedAt:   reviewedAt,
			})
		}
	}

	if len(entries) > 0 {
		if err := s.db.Create(&entries).Error; err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (s *Seeder) seedEngagement(users []*models.User, posts []*models.Post) error {
	var likes []models.Like
	var comments []models.Comment

	for _, post := range posts {
		if post.Status != models.PostStatusApproved {
			continue
		}

		seen := map[uint]bool{}
		for i := 0; i < s.rng.Intn(8); i++ {
			fan := users[s.rng.Intn(len(users))]
			if seen[fan.ID] {
				continue
			}
			seen[fan.ID] = true
			likes = append(likes, models.Like{UserID: fan.ID, PostID: post.ID})
		}

		for i := 0; i < s.rng.Intn(4); i++ {
			commenter := users[s.rng.Intn(len(users))]
			comments = append(comments, models.Comment{
				UserID:  commenter.ID,
				PostID:  post.ID,
				Content: gofakeit.Sentence(10),
			})
		}
	}

	if len(likes) > 0 {
		if err := s.db.Create(&likes).Error; err != nil {
			return err
		}
	}
	if len(comments) > 0 {
		if err := s.db.Create(&comments).Error; err != nil {
			return err
		}
	}
	return nil
}

func (s *Seeder) seedStories(users []*models.User, n int) error {
	for i := 0; i < n; i++ {
		author := users[s.rng.Intn(len(users))]
		story, err := s.factory.CreateStory(author)
		if err != nil {
			return err
		}

		seen := map[uint]bool{author.ID: true}
		for j := 0; j < s.rng.Intn(6); j++ {
			viewer := users[s.rng.Intn(len(users))]
			if seen[viewer.ID] {
				continue
			}
			seen[viewer.ID] = true
			view := models.StoryView{StoryID: story.ID, ViewerID: viewer.ID}
			if err := s.db.Create(&view).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// seedRedemptions spends points for a handful of users, keeping the ledger
// debit, the redemption row, and the stock decrement consistent.
func (s *Seeder) seedRedemptions(users []*models.User, items []*models.Item) error {
	active := make([]*models.Item, 0, len(items))
	for _, it := range items {
		if it.Active && it.Stock > 0 {
			active = append(active, it)
		}
	}
	if len(active) == 0 {
		return nil
	}

	for i := 0; i < len(users)/5; i++ {
		user := users[s.rng.Intn(len(users))]
		item := active[s.rng.Intn(len(active))]

		var balance int64
		if err := s.db.Model(&models.PointEntry{}).
			Where("user_id = ?", user.ID).
			Select("COALESCE(SUM(delta), 0)").Scan(&balance).Error; err != nil {
			return err
		}
		if balance < item.Price || item.Stock == 0 {
			continue
		}

		err := s.db.Transaction(func(tx *gorm.DB) error {
			entry := models.PointEntry{
				UserID:      user.ID,
				Delta:       -item.Price,
				Reason:      models.ReasonRedemption,
				ReferenceID: &item.ID,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			redemption := models.ItemRedemption{
				UserID:      user.ID,
				ItemID:      item.ID,
				PointsSpent: item.Price,
			}
			if err := tx.Create(&redemption).Error; err != nil {
				return err
			}
			return tx.Model(item).Update("stock", gorm.Expr("stock - 1")).Error
		})
		if err != nil {
			return err
		}
		item.Stock--
	}
	return nil
}
