package seed

import (
	"testing"
	"time"

	"greenloop/internal/models"
)

func TestBuildPost_StartsPendingWithRecentTimestamp(t *testing.T) {
	opts := SeedOptions{DryRun: true, MaxDays: 30}
	f := NewFactory(nil, opts)
	user := &models.User{ID: 1}

	p := f.BuildPost(user)
	if p.Status != models.PostStatusPending {
		t.Fatalf("expected pending status, got %s", p.Status)
	}
	if p.Title == "" || p.Content == "" {
		t.Fatalf("expected generated title and content")
	}
	if p.UserID != user.ID {
		t.Fatalf("expected author %d, got %d", user.ID, p.UserID)
	}

	// timestamp should be within MaxDays
	if time.Since(p.CreatedAt) > (time.Duration(opts.MaxDays)+1)*24*time.Hour {
		t.Fatalf("created_at too old: %v", p.CreatedAt)
	}
}

func TestCreateUser_DryRunAssignsSyntheticID(t *testing.T) {
	f := NewFactory(nil, SeedOptions{DryRun: true, SkipBcrypt: true})

	u1, err := f.CreateUser()
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	u2, err := f.CreateUser()
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	if u1.ID == 0 || u2.ID == 0 {
		t.Fatalf("expected synthetic IDs, got %d and %d", u1.ID, u2.ID)
	}
	if u1.ID == u2.ID {
		t.Fatalf("expected distinct IDs, both %d", u1.ID)
	}
	if u1.Role != models.RoleUser {
		t.Fatalf("expected seeded users to start as regular users, got %s", u1.Role)
	}
}

func TestCreateItem_DryRunProducesRedeemableItems(t *testing.T) {
	f := NewFactory(nil, SeedOptions{DryRun: true})

	item, err := f.CreateItem()
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.Price <= 0 {
		t.Fatalf("expected positive price, got %d", item.Price)
	}
	if !item.Active {
		t.Fatalf("expected new items to start active")
	}
}

func TestCreateStory_DryRunStaysInsideWindow(t *testing.T) {
	f := NewFactory(nil, SeedOptions{DryRun: true})
	user := &models.User{ID: 7}

	story, err := f.CreateStory(user)
	if err != nil {
		t.Fatalf("CreateStory: %v", err)
	}
	if !story.ActiveAt(time.Now()) {
		t.Fatalf("seeded story already expired: created %v", story.CreatedAt)
	}
}
