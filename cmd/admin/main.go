// Package main provides role management utilities for GreenLoop.
package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"greenloop/internal/config"
	"greenloop/internal/database"
	"greenloop/internal/models"

	"gorm.io/gorm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin/main.go set-role <user_id> <user|moderator|admin>  - Change a user's role")
		fmt.Println("  go run ./cmd/admin/main.go list-staff                                 - List moderators and admins")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	command := os.Args[1]

	switch command {
	case "set-role":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run ./cmd/admin/main.go set-role <user_id> <user|moderator|admin>")
			os.Exit(1)
		}
		setRole(db, os.Args[2], models.Role(os.Args[3]))

	case "list-staff":
		listStaff(db)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setRole(db *gorm.DB, userID string, role models.Role) {
	if !role.Valid() {
		fmt.Printf("Unknown role %q (expected user, moderator, or admin)\n", role)
		os.Exit(1)
	}

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fmt.Printf("User with ID %s not found\n", userID)
		} else {
			log.Fatalf("Database error: %v", err)
		}
		os.Exit(1)
	}

	if user.Role == role {
		fmt.Printf("User %s (ID: %d) is already a %s\n", user.Username, user.ID, role)
		return
	}

	user.Role = role
	if err := db.Save(&user).Error; err != nil {
		log.Fatalf("Failed to change role: %v", err)
	}

	fmt.Printf("✅ Successfully set %s (ID: %d) to %s\n", user.Username, user.ID, role)
}

func listStaff(db *gorm.DB) {
	var staff []models.User
	if err := db.Where("role IN ?", []models.Role{models.RoleModerator, models.RoleAdmin}).
		Order("role, id").Find(&staff).Error; err != nil {
		log.Fatalf("Failed to fetch staff: %v", err)
	}

	if len(staff) == 0 {
		fmt.Println("No moderators or admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Staff:")
	fmt.Println("─────────────────────────────────────")
	for _, u := range staff {
		fmt.Printf("ID: %d | Role: %-9s | Username: %s | Email: %s\n", u.ID, u.Role, u.Username, u.Email)
	}
	fmt.Println("─────────────────────────────────────")
}
