package database

import "greenloop/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.Comment{},
		&models.Like{},
		&models.Story{},
		&models.StoryView{},
		&models.Item{},
		&models.ItemRedemption{},
		&models.PointEntry{},
		&models.RewardSetting{},
	}
}
