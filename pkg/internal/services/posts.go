package services

import (
	"github.com/nathanctay/instafetch/pkg/internal/database"
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"gorm.io/gorm"
)

func FilterPostWithAccount(tx *gorm.DB, accountID uint) *gorm.DB {
	return tx.Where("account_id = ?", accountID)
}

func GetPost(id uint) (models.Post, error) {
	var item models.Post
	if err := database.C.
		Preload("Media").
		Preload("Account").
		Where("id = ?", id).
		First(&item).Error; err != nil {
		return item, err
	}
	return item, nil
}

func CountPost(tx *gorm.DB) (int64, error) {
	var count int64
	if err := tx.Model(&models.Post{}).Count(&count).Error; err != nil {
		return count, err
	}
	return count, nil
}

func ListPost(tx *gorm.DB, take int, offset int) ([]models.Post, error) {
	if take > 100 {
		take = 100
	}

	var items []models.Post
	if err := tx.
		Preload("Media").
		Preload("Account").
		Limit(take).Offset(offset).
		Order("published_at DESC").
		Find(&items).Error; err != nil {
		return items, err
	}
	return items, nil
}

// DeletePost removes a post with its media and digest membership; the
// digest itself stays.
func DeletePost(item models.Post) error {
	return database.C.Delete(&item).Error
}
