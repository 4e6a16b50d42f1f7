package database

import (
	"github.com/nathanctay/instafetch/pkg/internal/models"
	"gorm.io/gorm"
)

var AutoMaintainRange = []any{
	&models.Account{},
	&models.Post{},
	&models.Media{},
	&models.Settings{},
	&models.Digest{},
	&models.DigestEntry{},
}

func RunMigration(source *gorm.DB) error {
	if err := source.AutoMigrate(AutoMaintainRange...); err != nil {
		return err
	}

	return nil
}
