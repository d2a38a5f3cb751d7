package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/landworks/cadastre/internal/user/domain"
	"gorm.io/gorm"
)

const (
	defaultAdminUsername = "admin"
	defaultAdminName     = "Cadastre Administrator"
	defaultAdminEmail    = "admin@cadastre.local"
)

// EnsureAdminUser seeds the bootstrap administrator account so a fresh
// install has someone able to manage users and approve submissions.
func EnsureAdminUser(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user userdomain.User
		err := tx.WithContext(ctx).
			Where("username = ?", defaultAdminUsername).
			First(&user).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		user = userdomain.User{
			ID:        node.Generate(),
			Username:  defaultAdminUsername,
			FullName:  defaultAdminName,
			Email:     defaultAdminEmail,
			Role:      userdomain.RoleAdministrator,
			Active:    true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.WithContext(ctx).Create(&user).Error
	})
}
