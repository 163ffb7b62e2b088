// Package admin holds the ops-side actions of the dashboard: schema
// migration and seeding the first operator account.
package admin

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"alphamonitor/src/database"
	"alphamonitor/src/model"
	"alphamonitor/src/repository"
	"alphamonitor/src/security"
)

type Admin struct{}

// Migrate connects to the database and applies the schema. InitMainDB
// already migrates on connect; this command exists so deploys can run the
// migration step separately from serving.
func (a *Admin) Migrate() error {
	if err := database.InitMainDB(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	logger.Info("Schema migration completed")
	return nil
}

// SeedAdmin creates the configured operator account when it does not exist
// yet. Re-running is a no-op.
func (a *Admin) SeedAdmin() error {
	config := GetConfig()

	if err := database.InitMainDB(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	ctx := context.Background()
	users := repository.NewUserRepository()

	existing, err := users.FindByUsername(ctx, config.Username)
	if err != nil {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}
	if existing != nil {
		logger.WithField("username", config.Username).Info("Admin user already exists")
		return nil
	}

	hash, err := security.HashPassword(config.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	user := &model.User{
		Username:     config.Username,
		PasswordHash: hash,
		Status:       model.UserStatusActive,
	}
	if err := users.Create(ctx, user); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"username": config.Username,
		"user_id":  user.ID,
	}).Info("Admin user seeded")
	return nil
}
