// seed-admin creates or updates the dashboard admin user.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... \
//     FARMACIA_ADMIN_PASSWORD=... go run ./cmd/seed-admin
package main

import (
	"context"
	"fmt"
	"os"

	"bitbucket.org/saluddigitalcl/farmacia_backend/config"
	"bitbucket.org/saluddigitalcl/farmacia_backend/models"
	"bitbucket.org/saluddigitalcl/farmacia_backend/utils"
	"gorm.io/gorm"
)

const (
	adminUsername = "farmaciaAdmin"
	adminName     = "Administrador Farmacia"
)

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}

	password := os.Getenv("FARMACIA_ADMIN_PASSWORD")
	if password == "" {
		fmt.Fprintln(os.Stderr, "FARMACIA_ADMIN_PASSWORD is required.")
		os.Exit(1)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}
	hashedStr := string(hashed)

	var existing models.User
	err = db.WithContext(ctx).Where("username = ?", adminUsername).First(&existing).Error
	if err != nil {
		if err != gorm.ErrRecordNotFound {
			fmt.Fprintf(os.Stderr, "failed to lookup user: %v\n", err)
			os.Exit(1)
		}
		u := models.User{
			Username:     adminUsername,
			Name:         adminName,
			PasswordHash: hashedStr,
			Role:         models.UserRoleAdmin,
			Active:       true,
		}
		if err := db.WithContext(ctx).Create(&u).Error; err != nil {
			fmt.Fprintf(os.Stderr, "failed to create admin user: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("created admin user %q (id=%d)\n", adminUsername, u.ID)
		return
	}

	updates := map[string]interface{}{
		"password_hash": hashedStr,
		"name":          adminName,
		"role":          models.UserRoleAdmin,
		"active":        true,
	}
	if err := db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		fmt.Fprintf(os.Stderr, "failed to update admin user: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("updated admin user %q (id=%d)\n", adminUsername, existing.ID)
}
