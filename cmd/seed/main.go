// Seeds the initial admin account. Safe to run repeatedly; an existing
// admin is left untouched.
package main

import (
	"errors"
	"log"
	"os"

	"gorm.io/gorm"

	"github.com/blogsite/blog-backend/internal/config"
	"github.com/blogsite/blog-backend/internal/hash"
	"github.com/blogsite/blog-backend/internal/models"
)

const adminEmail = "admin@blogsite.com"

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("ADMIN_PASSWORD is not set")
	}

	var existing models.User
	err = db.Where("email = ?", adminEmail).First(&existing).Error
	if err == nil {
		log.Printf("admin %s already exists, nothing to do", adminEmail)
		return
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Fatalf("lookup failed: %v", err)
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		log.Fatalf("hash failed: %v", err)
	}

	admin := models.User{
		Email:        adminEmail,
		PasswordHash: pwHash,
		Role:         "admin",
		IsActive:     true,
	}
	if err := db.Create(&admin).Error; err != nil {
		log.Fatalf("create failed: %v", err)
	}

	log.Printf("created admin %s (id=%d)", adminEmail, admin.ID)
}
