// seed inserts development sample users for local testing.
// Idempotent: skips inserts if the admin user (admin@example.com) already exists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	"asset-manager/backend/internal/config"
	"asset-manager/backend/internal/db"
	"asset-manager/backend/internal/security"
	"asset-manager/backend/internal/user/domain"
	userrepo "asset-manager/backend/internal/user/repository"
)

const (
	adminEmail   = "admin@example.com"
	managerEmail = "manager@example.com"
	auditorEmail = "auditor@example.com"
	devPassword  = "ChangeMe!12345"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	repo := userrepo.NewPostgresRepository(conn)
	ctx := context.Background()

	existing, err := repo.GetByEmail(ctx, adminEmail)
	if err != nil {
		log.Fatalf("seed check: %v", err)
	}
	if existing != nil {
		log.Println("Seed already applied (admin@example.com exists). Skipping.")
		os.Exit(0)
	}

	hasher := security.NewPasswordHasher(cfg.ScryptN, cfg.ScryptR, cfg.ScryptP)
	passwordHash, err := hasher.Hash(devPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	now := time.Now().UTC()
	seedUsers := []*domain.User{
		{Name: "IT Admin", Email: adminEmail, Role: domain.RoleITAdmin},
		{Name: "IT Manager", Email: managerEmail, Role: domain.RoleITManager},
		{Name: "Auditor", Email: auditorEmail, Role: domain.RoleAuditor},
	}
	for _, u := range seedUsers {
		u.ID = uuid.NewString()
		u.PasswordHash = passwordHash
		u.PasswordUpdatedAt = &now
		u.CreatedAt = now
		if err := repo.Create(ctx, u); err != nil {
			log.Fatalf("create %s: %v", u.Email, err)
		}
	}

	log.Println("Seed completed successfully.")
	fmt.Printf("Admin login: %s / %s\n", adminEmail, devPassword)
	fmt.Printf("Manager login: %s / %s\n", managerEmail, devPassword)
	fmt.Printf("Auditor login: %s / %s\n", auditorEmail, devPassword)
}
