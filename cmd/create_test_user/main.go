package main

import (
	"context"
	"log"
	"os"

	"task_manager/internal/db"
	"task_manager/internal/domain"
	"task_manager/internal/repository"
	"task_manager/internal/service"

	"golang.org/x/crypto/bcrypt"
)

// Seeds a dev user with the "user" role and prints a bearer token for
// manual API testing.
func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	email := os.Getenv("TEST_USER_EMAIL")
	if email == "" {
		email = "tester@example.com"
	}

	u, err := repo.GetByEmail(ctx, email)
	if err == nil {
		log.Printf("user already exists id=%d\n", u.ID)
	} else {
		hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("hash password failed: %v", err)
		}
		u = &domain.User{
			Username:     "tester",
			Email:        email,
			PasswordHash: string(hash),
		}
		if err := repo.CreateWithRole(ctx, u, domain.RoleUser); err != nil {
			log.Fatalf("create user failed: %v", err)
		}
		log.Printf("user created id=%d\n", u.ID)
	}

	perms, err := repo.Permissions(ctx, u.ID)
	if err != nil {
		log.Fatalf("resolve permissions failed: %v", err)
	}
	log.Printf("permissions=%v\n", perms)

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}
	service.InitJWT(secret)
	token, err := service.GenerateJWT(u.ID)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}
