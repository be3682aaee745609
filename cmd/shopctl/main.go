package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/georgemunganga/shopu-backend/internal/config"
	"github.com/georgemunganga/shopu-backend/internal/modules/auth"
	"github.com/georgemunganga/shopu-backend/internal/modules/user"
	"github.com/georgemunganga/shopu-backend/internal/platform/database"
	"go.uber.org/zap"
)

const usage = "expected 'token' or 'grant-admin' subcommand"

func main() {
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	tokenEmail := tokenCmd.String("email", "", "Email to sign the token for")
	tokenTTL := tokenCmd.Duration("ttl", 24*time.Hour, "Token lifetime")

	adminCmd := flag.NewFlagSet("grant-admin", flag.ExitOnError)
	adminEmail := adminCmd.String("email", "", "Email of the account to promote")

	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	switch os.Args[1] {
	case "token":
		tokenCmd.Parse(os.Args[2:])
		if *tokenEmail == "" {
			fmt.Println("email is required")
			tokenCmd.PrintDefaults()
			os.Exit(1)
		}
		token, err := auth.NewService(nil, cfg.JWTSecret).IssueToken(*tokenEmail, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to sign token: %v", err)
		}
		fmt.Println(token)
	case "grant-admin":
		adminCmd.Parse(os.Args[2:])
		if *adminEmail == "" {
			fmt.Println("email is required")
			adminCmd.PrintDefaults()
			os.Exit(1)
		}
		grantAdmin(cfg, *adminEmail)
	default:
		fmt.Println(usage)
		os.Exit(1)
	}
}

// grantAdmin works against PostgreSQL only; the memory store lives inside
// the API process.
func grantAdmin(cfg *config.Config, email string) {
	if cfg.StoreDriver != config.DriverPostgres {
		log.Fatalf("grant-admin needs STORE_DRIVER=%s", config.DriverPostgres)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatalf("Failed to init schema: %v", err)
	}

	repo := user.NewPostgresRepository(db, nil, zap.NewNop())
	u, err := repo.GetUser(ctx, email)
	if errors.Is(err, user.ErrUserNotFound) {
		u, err = &user.User{Email: user.NormalizeEmail(email)}, nil
	}
	if err != nil {
		log.Fatalf("Failed to load user: %v", err)
	}
	u.Role = user.RoleAdmin
	u.WorkerSince = nil
	if err := repo.SaveUser(ctx, u); err != nil {
		log.Fatalf("Failed to save user: %v", err)
	}
	fmt.Printf("%s is now an admin\n", u.Email)
}
