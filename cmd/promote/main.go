// Command promote grants a role to an existing user, defaulting to admin.
//
// Usage:
//
//	promote <email> [role]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/threatdash/backend/internal/config"
	"github.com/threatdash/backend/internal/logger"
	"github.com/threatdash/backend/internal/models"
	"github.com/threatdash/backend/internal/repositories"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <email> [role]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	email := strings.ToLower(strings.TrimSpace(flag.Arg(0)))
	if email == "" {
		flag.Usage()
		os.Exit(2)
	}
	role := strings.TrimSpace(flag.Arg(1))
	if role == "" {
		role = models.RoleAdmin
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v\n", err)
	}
	if err := logger.Init(cfg.Logging.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v\n", err)
	}
	defer logger.Sync()

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logger.Logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		logger.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}

	userRepo := repositories.NewUserRepository(db, logger.Logger)

	user, err := userRepo.GetByEmail(ctx, email)
	if err != nil {
		logger.Logger.Fatal("User lookup failed", zap.String("email", email), zap.Error(err))
	}

	if user.HasRole(role) {
		fmt.Printf("%s already has role %q (roles: %s)\n", email, role, strings.Join(user.Roles, ","))
		return
	}

	roles := append(user.Roles, role)
	if err := userRepo.UpdateRoles(ctx, user.ID, roles); err != nil {
		logger.Logger.Fatal("Failed to update roles", zap.String("email", email), zap.Error(err))
	}

	fmt.Printf("Granted role %q to %s (roles: %s)\n", role, email, strings.Join(roles, ","))
}
