package main

import (
	"context" // Store calls
	"errors"  // Error matching
	"flag"    // Command line flags
	"os"      // Exit codes

	"coupon_tracker/internal/auth"   // Email normalization
	"coupon_tracker/internal/config" // Custom import path (Config)
	"coupon_tracker/internal/db"     // Custom import path (Database)
	"coupon_tracker/internal/domain" // Domain models
	"coupon_tracker/internal/store"  // User store
	"coupon_tracker/internal/utils"  // Password hashing

	"github.com/google/uuid"     // User identifiers
	"github.com/sirupsen/logrus" // Logrus for structured logging
)

// Creates or resets a verified user so it can sign in without the email round trip
func main() {
	email := flag.String("email", "", "user email")
	password := flag.String("password", "", "user password")
	name := flag.String("name", "", "optional display name")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *email == "" || *password == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.LoadConfig() // Load configuration
	if cfg.DBDriver == config.DriverMemory {
		logrus.Fatal("seeduser needs a SQL database, DB_DRIVER is memory")
	}
	conn, err := db.Open(cfg)
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		logrus.Fatal(err)
	}
	if err := seed(context.Background(), store.NewGormUserStore(conn), *email, *password, *name, cfg.BcryptCost); err != nil {
		logrus.Fatal(err)
	}
}

// seed stores a verified user with the given credentials, overwriting the
// password and verification state of an existing one
func seed(ctx context.Context, users store.UserStore, email, password, name string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	email = auth.NormalizeEmail(email)
	u, err := users.GetByEmail(ctx, email)
	switch {
	case errors.Is(err, store.ErrNotFound):
		u = &domain.User{ID: uuid.New(), Email: email, PasswordHash: &hash, IsVerified: true}
		if name != "" {
			u.Name = &name
		}
		if err := users.Create(ctx, u); err != nil {
			return err
		}
		logrus.WithField("email", email).Info("Verified user created")
		return nil
	case err != nil:
		return err
	}
	u.PasswordHash = &hash
	u.IsVerified = true
	u.ClearOTP()
	if name != "" {
		u.Name = &name
	}
	if err := users.Save(ctx, u); err != nil {
		return err
	}
	logrus.WithField("email", email).Info("Existing user reset to verified")
	return nil
}
