//go:build ignore

// create-user.go - Create an email/password account from the command line.
//
// Usage:
//   go run scripts/create-user.go -config config.yaml \
//     -email alice@example.com -password secret123 -credits 100000

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/luminet/hub-api/pkg/auth"
	"github.com/luminet/hub-api/pkg/config"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/pgutil"
	"github.com/luminet/hub-api/pkg/schema"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	email := flag.String("email", "", "Account email")
	password := flag.String("password", "", "Account password")
	credits := flag.Int64("credits", 0, "Starting credit balance")
	flag.Parse()

	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "-email and -password are required")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	hash, err := auth.HashPassword(*password)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
		os.Exit(1)
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	usr := &schema.User{
		ID:           schema.NewUserID(),
		Email:        email,
		PasswordHash: &hash,
		Credits:      *credits,
	}
	store := hubdb.NewStore(db)
	if err := store.CreateUser(context.Background(), usr); err != nil {
		fmt.Fprintf(os.Stderr, "failed to create user: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("created user %s (%s) with %d credits\n", usr.ID, *email, usr.Credits)
}
