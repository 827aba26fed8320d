//go:build ignore

// grant-credits.go - Credit a user's balance directly, bypassing Stripe.
//
// Usage:
//   go run scripts/grant-credits.go -config config.yaml -user u_abc123 -credits 100000

package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/luminet/hub-api/pkg/config"
	"github.com/luminet/hub-api/pkg/hubdb"
	"github.com/luminet/hub-api/pkg/pgutil"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "Path to configuration file")
	userID := flag.String("user", "", "User id to credit")
	credits := flag.Int64("credits", 0, "Credits to grant")
	flag.Parse()

	if *userID == "" || *credits <= 0 {
		fmt.Fprintln(os.Stderr, "-user and a positive -credits are required")
		os.Exit(1)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	store := hubdb.NewStore(db)
	newBalance, err := store.Credit(context.Background(), *userID, *credits)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to grant credits: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("granted %d credits to %s, new balance %d\n", *credits, *userID, newBalance)
}
