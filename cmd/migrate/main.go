// Package main applies the embedded goose migrations.
//
//	migrate [-db-url URL] [-to VERSION]
//
// The connection URL defaults to DATABASE_URL (resolved through SSM outside
// the local environment). VERSION defaults to "latest".
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"fleetcare/internal/config"
	"fleetcare/internal/db"
)

func main() {
	connectionURL := flag.String("db-url", "", "URL-formatted connection string to the DB to migrate (default $DATABASE_URL)")
	version := flag.String("to", "latest", "version to migrate to, or \"latest\"")
	flag.Parse()

	url, err := resolveURL(*connectionURL)
	if err != nil {
		fmt.Println(err)
		flag.Usage()
		os.Exit(1)
	}

	if err := db.MigrateTo(context.Background(), url, *version); err != nil {
		log.Fatalf("failed to run migration: %s\n", err)
	}
	log.Printf("database migrated to %s\n", *version)
}

func resolveURL(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	_ = godotenv.Load()
	if err := config.ResolveSecrets(config.NewSSMProvider(os.Getenv("AWS_REGION"))); err != nil {
		return "", fmt.Errorf("resolving secrets: %w", err)
	}
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return "", fmt.Errorf("missing required -db-url param or DATABASE_URL")
	}
	return url, nil
}
