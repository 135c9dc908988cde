package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"zaalplanner/internal/auth"
	"zaalplanner/internal/config"
	"zaalplanner/internal/database"

	"github.com/rs/zerolog"
)

// setpass обновляет bcrypt-хэш пароля аккаунта напрямую в базе данных.
func main() {
	username := flag.String("username", "", "account username")
	passwordEnv := flag.String("password-env", "NEW_PASSWORD", "env var holding the new password")
	flag.Parse()

	if *username == "" {
		log.Fatal("usage: setpass -username <name> [-password-env NEW_PASSWORD]")
	}

	password := os.Getenv(*passwordEnv)
	if password == "" {
		log.Fatalf("env var %s is empty", *passwordEnv)
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	db, err := database.NewDB(cfg.Database.Path, &logger)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	if err := db.UpdateAccountPassword(context.Background(), *username, hash); err != nil {
		log.Fatalf("update password: %v", err)
	}

	fmt.Printf("password updated for %s\n", *username)
}
