// cmd/adduser/main.go
// Creates or updates a user in the database.
//
// Usage:
//
//	go run ./cmd/adduser -username padraic -password testing -editor
package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/padraicbc/oresults/config"
	bundb "github.com/padraicbc/oresults/db"
	"github.com/padraicbc/oresults/handlers"
	"github.com/padraicbc/oresults/models"
)

func main() {
	username := flag.String("username", "", "username (required)")
	password := flag.String("password", "", "plain-text password (required)")
	editor := flag.Bool("editor", false, "allow result corrections")
	flag.Parse()

	hash, err := handlers.HashPasswordForUser(*username, *password)
	if err != nil {
		log.Fatal(err)
	}

	cfg := config.LoadTool()
	db := bundb.Setup(cfg)
	defer db.Close()

	ctx := context.Background()
	if err := bundb.CreateTables(ctx, db); err != nil {
		log.Fatal("create tables:", err)
	}

	user := &models.User{
		Username: *username,
		Password: hash,
		Editor:   *editor,
	}
	if err := bundb.SaveUser(ctx, db, user); err != nil {
		log.Fatal("insert user:", err)
	}

	fmt.Printf("user %q saved (editor=%t)\n", *username, *editor)
}
