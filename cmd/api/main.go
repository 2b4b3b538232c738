package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/pzielke/todolists/internal/auth"
	"github.com/pzielke/todolists/internal/database"
	"github.com/pzielke/todolists/internal/domain"
	"github.com/pzielke/todolists/internal/server"
	"github.com/pzielke/todolists/internal/service"
	"github.com/pzielke/todolists/internal/store"
	"gorm.io/gorm"
)

func gracefulShutdown(apiServer *http.Server, dbService database.Service, done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Println("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctxTimeout, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctxTimeout); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	if dbService != nil {
		log.Println("Closing database connection pool...")
		if err := dbService.Close(); err != nil {
			log.Printf("Error closing database connection pool: %v", err)
		}
	}

	log.Println("Server exiting")
	done <- true
}

// seedUser creates the account named by TODOS_SEED_USER/TODOS_SEED_PASSWORD
// when it does not exist yet. Useful for a fresh development database.
func seedUser(db *gorm.DB) error {
	username := os.Getenv("TODOS_SEED_USER")
	password := os.Getenv("TODOS_SEED_PASSWORD")
	if username == "" || password == "" {
		return nil
	}

	var existing domain.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	log.Printf("Seeding user %q", username)
	return db.Create(&domain.User{Username: username, PasswordHash: hash}).Error
}

func main() {
	dbService := database.New()
	db := dbService.DB()

	log.Println("Running database auto-migration...")
	err := db.AutoMigrate(&domain.User{}, &domain.TodoList{}, &domain.Todo{})
	if err != nil {
		log.Fatalf("Failed to auto-migrate database: %v", err)
	}

	if err := seedUser(db); err != nil {
		log.Fatalf("Failed to seed user: %v", err)
	}

	todoStore := store.New(db)
	authService := auth.NewService(todoStore)
	listService := service.NewListService(todoStore)

	apiServer := server.NewServer(listService, authService, dbService)

	done := make(chan bool, 1)
	go gracefulShutdown(apiServer, dbService, done)

	log.Printf("Starting server on %s", apiServer.Addr)
	err = apiServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("HTTP server ListenAndServe error: %v", err)
	}

	<-done
	log.Println("Graceful shutdown complete.")
}
