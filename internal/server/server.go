package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/pzielke/todolists/internal/auth"
	"github.com/pzielke/todolists/internal/database"
	"github.com/pzielke/todolists/internal/service"
)

type Server struct {
	port  int
	lists service.ListService
	auth  *auth.Service
	db    database.Service
}

func NewServer(lists service.ListService, authService *auth.Service, dbService database.Service) *http.Server {
	portStr := os.Getenv("PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Printf("Warning: Invalid PORT environment variable '%s'. Using default 8080. Error: %v", portStr, err)
		port = 8080
	}

	appServer := &Server{
		port:  port,
		lists: lists,
		auth:  authService,
		db:    dbService,
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", appServer.port),
		Handler:      appServer.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
