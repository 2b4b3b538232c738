package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/pzielke/todolists/internal/domain"
	"github.com/pzielke/todolists/internal/service"
)

type contextKey string

const userIDKey contextKey = "userID"

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.healthHandler)
	r.Post("/signin", s.signInHandler)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Post("/signout", s.signOutHandler)

		r.Route("/lists", func(r chi.Router) {
			r.Get("/", s.listsHandler)
			r.Post("/", s.createListHandler)
			r.Route("/{listID}", func(r chi.Router) {
				r.Get("/", s.listHandler)
				r.Patch("/", s.renameListHandler)
				r.Delete("/", s.deleteListHandler)
				r.Post("/complete_all", s.completeAllHandler)
				r.Post("/todos", s.createTodoHandler)
				r.Patch("/todos/{todoID}", s.toggleTodoHandler)
				r.Delete("/todos/{todoID}", s.deleteTodoHandler)
			})
		})
	})

	return r
}

// requireSession resolves the bearer token to an owner id and stashes it in
// the request context. Every list/todo operation is scoped by that id.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			respondWithError(w, http.StatusUnauthorized, "Missing session token")
			return
		}
		userID, ok := s.auth.Resolve(token)
		if !ok {
			respondWithError(w, http.StatusUnauthorized, "Invalid or expired session")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(header, "Bearer "); ok {
		return after
	}
	return ""
}

func ownerID(r *http.Request) uint {
	userID, _ := r.Context().Value(userIDKey).(uint)
	return userID
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	healthStats := s.db.Health(r.Context())
	if status, ok := healthStats["status"]; ok && status == "down" {
		respondWithJSON(w, http.StatusServiceUnavailable, healthStats)
		return
	}
	respondWithJSON(w, http.StatusOK, healthStats)
}

type signInRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) signInHandler(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, err := s.auth.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCredentials) {
			respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		log.Printf("Error signing in %q: %v", req.Username, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to sign in")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) signOutHandler(w http.ResponseWriter, r *http.Request) {
	s.auth.SignOut(bearerToken(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listsHandler(w http.ResponseWriter, r *http.Request) {
	lists, err := s.lists.SortedLists(r.Context(), ownerID(r))
	if err != nil {
		log.Printf("Error loading lists: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Failed to retrieve lists")
		return
	}
	respondWithJSON(w, http.StatusOK, lists)
}

func (s *Server) createListHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := s.lists.CreateList(r.Context(), ownerID(r), req)
	if err != nil {
		respondWithServiceError(w, err, "create list")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]uint{"id": id})
}

func (s *Server) listHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	list, err := s.lists.SortedList(r.Context(), ownerID(r), listID)
	if err != nil {
		respondWithServiceError(w, err, "load list")
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (s *Server) renameListHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	var req service.RenameListRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.lists.RenameList(r.Context(), ownerID(r), listID, req); err != nil {
		respondWithServiceError(w, err, "rename list")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteListHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	snapshot, err := s.lists.DeleteList(r.Context(), ownerID(r), listID)
	if err != nil {
		respondWithServiceError(w, err, "delete list")
		return
	}
	respondWithJSON(w, http.StatusOK, snapshot)
}

func (s *Server) completeAllHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	if err := s.lists.CompleteAll(r.Context(), ownerID(r), listID); err != nil {
		respondWithServiceError(w, err, "complete all todos")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	var req service.CreateTodoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id, err := s.lists.CreateTodo(r.Context(), ownerID(r), listID, req)
	if err != nil {
		respondWithServiceError(w, err, "create todo")
		return
	}
	respondWithJSON(w, http.StatusCreated, map[string]uint{"id": id})
}

func (s *Server) toggleTodoHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	todoID, ok := pathID(w, r, "todoID")
	if !ok {
		return
	}
	todo, err := s.lists.ToggleTodo(r.Context(), ownerID(r), listID, todoID)
	if err != nil {
		respondWithServiceError(w, err, "toggle todo")
		return
	}
	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	listID, ok := pathID(w, r, "listID")
	if !ok {
		return
	}
	todoID, ok := pathID(w, r, "todoID")
	if !ok {
		return
	}
	snapshot, err := s.lists.DeleteTodo(r.Context(), ownerID(r), listID, todoID)
	if err != nil {
		respondWithServiceError(w, err, "delete todo")
		return
	}
	respondWithJSON(w, http.StatusOK, snapshot)
}

// pathID parses a positive integer URL parameter, responding with 400 on
// anything else.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uint, bool) {
	idStr := chi.URLParam(r, name)
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s provided", name))
		return 0, false
	}
	return uint(id), true
}

// decodeJSON decodes the request body into dst, writing a descriptive 400 on
// malformed input. Returns false when a response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(dst)
	if err == nil {
		return true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset))
	case errors.Is(err, io.ErrUnexpectedEOF):
		respondWithError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Request body contains an invalid value for the %q field (at position %d)",
				unmarshalTypeError.Field, unmarshalTypeError.Offset))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
		respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Request body contains unknown field %s", fieldName))
	case errors.Is(err, io.EOF):
		respondWithError(w, http.StatusBadRequest, "Request body must not be empty")
	default:
		log.Printf("Error decoding request body: %v", err)
		respondWithError(w, http.StatusInternalServerError, "Error processing request")
	}
	return false
}

// respondWithServiceError maps the closed set of domain error kinds onto
// HTTP statuses. Anything outside the set is unexpected and reads as a 500.
func respondWithServiceError(w http.ResponseWriter, err error, op string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		respondWithError(w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, domain.ErrListNotFound), errors.Is(err, domain.ErrTodoNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateTitle):
		respondWithError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Error in %s: %v", op, err)
		respondWithError(w, http.StatusInternalServerError, "Something went wrong")
	}
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Error marshaling JSON response: %v", err)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"Internal server error preparing response"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
