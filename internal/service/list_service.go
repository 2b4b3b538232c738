// Package service applies input validation ahead of the store and maps
// domain entities to the response shapes handlers serialize.
package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/pzielke/todolists/internal/domain"
	"github.com/pzielke/todolists/internal/store"
)

// maxTitleLen is the longest accepted title, measured in runes after
// trimming.
const maxTitleLen = 100

// CreateListRequest holds the payload for creating a list.
type CreateListRequest struct {
	Title string `json:"title"`
}

// RenameListRequest holds the payload for renaming a list.
type RenameListRequest struct {
	Title string `json:"title"`
}

// CreateTodoRequest holds the payload for adding a todo to a list.
type CreateTodoRequest struct {
	Title string `json:"title"`
}

// TodoResponse is the serialized form of one todo.
type TodoResponse struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
	Done  bool   `json:"done"`
}

// ListResponse is the serialized form of one list including its todos in
// display order and the computed completion metadata.
type ListResponse struct {
	ID        uint           `json:"id"`
	Title     string         `json:"title"`
	Length    int            `json:"length"`
	CountDone int            `json:"count_done"`
	Done      bool           `json:"done"`
	Todos     []TodoResponse `json:"todos"`
}

// ListService is the operation surface request handlers depend on. Every
// mutation round-trips through the store; nothing is cached between calls.
type ListService interface {
	SortedLists(ctx context.Context, userID uint) ([]store.ListSummary, error)
	SortedList(ctx context.Context, userID, listID uint) (*ListResponse, error)
	CreateList(ctx context.Context, userID uint, req CreateListRequest) (uint, error)
	RenameList(ctx context.Context, userID, listID uint, req RenameListRequest) error
	DeleteList(ctx context.Context, userID, listID uint) (*ListResponse, error)
	CreateTodo(ctx context.Context, userID, listID uint, req CreateTodoRequest) (uint, error)
	ToggleTodo(ctx context.Context, userID, listID, todoID uint) (*TodoResponse, error)
	CompleteAll(ctx context.Context, userID, listID uint) error
	DeleteTodo(ctx context.Context, userID, listID, todoID uint) (*TodoResponse, error)
}

type listService struct {
	store store.TodoStore
}

func NewListService(st store.TodoStore) ListService {
	return &listService{store: st}
}

// normalizeTitle trims surrounding whitespace and enforces the emptiness and
// length rules. Validation failures never reach the store.
func normalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", &domain.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", &domain.ValidationError{Field: "title", Reason: "must be at most 100 characters"}
	}
	return title, nil
}

func toListResponse(list *domain.TodoList) *ListResponse {
	resp := &ListResponse{
		ID:        list.ID,
		Title:     list.Title,
		Length:    list.Len(),
		CountDone: list.CountDone(),
		Done:      list.IsDone(),
		Todos:     make([]TodoResponse, 0, list.Len()),
	}
	for i := range list.Todos {
		t := &list.Todos[i]
		resp.Todos = append(resp.Todos, TodoResponse{ID: t.ID, Title: t.Title, Done: t.Done})
	}
	return resp
}

func (s *listService) SortedLists(ctx context.Context, userID uint) ([]store.ListSummary, error) {
	return s.store.SortedLists(ctx, userID)
}

func (s *listService) SortedList(ctx context.Context, userID, listID uint) (*ListResponse, error) {
	list, err := s.store.SortedList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	return toListResponse(list), nil
}

func (s *listService) CreateList(ctx context.Context, userID uint, req CreateListRequest) (uint, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return 0, err
	}
	return s.store.AddList(ctx, userID, title)
}

func (s *listService) RenameList(ctx context.Context, userID, listID uint, req RenameListRequest) error {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return err
	}
	return s.store.SetListTitle(ctx, userID, listID, title)
}

func (s *listService) DeleteList(ctx context.Context, userID, listID uint) (*ListResponse, error) {
	snapshot, err := s.store.RemoveList(ctx, userID, listID)
	if err != nil {
		return nil, err
	}
	return toListResponse(snapshot), nil
}

func (s *listService) CreateTodo(ctx context.Context, userID, listID uint, req CreateTodoRequest) (uint, error) {
	title, err := normalizeTitle(req.Title)
	if err != nil {
		return 0, err
	}
	return s.store.AddTodo(ctx, userID, listID, title)
}

func (s *listService) ToggleTodo(ctx context.Context, userID, listID, todoID uint) (*TodoResponse, error) {
	todo, err := s.store.ToggleDone(ctx, userID, todoID, listID)
	if err != nil {
		return nil, err
	}
	return &TodoResponse{ID: todo.ID, Title: todo.Title, Done: todo.Done}, nil
}

func (s *listService) CompleteAll(ctx context.Context, userID, listID uint) error {
	return s.store.MarkAllDone(ctx, userID, listID)
}

func (s *listService) DeleteTodo(ctx context.Context, userID, listID, todoID uint) (*TodoResponse, error) {
	todo, err := s.store.RemoveTodo(ctx, userID, todoID, listID)
	if err != nil {
		return nil, err
	}
	return &TodoResponse{ID: todo.ID, Title: todo.Title, Done: todo.Done}, nil
}
