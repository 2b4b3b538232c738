// Package store is the transactional persistence facade over lists and
// todos. Every operation is scoped to one owning user, runs in a single
// transaction when it spans more than one statement, and reports expected
// misses as domain sentinels instead of leaking storage errors.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/pzielke/todolists/internal/domain"
)

// ListSummary is a list row with its completion metadata aggregated at query
// time. The counters are never stored, so concurrent mutation can not leave
// them stale.
type ListSummary struct {
	ID        uint   `json:"id"`
	Title     string `json:"title"`
	Length    int    `json:"length"`
	CountDone int    `json:"count_done"`
	Done      bool   `json:"done"`
}

// TodoStore defines the persistence operations request handlers call. All
// methods take the owning user's id; ids outside that owner's data behave
// exactly like ids that do not exist.
type TodoStore interface {
	// SortedLists returns all of the owner's lists with computed metadata,
	// ordered pending-first then case-insensitively by title.
	SortedLists(ctx context.Context, userID uint) ([]ListSummary, error)

	// SortedList returns one list with its todos in display order.
	SortedList(ctx context.Context, userID, listID uint) (*domain.TodoList, error)

	// AddList creates a list and returns its id. A title already used by
	// another of the owner's lists yields ErrDuplicateTitle.
	AddList(ctx context.Context, userID uint, title string) (uint, error)

	// SetListTitle renames a list. Renaming to the current title is a
	// no-op success, never a conflict.
	SetListTitle(ctx context.Context, userID, listID uint, title string) error

	// RemoveList deletes a list and all its todos atomically, returning a
	// snapshot of what was removed.
	RemoveList(ctx context.Context, userID, listID uint) (*domain.TodoList, error)

	// AddTodo creates a todo in the given list and returns its id.
	AddTodo(ctx context.Context, userID, listID uint, title string) (uint, error)

	// ToggleDone flips a todo's completion flag and returns its new state.
	ToggleDone(ctx context.Context, userID, todoID, listID uint) (*domain.Todo, error)

	// MarkAllDone marks every todo in the list done.
	MarkAllDone(ctx context.Context, userID, listID uint) error

	// RemoveTodo deletes one todo and returns its pre-deletion snapshot.
	RemoveTodo(ctx context.Context, userID, todoID, listID uint) (*domain.Todo, error)

	// UserByUsername looks up an account for the credential check.
	UserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type gormStore struct {
	db *gorm.DB
}

// New returns a TodoStore backed by the given gorm handle. The handle must
// be configured with DisableNestedTransaction so operations invoked inside
// an open transaction join it instead of opening a savepoint.
func New(db *gorm.DB) TodoStore {
	return &gormStore{db: db}
}

// summaryQuery aggregates completion metadata over current rows. A LEFT JOIN
// keeps empty lists in the result with zero counts.
const summaryQuery = `
SELECT l.id, l.title,
       COUNT(t.id)                       AS length,
       COUNT(t.id) FILTER (WHERE t.done) AS count_done
FROM todolists l
LEFT JOIN todos t ON t.todolist_id = l.id
WHERE l.user_id = ?
GROUP BY l.id, l.title`

func (s *gormStore) SortedLists(ctx context.Context, userID uint) ([]ListSummary, error) {
	var rows []ListSummary
	if err := s.db.WithContext(ctx).Raw(summaryQuery, userID).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading lists: %w", err)
	}
	for i := range rows {
		rows[i].Done = rows[i].Length > 0 && rows[i].CountDone == rows[i].Length
	}
	sortSummaries(rows)
	return rows, nil
}

// sortSummaries applies the two-level display order to aggregated rows, the
// same rule domain.TodoLists.Sort applies to full entities.
func sortSummaries(rows []ListSummary) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Done != b.Done {
			return !a.Done
		}
		return domain.CompareTitles(a.Title, b.Title) < 0
	})
}

func (s *gormStore) SortedList(ctx context.Context, userID, listID uint) (*domain.TodoList, error) {
	var list domain.TodoList
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedList(tx, userID, listID, &list); err != nil {
			return err
		}
		if err := tx.Where("todolist_id = ?", listID).Find(&list.Todos).Error; err != nil {
			return fmt.Errorf("loading todos for list %d: %w", listID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return list.Sort(), nil
}

func (s *gormStore) AddList(ctx context.Context, userID uint, title string) (uint, error) {
	list := domain.TodoList{Title: title, UserID: userID}
	if err := s.db.WithContext(ctx).Create(&list).Error; err != nil {
		return 0, translate(err, fmt.Sprintf("creating list %q", title))
	}
	return list.ID, nil
}

func (s *gormStore) SetListTitle(ctx context.Context, userID, listID uint, title string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var list domain.TodoList
		if err := ownedList(tx, userID, listID, &list); err != nil {
			return err
		}
		if list.Title == title {
			// Renaming to the current title is always permitted.
			return nil
		}
		err := tx.Model(&domain.TodoList{}).Where("id = ?", listID).
			Update("title", title).Error
		if err != nil {
			return translate(err, fmt.Sprintf("renaming list %d", listID))
		}
		return nil
	})
}

func (s *gormStore) RemoveList(ctx context.Context, userID, listID uint) (*domain.TodoList, error) {
	var snapshot domain.TodoList
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ownedList(tx, userID, listID, &snapshot); err != nil {
			return err
		}
		if err := tx.Where("todolist_id = ?", listID).Find(&snapshot.Todos).Error; err != nil {
			return fmt.Errorf("snapshotting todos for list %d: %w", listID, err)
		}
		// The FK cascade removes the child todos in the same statement.
		if err := tx.Delete(&domain.TodoList{}, listID).Error; err != nil {
			return fmt.Errorf("deleting list %d: %w", listID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot.Sort(), nil
}

func (s *gormStore) AddTodo(ctx context.Context, userID, listID uint, title string) (uint, error) {
	todo := domain.Todo{Title: title, TodoListID: listID}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var list domain.TodoList
		if err := ownedList(tx, userID, listID, &list); err != nil {
			return err
		}
		if err := tx.Create(&todo).Error; err != nil {
			return fmt.Errorf("creating todo in list %d: %w", listID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return todo.ID, nil
}

func (s *gormStore) ToggleDone(ctx context.Context, userID, todoID, listID uint) (*domain.Todo, error) {
	var todo domain.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var list domain.TodoList
		if err := ownedList(tx, userID, listID, &list); err != nil {
			return err
		}
		if err := ownedTodo(tx, todoID, listID, &todo); err != nil {
			return err
		}
		todo.Done = !todo.Done
		err := tx.Model(&domain.Todo{}).Where("id = ?", todoID).
			Update("done", todo.Done).Error
		if err != nil {
			return fmt.Errorf("toggling todo %d: %w", todoID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &todo, nil
}

func (s *gormStore) MarkAllDone(ctx context.Context, userID, listID uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var list domain.TodoList
		if err := ownedList(tx, userID, listID, &list); err != nil {
			return err
		}
		err := tx.Model(&domain.Todo{}).Where("todolist_id = ?", listID).
			Update("done", true).Error
		if err != nil {
			return fmt.Errorf("completing todos in list %d: %w", listID, err)
		}
		return nil
	})
}

func (s *gormStore) RemoveTodo(ctx context.Context, userID, todoID, listID uint) (*domain.Todo, error) {
	var snapshot domain.Todo
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var list domain.TodoList
		if err := ownedList(tx, userID, listID, &list); err != nil {
			return err
		}
		if err := ownedTodo(tx, todoID, listID, &snapshot); err != nil {
			return err
		}
		if err := tx.Delete(&domain.Todo{}, todoID).Error; err != nil {
			return fmt.Errorf("deleting todo %d: %w", todoID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (s *gormStore) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("looking up user %q: %w", username, err)
	}
	return &user, nil
}

// ownedList loads the list only if it belongs to userID. Any miss, whether
// the id is unknown or owned by someone else, reads as not found.
func ownedList(tx *gorm.DB, userID, listID uint, dst *domain.TodoList) error {
	err := tx.Where("id = ? AND user_id = ?", listID, userID).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrListNotFound
	}
	if err != nil {
		return fmt.Errorf("loading list %d: %w", listID, err)
	}
	return nil
}

// ownedTodo loads the todo only if it sits in the given list. The caller has
// already established that the list belongs to the requesting user.
func ownedTodo(tx *gorm.DB, todoID, listID uint, dst *domain.Todo) error {
	err := tx.Where("id = ? AND todolist_id = ?", todoID, listID).First(dst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.ErrTodoNotFound
	}
	if err != nil {
		return fmt.Errorf("loading todo %d: %w", todoID, err)
	}
	return nil
}
