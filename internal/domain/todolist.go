package domain

import "sort"

// TodoList is a named, ordered grouping of todos owned by exactly one user.
// The (Title, UserID) pair is unique, enforced by a composite index so the
// database closes the race between an existence check and the insert.
// Deleting a list cascades to its todos.
type TodoList struct {
	ID     uint   `gorm:"primarykey" json:"id"`
	Title  string `gorm:"not null;uniqueIndex:idx_todolists_title_user" json:"title"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_todolists_title_user" json:"-"`
	Todos  []Todo `gorm:"foreignKey:TodoListID;constraint:OnDelete:CASCADE" json:"todos"`
}

func (TodoList) TableName() string { return "todolists" }

// NewTodoList returns a detached, empty list with the given title.
func NewTodoList(title string) *TodoList {
	return &TodoList{Title: title}
}

// Len is the number of contained todos.
func (l *TodoList) Len() int { return len(l.Todos) }

// CountDone is the number of contained todos marked done. Always recomputed,
// never cached.
func (l *TodoList) CountDone() int {
	n := 0
	for i := range l.Todos {
		if l.Todos[i].Done {
			n++
		}
	}
	return n
}

// IsDone reports whether the list is complete: it must be non-empty and
// every todo must be done. An empty list is never done.
func (l *TodoList) IsDone() bool {
	return len(l.Todos) > 0 && l.CountDone() == len(l.Todos)
}

// Add appends an existing todo to the list.
func (l *TodoList) Add(t *Todo) {
	l.Todos = append(l.Todos, *t)
}

// AddTitle wraps a raw title into a new todo, appends it, and returns a
// pointer to the stored element.
func (l *TodoList) AddTitle(title string) *Todo {
	l.Todos = append(l.Todos, Todo{Title: title, TodoListID: l.ID})
	return &l.Todos[len(l.Todos)-1]
}

func (l *TodoList) checkIndex(i int) error {
	if i < 0 || i >= len(l.Todos) {
		return ErrIndexOutOfRange
	}
	return nil
}

// ItemAt returns the todo at position i, or ErrIndexOutOfRange.
func (l *TodoList) ItemAt(i int) (*Todo, error) {
	if err := l.checkIndex(i); err != nil {
		return nil, err
	}
	return &l.Todos[i], nil
}

// RemoveAt removes and returns the todo at position i, preserving the order
// of the remaining items.
func (l *TodoList) RemoveAt(i int) (*Todo, error) {
	if err := l.checkIndex(i); err != nil {
		return nil, err
	}
	removed := l.Todos[i]
	l.Todos = append(l.Todos[:i], l.Todos[i+1:]...)
	return &removed, nil
}

// MarkDoneAt marks the todo at position i done.
func (l *TodoList) MarkDoneAt(i int) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	l.Todos[i].MarkDone()
	return nil
}

// MarkUndoneAt marks the todo at position i not done.
func (l *TodoList) MarkUndoneAt(i int) error {
	if err := l.checkIndex(i); err != nil {
		return err
	}
	l.Todos[i].MarkUndone()
	return nil
}

// FindByID returns the first todo with the given id, or nil.
func (l *TodoList) FindByID(id uint) *Todo {
	for i := range l.Todos {
		if l.Todos[i].ID == id {
			return &l.Todos[i]
		}
	}
	return nil
}

// FindByTitle returns the first todo with the given title, or nil.
// Duplicate titles are not prevented at this layer; the first match wins.
func (l *TodoList) FindByTitle(title string) *Todo {
	for i := range l.Todos {
		if l.Todos[i].Title == title {
			return &l.Todos[i]
		}
	}
	return nil
}

// MarkAllDone marks every contained todo done. No-op on an empty list.
func (l *TodoList) MarkAllDone() {
	for i := range l.Todos {
		l.Todos[i].MarkDone()
	}
}

// MarkAllUndone marks every contained todo not done.
func (l *TodoList) MarkAllUndone() {
	for i := range l.Todos {
		l.Todos[i].MarkUndone()
	}
}

// Filter returns a new detached list with the same title containing copies
// of the todos matching pred, in their current relative order.
func (l *TodoList) Filter(pred func(*Todo) bool) *TodoList {
	out := NewTodoList(l.Title)
	for i := range l.Todos {
		if pred(&l.Todos[i]) {
			out.Todos = append(out.Todos, l.Todos[i])
		}
	}
	return out
}

// AllDone is the view of completed todos.
func (l *TodoList) AllDone() *TodoList {
	return l.Filter(func(t *Todo) bool { return t.Done })
}

// AllUndone is the view of pending todos.
func (l *TodoList) AllUndone() *TodoList {
	return l.Filter(func(t *Todo) bool { return !t.Done })
}

// Compare orders lists the same way todos are ordered: lists with pending
// work before fully-done lists, ties broken case-insensitively by title.
func (l *TodoList) Compare(other *TodoList) int {
	return compareByDoneness(l.IsDone(), l.Title, other.IsDone(), other.Title)
}

// Sort orders the contained todos in place per the display rule. Stable and
// idempotent, so repeated calls yield identical output.
func (l *TodoList) Sort() *TodoList {
	sort.SliceStable(l.Todos, func(i, j int) bool {
		return l.Todos[i].Compare(&l.Todos[j]) < 0
	})
	return l
}
