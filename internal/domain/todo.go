package domain

// Todo is a single actionable item inside a TodoList. The id is assigned by
// the database on insert and never changes afterwards; a zero id marks a
// detached in-memory value that has not been persisted.
type Todo struct {
	ID         uint   `gorm:"primarykey" json:"id"`
	Title      string `gorm:"not null" json:"title"`
	Done       bool   `gorm:"not null;default:false" json:"done"`
	TodoListID uint   `gorm:"not null;index" json:"-"`
}

func (Todo) TableName() string { return "todos" }

// NewTodo returns a detached todo with the given title.
func NewTodo(title string) *Todo {
	return &Todo{Title: title}
}

// SetTitle replaces the title. Trimming and emptiness rules are enforced by
// the validation layer before the value gets here.
func (t *Todo) SetTitle(title string) {
	t.Title = title
}

// MarkDone sets the completion flag. Idempotent.
func (t *Todo) MarkDone() { t.Done = true }

// MarkUndone clears the completion flag. Idempotent.
func (t *Todo) MarkUndone() { t.Done = false }

func (t *Todo) IsDone() bool { return t.Done }

// Same reports whether other refers to the same persisted item, by id only.
// Mutable fields do not participate in identity.
func (t *Todo) Same(other *Todo) bool {
	return other != nil && t.ID != 0 && t.ID == other.ID
}

// Compare orders todos for display: not-done before done, ties broken
// case-insensitively by title. Returns -1, 0 or 1.
func (t *Todo) Compare(other *Todo) int {
	return compareByDoneness(t.Done, t.Title, other.Done, other.Title)
}
