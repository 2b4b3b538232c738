package store

import (
	"context"
	"fmt"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pzielke/todolists/internal/domain"
)

// testDB is shared by all tests in this package. Each test creates its own
// user, so tests never see each other's rows.
var testDB *gorm.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("todos_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		// No container runtime available; tests will skip themselves.
		log.Printf("could not start postgres container: %v", err)
		os.Exit(m.Run())
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Printf("could not get connection string: %v", err)
		_ = testcontainers.TerminateContainer(ctr)
		os.Exit(1)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                   logger.Default.LogMode(logger.Silent),
		DisableNestedTransaction: true,
	})
	if err != nil {
		log.Printf("could not open database: %v", err)
		_ = testcontainers.TerminateContainer(ctr)
		os.Exit(1)
	}

	if err := db.AutoMigrate(&domain.User{}, &domain.TodoList{}, &domain.Todo{}); err != nil {
		log.Printf("could not migrate schema: %v", err)
		_ = testcontainers.TerminateContainer(ctr)
		os.Exit(1)
	}

	testDB = db
	code := m.Run()
	_ = testcontainers.TerminateContainer(ctr)
	os.Exit(code)
}

// newTestStore creates a fresh user and returns a store scoped test fixture.
func newTestStore(t *testing.T) (TodoStore, uint) {
	t.Helper()
	if testDB == nil {
		t.Skip("postgres container not available")
	}
	user := domain.User{
		Username:     fmt.Sprintf("%s-%d", t.Name(), time.Now().UnixNano()),
		PasswordHash: "x",
	}
	require.NoError(t, testDB.Create(&user).Error)
	return New(testDB), user.ID
}

func addUser(t *testing.T) uint {
	t.Helper()
	user := domain.User{
		Username:     fmt.Sprintf("%s-other-%d", t.Name(), time.Now().UnixNano()),
		PasswordHash: "x",
	}
	require.NoError(t, testDB.Create(&user).Error)
	return user.ID
}

func TestAddListUniquePerOwner(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	_, err := st.AddList(ctx, owner, "Work")
	require.NoError(t, err)

	// Second insert with the same title must conflict and leave storage
	// unchanged.
	_, err = st.AddList(ctx, owner, "Work")
	assert.ErrorIs(t, err, domain.ErrDuplicateTitle)

	lists, err := st.SortedLists(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, lists, 1)

	// The same title is fine for a different owner.
	other := addUser(t)
	_, err = st.AddList(ctx, other, "Work")
	assert.NoError(t, err)
}

func TestSortedListsMetadataAndOrder(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	workID, err := st.AddList(ctx, owner, "Work")
	require.NoError(t, err)
	homeID, err := st.AddList(ctx, owner, "Home")
	require.NoError(t, err)

	// Work: one done, one pending. Home: fully done.
	doneID, err := st.AddTodo(ctx, owner, workID, "Ship release")
	require.NoError(t, err)
	_, err = st.AddTodo(ctx, owner, workID, "Write notes")
	require.NoError(t, err)
	_, err = st.ToggleDone(ctx, owner, doneID, workID)
	require.NoError(t, err)

	for _, title := range []string{"Vacuum", "Dishes"} {
		id, err := st.AddTodo(ctx, owner, homeID, title)
		require.NoError(t, err)
		_, err = st.ToggleDone(ctx, owner, id, homeID)
		require.NoError(t, err)
	}

	lists, err := st.SortedLists(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lists, 2)

	// The list with pending work sorts first even though "Home" < "Work"
	// alphabetically.
	assert.Equal(t, "Work", lists[0].Title)
	assert.Equal(t, 2, lists[0].Length)
	assert.Equal(t, 1, lists[0].CountDone)
	assert.False(t, lists[0].Done)

	assert.Equal(t, "Home", lists[1].Title)
	assert.Equal(t, 2, lists[1].Length)
	assert.Equal(t, 2, lists[1].CountDone)
	assert.True(t, lists[1].Done)
}

func TestSortedListOrdersTodos(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	listID, err := st.AddList(ctx, owner, "Groceries")
	require.NoError(t, err)

	for _, title := range []string{"banana", "Apple", "cherry", "apricot"} {
		_, err := st.AddTodo(ctx, owner, listID, title)
		require.NoError(t, err)
	}
	list, err := st.SortedList(ctx, owner, listID)
	require.NoError(t, err)

	// Mark "banana" and "Apple" done: they move behind the pending items.
	for _, title := range []string{"banana", "Apple"} {
		todo := list.FindByTitle(title)
		require.NotNil(t, todo)
		_, err = st.ToggleDone(ctx, owner, todo.ID, listID)
		require.NoError(t, err)
	}

	list, err = st.SortedList(ctx, owner, listID)
	require.NoError(t, err)

	var titles []string
	for i := range list.Todos {
		titles = append(titles, list.Todos[i].Title)
	}
	assert.Equal(t, []string{"apricot", "cherry", "Apple", "banana"}, titles)
	assert.False(t, list.IsDone())
	assert.Equal(t, 2, list.CountDone())
}

func TestSetListTitle(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	workID, err := st.AddList(ctx, owner, "Work")
	require.NoError(t, err)
	_, err = st.AddList(ctx, owner, "Home")
	require.NoError(t, err)

	// Renaming to the current title is a no-op success.
	assert.NoError(t, st.SetListTitle(ctx, owner, workID, "Work"))

	// Renaming onto another of the owner's titles conflicts.
	assert.ErrorIs(t, st.SetListTitle(ctx, owner, workID, "Home"), domain.ErrDuplicateTitle)

	// Unknown id reads as not found.
	assert.ErrorIs(t, st.SetListTitle(ctx, owner, 999999, "Anything"), domain.ErrListNotFound)

	require.NoError(t, st.SetListTitle(ctx, owner, workID, "Office"))
	list, err := st.SortedList(ctx, owner, workID)
	require.NoError(t, err)
	assert.Equal(t, "Office", list.Title)
}

func TestRemoveListCascade(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	victimID, err := st.AddList(ctx, owner, "Doomed")
	require.NoError(t, err)
	survivorID, err := st.AddList(ctx, owner, "Survivor")
	require.NoError(t, err)

	var doomedTodo uint
	for _, title := range []string{"one", "two", "three"} {
		id, err := st.AddTodo(ctx, owner, victimID, title)
		require.NoError(t, err)
		doomedTodo = id
	}
	_, err = st.ToggleDone(ctx, owner, doomedTodo, victimID)
	require.NoError(t, err)
	_, err = st.AddTodo(ctx, owner, survivorID, "keep me")
	require.NoError(t, err)

	// The snapshot reflects the pre-deletion state.
	snapshot, err := st.RemoveList(ctx, owner, victimID)
	require.NoError(t, err)
	assert.Equal(t, "Doomed", snapshot.Title)
	assert.Equal(t, 3, snapshot.Len())
	assert.Equal(t, 1, snapshot.CountDone())

	_, err = st.SortedList(ctx, owner, victimID)
	assert.ErrorIs(t, err, domain.ErrListNotFound)

	// The cascade removed exactly the victim's todos.
	var orphaned int64
	require.NoError(t, testDB.Model(&domain.Todo{}).
		Where("todolist_id = ?", victimID).Count(&orphaned).Error)
	assert.Zero(t, orphaned)

	survivor, err := st.SortedList(ctx, owner, survivorID)
	require.NoError(t, err)
	assert.Equal(t, 1, survivor.Len())

	// Removing again reads as not found.
	_, err = st.RemoveList(ctx, owner, victimID)
	assert.ErrorIs(t, err, domain.ErrListNotFound)
}

func TestToggleRoundTrip(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	listID, err := st.AddList(ctx, owner, "Work")
	require.NoError(t, err)
	todoID, err := st.AddTodo(ctx, owner, listID, "Get Coffee")
	require.NoError(t, err)

	toggled, err := st.ToggleDone(ctx, owner, todoID, listID)
	require.NoError(t, err)
	assert.True(t, toggled.Done)

	// A single todo marked done completes the list.
	lists, err := st.SortedLists(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	assert.True(t, lists[0].Done)

	toggled, err = st.ToggleDone(ctx, owner, todoID, listID)
	require.NoError(t, err)
	assert.False(t, toggled.Done, "toggling twice restores the original state")
}

func TestToggleNotFound(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	listID, err := st.AddList(ctx, owner, "Work")
	require.NoError(t, err)
	otherListID, err := st.AddList(ctx, owner, "Other")
	require.NoError(t, err)
	todoID, err := st.AddTodo(ctx, owner, listID, "Get Coffee")
	require.NoError(t, err)

	_, err = st.ToggleDone(ctx, owner, todoID, 999999)
	assert.ErrorIs(t, err, domain.ErrListNotFound)

	// Valid todo id, but it lives in a different list.
	_, err = st.ToggleDone(ctx, owner, todoID, otherListID)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)

	_, err = st.ToggleDone(ctx, owner, 999999, listID)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestMarkAllDone(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	listID, err := st.AddList(ctx, owner, "Work")
	require.NoError(t, err)
	for _, title := range []string{"a", "b", "c"} {
		_, err := st.AddTodo(ctx, owner, listID, title)
		require.NoError(t, err)
	}

	require.NoError(t, st.MarkAllDone(ctx, owner, listID))

	list, err := st.SortedList(ctx, owner, listID)
	require.NoError(t, err)
	assert.True(t, list.IsDone())
	assert.Equal(t, 3, list.CountDone())

	assert.ErrorIs(t, st.MarkAllDone(ctx, owner, 999999), domain.ErrListNotFound)

	// An existing but empty list completes without error and stays not-done.
	emptyID, err := st.AddList(ctx, owner, "Empty")
	require.NoError(t, err)
	require.NoError(t, st.MarkAllDone(ctx, owner, emptyID))
	empty, err := st.SortedList(ctx, owner, emptyID)
	require.NoError(t, err)
	assert.False(t, empty.IsDone())
}

func TestRemoveTodo(t *testing.T) {
	st, owner := newTestStore(t)
	ctx := context.Background()

	listID, err := st.AddList(ctx, owner, "Work")
	require.NoError(t, err)
	todoID, err := st.AddTodo(ctx, owner, listID, "Get Coffee")
	require.NoError(t, err)

	snapshot, err := st.RemoveTodo(ctx, owner, todoID, listID)
	require.NoError(t, err)
	assert.Equal(t, "Get Coffee", snapshot.Title)
	assert.False(t, snapshot.Done)

	list, err := st.SortedList(ctx, owner, listID)
	require.NoError(t, err)
	assert.Zero(t, list.Len())

	_, err = st.RemoveTodo(ctx, owner, todoID, listID)
	assert.ErrorIs(t, err, domain.ErrTodoNotFound)
}

func TestOwnerScoping(t *testing.T) {
	st, owner := newTestStore(t)
	other := addUser(t)
	ctx := context.Background()

	listID, err := st.AddList(ctx, owner, "Private")
	require.NoError(t, err)
	todoID, err := st.AddTodo(ctx, owner, listID, "secret")
	require.NoError(t, err)

	// Another user's ids behave exactly like ids that do not exist.
	_, err = st.SortedList(ctx, other, listID)
	assert.ErrorIs(t, err, domain.ErrListNotFound)
	assert.ErrorIs(t, st.SetListTitle(ctx, other, listID, "Mine now"), domain.ErrListNotFound)
	_, err = st.RemoveList(ctx, other, listID)
	assert.ErrorIs(t, err, domain.ErrListNotFound)
	_, err = st.ToggleDone(ctx, other, todoID, listID)
	assert.ErrorIs(t, err, domain.ErrListNotFound)

	lists, err := st.SortedLists(ctx, other)
	require.NoError(t, err)
	assert.Empty(t, lists)
}

func TestUserByUsername(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	username := fmt.Sprintf("lookup-%d", time.Now().UnixNano())
	require.NoError(t, testDB.Create(&domain.User{Username: username, PasswordHash: "h"}).Error)

	user, err := st.UserByUsername(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, username, user.Username)

	_, err = st.UserByUsername(ctx, "no-such-user")
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
}
