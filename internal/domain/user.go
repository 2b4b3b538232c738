package domain

// User is the persisted account record. The password hash never leaves the
// auth layer. Deleting a user cascades to their lists and, through those,
// to every todo.
type User struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Username     string     `gorm:"not null;uniqueIndex" json:"username"`
	PasswordHash string     `gorm:"not null" json:"-"`
	TodoLists    []TodoList `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (User) TableName() string { return "users" }
