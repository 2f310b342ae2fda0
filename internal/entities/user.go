package entities

// User is a registered reader. Name is unique across the store.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Name         string `gorm:"uniqueIndex;not null" json:"name"`
	Age          int    `gorm:"not null" json:"age"`
	PasswordHash string `gorm:"not null" json:"-"`
}

func (User) TableName() string {
	return "users"
}
