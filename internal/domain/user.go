package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents the users table. Username is nullable until the user
// claims one; the claim is enforced unique at the database level.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  *string   `gorm:"uniqueIndex" json:"username"`
	Image     string    `json:"image"`
	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
