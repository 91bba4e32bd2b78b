// Database model for the user's address book
package db

import "time"

// Contact is an address-book entry the agent can look up and maintain.
type Contact struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Name      string    `json:"name" gorm:"index;size:100;not null"`
	Email     string    `json:"email" gorm:"size:200;not null"`
	Notes     string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}
