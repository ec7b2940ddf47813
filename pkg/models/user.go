package models

import (
	"time"
)

// User is a verified caller of the relay, provisioned on first sight of a
// valid token subject.
type User struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
