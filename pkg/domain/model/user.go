package model

import (
	"strconv"
	"time"
)

// UserID is the chat identity of a user.
type UserID int64

func (id UserID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

type Role int

const (
	Customer Role = iota
	Admin
)

type User struct {
	ID          UserID
	FirstName   string
	LastName    string
	Username    string
	PhoneNumber string
	Language    string
	Role        Role
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
