package users

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("user not found")

type UserRepo interface {
	Upsert(user *User) error
	Delete(id int64) error
	GetByID(id int64) (*User, error)
	GetByUsername(username string) (*User, error)
	List(offset, limit int) ([]*User, error)
	SetLoggedIn(id int64, at time.Time) error
}
