package models

import "time"

type User struct {
	ID            string
	Name          string
	Email         string
	ContactNumber string
	Password      string
	IsAdmin       bool
	IsEnabled     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
