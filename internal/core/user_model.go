package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// User is an authenticated account. Every user is also an employee for payroll.
type User struct {
	ID            int             `json:"id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	PasswordHash  string          `json:"-"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Role          Role            `json:"role"`
	Department    string          `json:"department"`
	Position      string          `json:"position"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// FullName joins first and last name, falling back to the username.
func (u User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "" || u.LastName != "":
		return u.FirstName + u.LastName
	}
	return u.Username
}

// Actor returns the authorization identity of u.
func (u User) Actor() Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

// Employee is the payroll view of an active user.
type Employee struct {
	ID            int             `json:"id"`
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Role          Role            `json:"role"`
	Department    string          `json:"department"`
	Position      string          `json:"position"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
}

// UserInput creates a user. Password is hashed with bcrypt before storage.
type UserInput struct {
	Username      string
	Email         string
	Password      string
	FirstName     string
	LastName      string
	Role          Role
	Department    string
	Position      string
	HourlyRate    decimal.Decimal
	MonthlySalary decimal.Decimal
}

// UserService provides account lookup and credential checks.
type UserService interface {
	// Authenticate returns the active user matching username and password.
	// Unknown users and wrong passwords both fail with ErrNotFound.
	Authenticate(ctx context.Context, username, password string) (*User, error)

	// GetByID returns a user by primary key.
	GetByID(ctx context.Context, userID int) (*User, error)

	// CreateUser inserts a new account; a duplicate username or email fails Conflict.
	CreateUser(ctx context.Context, in UserInput) (*User, error)

	// ListEmployees returns active users ordered by last name.
	ListEmployees(ctx context.Context) ([]Employee, error)
}
