package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type userService struct {
	pool *pgxpool.Pool
}

// NewUserService constructs a UserService backed by PostgreSQL.
func NewUserService(pool *pgxpool.Pool) UserService {
	return &userService{pool: pool}
}

const userColumns = `
	id, username, email, password_hash, first_name, last_name, role,
	department, position, hourly_rate, monthly_salary, is_active, created_at`

func scanUser(row pgx.Row) (*User, error) {
	u := &User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Role,
		&u.Department, &u.Position, &u.HourlyRate, &u.MonthlySalary, &u.IsActive, &u.CreatedAt)
	return u, err
}

func (s *userService) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 AND is_active = true
		LIMIT 1`,
		strings.TrimSpace(username),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("invalid username or password")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %q: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, NotFoundf("invalid username or password")
	}
	return u, nil
}

func (s *userService) GetByID(ctx context.Context, userID int) (*User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1`,
		userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, NotFoundf("user %d not found", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	return u, nil
}

func (s *userService) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" {
		return nil, InvalidInputf("username and email are required")
	}
	if len(in.Password) < 6 {
		return nil, InvalidInputf("password must be at least 6 characters")
	}
	if in.Role == "" {
		in.Role = RoleEmployee
	}
	if _, err := ParseRole(string(in.Role)); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	u, err := scanUser(s.pool.QueryRow(ctx, `
		INSERT INTO users
			(username, email, password_hash, first_name, last_name, role,
			 department, position, hourly_rate, monthly_salary)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+userColumns,
		in.Username, in.Email, string(hash), in.FirstName, in.LastName, string(in.Role),
		in.Department, in.Position, in.HourlyRate, in.MonthlySalary,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, Conflictf("user %s already exists", in.Username)
		}
		return nil, mapWriteError(err, "create user")
	}
	return u, nil
}

func (s *userService) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE is_active = true
		ORDER BY last_name, first_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	employees := []Employee{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, Employee{
			ID:            u.ID,
			Name:          u.FullName(),
			Email:         u.Email,
			Role:          u.Role,
			Department:    u.Department,
			Position:      u.Position,
			HourlyRate:    u.HourlyRate,
			MonthlySalary: u.MonthlySalary,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating employees: %w", err)
	}
	return employees, nil
}
