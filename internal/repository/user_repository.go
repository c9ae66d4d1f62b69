package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/cinema-booking/internal/model"
	"github.com/iliyamo/cinema-booking/internal/utils"
)

// NewUser carries the fields needed to create an account. Password is the
// plain text secret; only its bcrypt hash is stored.
type NewUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
	IsStaff   bool
}

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id,username,email,first_name,last_name,password_hash,is_staff,is_active,created_at"

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.PasswordHash, &u.IsStaff, &u.IsActive, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// Create hashes the password, inserts the user and returns its ID. A taken
// username is reported as ErrUsernameExists.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, first_name, last_name, password_hash, is_staff) VALUES (?,?,?,?,?,?)",
		strings.TrimSpace(nu.Username), normalizeEmail(nu.Email),
		strings.TrimSpace(nu.FirstName), strings.TrimSpace(nu.LastName), hash, nu.IsStaff)
	if err != nil {
		if isDuplicate(err) {
			return 0, ErrUsernameExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// EmailExists reports whether any account uses email, ignoring case.
func (r *UserRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE LOWER(email) = ?", normalizeEmail(email)).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username)))
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

// SetStaff flips the staff flag of an existing user.
func (r *UserRepo) SetStaff(ctx context.Context, username string, staff bool) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET is_staff=? WHERE username=?", staff, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing user and an unchanged flag.
		if _, err := r.GetByUsername(ctx, username); err != nil {
			return err
		}
	}
	return nil
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }
