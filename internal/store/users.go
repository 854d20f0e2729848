package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/findme/internal/model"
)

const userColumns = `id, name, full_name, email, password_hash, role, is_verified,
	contact_number, profile_photo, created_at, updated_at`

// NewUser holds the fields required to create a user.
type NewUser struct {
	Name         string
	FullName     string
	Email        string
	PasswordHash string
	Role         string
}

// UserUpdate holds the fields of a user update. Nil fields are left unchanged.
type UserUpdate struct {
	Name          *string
	Email         *string
	Role          *string
	IsVerified    *bool
	FullName      *string
	ContactNumber *string
	ProfilePhoto  *string
}

func scanUser(s scanner) (*model.User, error) {
	u := &model.User{}
	err := s.Scan(&u.ID, &u.Name, &u.FullName, &u.Email, &u.PasswordHash, &u.Role, &u.IsVerified,
		&u.ContactNumber, &u.ProfilePhoto, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// CreateUser creates a new user.
func CreateUser(ctx context.Context, q Querier, nu NewUser) (*model.User, error) {
	role := nu.Role
	if role == "" {
		role = model.RoleUser
	}

	result, err := q.ExecContext(ctx,
		`INSERT INTO users (name, full_name, email, password_hash, role) VALUES (?, ?, ?, ?, ?)`,
		nu.Name, nu.FullName, nu.Email, nu.PasswordHash, role,
	)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by email address.
func GetUserByEmail(ctx context.Context, q Querier, email string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// FindAdmin returns the first administrator account.
func FindAdmin(ctx context.Context, q Querier) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id LIMIT 1`, model.RoleAdmin))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoAdmin
	}
	if err != nil {
		return nil, fmt.Errorf("finding admin: %w", err)
	}
	return u, nil
}

// ListUsers returns all users, newest first.
func ListUsers(ctx context.Context, q Querier) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser applies the non-nil fields of upd and returns the updated user.
func UpdateUser(ctx context.Context, q Querier, id int64, upd UserUpdate) (*model.User, error) {
	var sets []string
	var args []any
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if upd.Name != nil {
		set("name", *upd.Name)
	}
	if upd.Email != nil {
		set("email", *upd.Email)
	}
	if upd.Role != nil {
		set("role", *upd.Role)
	}
	if upd.IsVerified != nil {
		set("is_verified", *upd.IsVerified)
	}
	if upd.FullName != nil {
		set("full_name", *upd.FullName)
	}
	if upd.ContactNumber != nil {
		set("contact_number", *upd.ContactNumber)
	}
	if upd.ProfilePhoto != nil {
		set("profile_photo", *upd.ProfilePhoto)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, id)

	result, err := q.ExecContext(ctx,
		`UPDATE users SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...)
	if isUniqueViolation(err) {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return GetUser(ctx, q, id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, q Querier, id int64, passwordHash string) error {
	result, err := q.ExecContext(ctx,
		`UPDATE users SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser permanently deletes a user and, by cascade, their items.
// It returns the deleted user.
func DeleteUser(ctx context.Context, q Querier, id int64) (*model.User, error) {
	u, err := GetUser(ctx, q, id)
	if err != nil {
		return nil, err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id); err != nil {
		return nil, fmt.Errorf("deleting user: %w", err)
	}
	return u, nil
}
