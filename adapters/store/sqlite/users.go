package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/nocode/core"
)

const userColumns = `id, siwe_address, email, plan, created_at, last_login`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*core.User, error) {
	var (
		user      core.User
		address   sql.NullString
		email     sql.NullString
		createdAt int64
		lastLogin sql.NullInt64
	)
	if err := row.Scan(&user.ID, &address, &email, &user.Plan, &createdAt, &lastLogin); err != nil {
		return nil, err
	}
	user.SiweAddress = mapNullString(address)
	user.Email = mapNullString(email)
	user.CreatedAt = fromMillis(createdAt)
	user.LastLogin = mapNullTime(lastLogin)
	return &user, nil
}

// FindByAddress looks a user up by the lowercase wallet address
func (s *Store) FindByAddress(ctx context.Context, address string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE siwe_address = ?`, address)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user by address: %w", err)
	}
	return user, nil
}

// FindByID looks a user up by id
func (s *Store) FindByID(ctx context.Context, id string) (*core.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, core.ErrUserNotFound
		}
		return nil, fmt.Errorf("query user by id: %w", err)
	}
	return user, nil
}

// Create inserts a new user. The unique index on siwe_address turns a
// concurrent duplicate into core.ErrUserExists.
func (s *Store) Create(ctx context.Context, user *core.User) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	plan := user.Plan
	if plan == "" {
		plan = core.DefaultPlan
	}

	var lastLogin sql.NullInt64
	if user.LastLogin != nil {
		lastLogin = sql.NullInt64{Int64: toMillis(*user.LastLogin), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		user.ID,
		mapStringNull(user.SiweAddress),
		mapStringNull(user.Email),
		plan,
		toMillis(user.CreatedAt),
		lastLogin,
	)
	if err != nil {
		if isUniqueViolation(err) {
			err = errors.Join(core.ErrUserExists, err)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.Plan = plan
	return nil
}

// TouchLastLogin records a successful sign-in
func (s *Store) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	s.writeLock.Lock()
	defer s.writeLock.Unlock()

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, toMillis(at), id)
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update last login: %w", err)
	}
	if n == 0 {
		return core.ErrUserNotFound
	}
	return nil
}
