package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/congo-pay/banka/internal/bankerr"
	"github.com/congo-pay/banka/internal/infra"
)

// ErrUsernameTaken is returned when registering an existing username.
var ErrUsernameTaken = fmt.Errorf("%w: username already taken", bankerr.ErrInvalidOperation)

// Repository persists users.
type Repository interface {
	Create(ctx context.Context, user User) error
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByID(ctx context.Context, id string) (User, error)
	List(ctx context.Context) ([]User, error)
	UpdateRole(ctx context.Context, id string, role Role) error
	UpdateTokenVersion(ctx context.Context, id string, version int) error
	Delete(ctx context.Context, id string) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db infra.DBTX
}

// NewPostgresRepository builds a Postgres-backed identity repository.
func NewPostgresRepository(db infra.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUser = `SELECT id, username, password_hash, role, token_version, created_at FROM users`

// Create inserts a new user.
func (r *PostgresRepository) Create(ctx context.Context, user User) error {
	userID, err := uuid.Parse(user.ID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO users (id, username, password_hash, role, token_version, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, userID, user.Username, user.PasswordHash, string(user.Role), user.TokenVersion, user.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrUsernameTaken
	}
	return err
}

// FindByUsername fetches a user by username.
func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE username = $1`, username))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %s", bankerr.ErrNotFound, username)
	}
	return user, err
}

// FindByID fetches a user by id.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (User, error) {
	userID, err := uuid.Parse(id)
	if err != nil {
		return User{}, fmt.Errorf("%w: user %s", bankerr.ErrNotFound, id)
	}
	user, err := scanUser(r.db.QueryRow(ctx, selectUser+` WHERE id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %s", bankerr.ErrNotFound, id)
	}
	return user, err
}

// List returns all users ordered by username.
func (r *PostgresRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.Query(ctx, selectUser+` ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateRole changes a user's role.
func (r *PostgresRepository) UpdateRole(ctx context.Context, id string, role Role) error {
	return r.update(ctx, `UPDATE users SET role = $1 WHERE id = $2`, id, string(role))
}

// UpdateTokenVersion stores the token version; older tokens stop verifying.
func (r *PostgresRepository) UpdateTokenVersion(ctx context.Context, id string, version int) error {
	return r.update(ctx, `UPDATE users SET token_version = $1 WHERE id = $2`, id, version)
}

// Delete removes a user.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: user %s", bankerr.ErrNotFound, id)
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", bankerr.ErrNotFound, id)
	}
	return nil
}

func (r *PostgresRepository) update(ctx context.Context, query, id string, value any) error {
	userID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%w: user %s", bankerr.ErrNotFound, id)
	}
	cmd, err := r.db.Exec(ctx, query, value, userID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("%w: user %s", bankerr.ErrNotFound, id)
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var (
		id        uuid.UUID
		role      string
		createdAt time.Time
		user      User
	)
	if err := row.Scan(&id, &user.Username, &user.PasswordHash, &role, &user.TokenVersion, &createdAt); err != nil {
		return User{}, err
	}
	user.ID = id.String()
	user.Role = Role(role)
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
