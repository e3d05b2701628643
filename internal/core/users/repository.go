package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store is the persistence used by the users API.
type Store interface {
	List(ctx context.Context, limit, offset int) ([]User, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id int64) (User, error)
	Create(ctx context.Context, u NewUser, passwordHash *string) (User, error)
}

const userColumns = `id, created_at, updated_at, username, alias, email, phone, password,
	is_active, is_superuser, last_login, dept_id`

// Repository implements Store backed by PostgreSQL.
type Repository struct {
	db *sqlx.DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a Repository using the provided database handle.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) List(ctx context.Context, limit, offset int) ([]User, error) {
	out := []User{}
	err := r.db.SelectContext(ctx, &out, `
		SELECT `+userColumns+`
		FROM "user"
		ORDER BY id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM "user"`); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (User, error) {
	var u User
	err := r.db.GetContext(ctx, &u, `
		SELECT `+userColumns+`
		FROM "user"
		WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r *Repository) Create(ctx context.Context, in NewUser, passwordHash *string) (User, error) {
	var u User
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO "user" (username, alias, email, phone, password, is_superuser, dept_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+userColumns,
		in.Username, in.Alias, in.Email, in.Phone, passwordHash, in.IsSuperuser, in.DeptID,
	).StructScan(&u)
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, ErrDuplicate
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
