package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/newsroom-rundown/internal/model"
	"github.com/iliyamo/newsroom-rundown/internal/utils"
)

// UserRepo persists newsroom accounts.  It sits outside the Store port
// because no rundown operation touches users.
type UserRepo struct {
	DB      *sql.DB
	dialect Dialect
}

func NewUserRepo(db *sql.DB, dialect Dialect) *UserRepo { return &UserRepo{DB: db, dialect: dialect} }

const userColumns = "id,email,password_hash,role,station_id,is_active,created_at,updated_at"

// Create hashes password, inserts the user and returns its ID.
func (r *UserRepo) Create(ctx context.Context, email, password, role string, stationID uint64, cost int) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role, station_id) VALUES (?,?,?,?)",
		email, hash, role, stationID)
	if err != nil {
		if r.dialect.isUniqueViolation(err) {
			return 0, ErrEmailExists
		}
		return 0, r.dialect.classify(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.get(ctx, "SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email)
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	return r.get(ctx, "SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id)
}

func (r *UserRepo) get(ctx context.Context, q string, arg any) (model.User, error) {
	var (
		u                model.User
		created, updated dbTime
	)
	err := r.DB.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.StationID, &u.IsActive, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrUserNotFound
		}
		return model.User{}, r.dialect.classify(err)
	}
	u.CreatedAt, u.UpdatedAt = created.t, updated.t
	return u, nil
}
