package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/family-calendar-api/internal/models"
)

const userColumns = `id, name, email, color, push_subscription, created_at, updated_at`

// UserRepository provides database access for family members.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by lower-cased email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	const query = `INSERT INTO users (id, name, email, color, created_at, updated_at) VALUES (:id, :name, :email, :color, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdateProfile renames a user and replaces the colour when one is given.
func (r *UserRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET name = :name, color = COALESCE(:color, color), updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// SetPushSubscription stores the serialised browser subscription.
func (r *UserRepository) SetPushSubscription(ctx context.Context, id, subscription string) error {
	const query = `UPDATE users SET push_subscription = $2, updated_at = $3 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, subscription, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set push subscription: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListMembers returns the members of a family ordered by name.
func (r *UserRepository) ListMembers(ctx context.Context, familyID string) ([]models.Member, error) {
	const query = `SELECT u.id, u.name, u.email, u.color FROM family_members fm JOIN users u ON u.id = fm.user_id WHERE fm.family_id = $1 ORDER BY u.name ASC`
	members := []models.Member{}
	if err := r.db.SelectContext(ctx, &members, query, familyID); err != nil {
		return nil, fmt.Errorf("list family members: %w", err)
	}
	return members, nil
}

// ListSubscribers returns the members of a family with a push subscription.
func (r *UserRepository) ListSubscribers(ctx context.Context, familyID string) ([]models.Subscriber, error) {
	const query = `SELECT u.id, u.name, u.push_subscription FROM family_members fm JOIN users u ON u.id = fm.user_id WHERE fm.family_id = $1 AND u.push_subscription IS NOT NULL AND u.push_subscription <> ''`
	var subscribers []models.Subscriber
	if err := r.db.SelectContext(ctx, &subscribers, query, familyID); err != nil {
		return nil, fmt.Errorf("list push subscribers: %w", err)
	}
	return subscribers, nil
}
