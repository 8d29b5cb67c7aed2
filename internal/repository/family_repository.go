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

// FamilyRepository persists families and their memberships.
type FamilyRepository struct {
	db *sqlx.DB
}

// NewFamilyRepository creates a new FamilyRepository.
func NewFamilyRepository(db *sqlx.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

// FindByID returns a family by identifier.
func (r *FamilyRepository) FindByID(ctx context.Context, id string) (*models.Family, error) {
	const query = `SELECT id, name, join_code, created_at FROM families WHERE id = $1 LIMIT 1`
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find family by id: %w", err)
	}
	return &family, nil
}

// FindByJoinCode returns the family owning an upper-cased join code.
func (r *FamilyRepository) FindByJoinCode(ctx context.Context, code string) (*models.Family, error) {
	const query = `SELECT id, name, join_code, created_at FROM families WHERE join_code = $1 LIMIT 1`
	var family models.Family
	if err := r.db.GetContext(ctx, &family, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find family by join code: %w", err)
	}
	return &family, nil
}

// JoinCodeExists reports whether a join code is already taken.
func (r *FamilyRepository) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM families WHERE join_code = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, code); err != nil {
		return false, fmt.Errorf("check join code: %w", err)
	}
	return exists, nil
}

// Create inserts a new family.
func (r *FamilyRepository) Create(ctx context.Context, family *models.Family) error {
	if family.ID == "" {
		family.ID = uuid.NewString()
	}
	if family.CreatedAt.IsZero() {
		family.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO families (id, name, join_code, created_at) VALUES (:id, :name, :join_code, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, family); err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	return nil
}

// AddMember links a user to a family. Existing memberships are left untouched.
func (r *FamilyRepository) AddMember(ctx context.Context, familyID, userID string) error {
	const query = `INSERT INTO family_members (family_id, user_id, joined_at) VALUES ($1, $2, $3) ON CONFLICT (family_id, user_id) DO NOTHING`
	if _, err := r.db.ExecContext(ctx, query, familyID, userID, time.Now().UTC()); err != nil {
		return fmt.Errorf("add family member: %w", err)
	}
	return nil
}

// ListIDs returns every family identifier.
func (r *FamilyRepository) ListIDs(ctx context.Context) ([]string, error) {
	const query = `SELECT id FROM families ORDER BY created_at ASC`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	return ids, nil
}
