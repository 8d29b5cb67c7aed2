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

const eventColumns = `id, family_id, created_by, title, description, date, time, repeat_rule, all_day, member_id, location, created_at, updated_at`

// EventRepository provides database access for calendar events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository creates a new EventRepository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

// ListForRange returns the events that can produce an occurrence between
// start and end (YYYY-MM-DD, inclusive): anything anchored inside the range
// and every series anchored before its end.
func (r *EventRepository) ListForRange(ctx context.Context, familyID, start, end string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE family_id = $1 AND date <= $3 AND (repeat_rule IS NOT NULL OR date >= $2) ORDER BY date ASC, time ASC NULLS FIRST, created_at ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, familyID, start, end); err != nil {
		return nil, fmt.Errorf("list events for range: %w", err)
	}
	return events, nil
}

// ListByFamily returns every stored event of a family.
func (r *EventRepository) ListByFamily(ctx context.Context, familyID string) ([]models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE family_id = $1 ORDER BY date ASC, time ASC NULLS FIRST, created_at ASC`
	var events []models.Event
	if err := r.db.SelectContext(ctx, &events, query, familyID); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// FindByID returns an event scoped to its family.
func (r *EventRepository) FindByID(ctx context.Context, familyID, id string) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1 AND family_id = $2 LIMIT 1`
	var event models.Event
	if err := r.db.GetContext(ctx, &event, query, id, familyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return &event, nil
}

// Create inserts a new event.
func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = now
	}
	event.UpdatedAt = now

	const query = `INSERT INTO events (id, family_id, created_by, title, description, date, time, repeat_rule, all_day, member_id, location, created_at, updated_at) VALUES (:id, :family_id, :created_by, :title, :description, :date, :time, :repeat_rule, :all_day, :member_id, :location, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

// Update replaces the mutable columns of an event within its family.
func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	event.UpdatedAt = time.Now().UTC()
	const query = `UPDATE events SET title = :title, description = :description, date = :date, time = :time, repeat_rule = :repeat_rule, all_day = :all_day, member_id = :member_id, location = :location, updated_at = :updated_at WHERE id = :id AND family_id = :family_id`
	res, err := r.db.NamedExecContext(ctx, query, event)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes an event. It returns sql.ErrNoRows when nothing matched.
func (r *EventRepository) Delete(ctx context.Context, familyID, id string) error {
	const query = `DELETE FROM events WHERE id = $1 AND family_id = $2`
	res, err := r.db.ExecContext(ctx, query, id, familyID)
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
