package models

import "time"

// User represents a family member stored in the users table.
type User struct {
	ID               string    `db:"id" json:"id"`
	Name             string    `db:"name" json:"name"`
	Email            *string   `db:"email" json:"email"`
	Color            *string   `db:"color" json:"color"`
	PushSubscription *string   `db:"push_subscription" json:"-"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

// HasPushSubscription reports whether the browser registered for digests.
func (u User) HasPushSubscription() bool {
	return u.PushSubscription != nil && *u.PushSubscription != ""
}

// Member is the public view of a user inside a family listing.
type Member struct {
	ID    string  `db:"id" json:"id"`
	Name  string  `db:"name" json:"name"`
	Email *string `db:"email" json:"email"`
	Color *string `db:"color" json:"color"`
}

// Subscriber pairs a member with the stored push subscription JSON.
type Subscriber struct {
	UserID       string `db:"id"`
	Name         string `db:"name"`
	Subscription string `db:"push_subscription"`
}
