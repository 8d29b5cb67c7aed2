package models

import "time"

// Family groups users sharing one calendar.
type Family struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	JoinCode  string    `db:"join_code" json:"join_code"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FamilyInfo is the family summary returned to clients.
type FamilyInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	JoinCode string `json:"join_code"`
}

// Info converts the row into its response shape.
func (f Family) Info() FamilyInfo {
	return FamilyInfo{ID: f.ID, Name: f.Name, JoinCode: f.JoinCode}
}

// Profile is returned by GET /me.
type Profile struct {
	User    User       `json:"user"`
	Family  FamilyInfo `json:"family"`
	Members []Member   `json:"members"`
}
