package entity

import "time"

// Contact is a row of the `contacts` table. Every contact belongs to exactly one
// owner (the user who created it); IsActive=false marks a soft delete.
type Contact struct {
	ID        string    `db:"id" json:"id"`
	OwnerID   string    `db:"owner_id" json:"-"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Address   string    `db:"address" json:"address"`
	Timezone  string    `db:"timezone" json:"timezone"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Fields is the mutable part of a contact, written by inserts and updates.
type Fields struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Timezone string `json:"timezone"`
}

// Fields returns the mutable projection of c.
func (c *Contact) Fields() Fields {
	return Fields{Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address, Timezone: c.Timezone}
}

// ExportColumns is the fixed column order of contact exports.
var ExportColumns = []string{"id", "name", "email", "phone", "address", "timezone", "created_at"}

// ListFilter narrows ListActive. Name and Email are substring matches.
type ListFilter struct {
	Name      string
	Email     string
	Timezone  string
	SortField string
	SortOrder string
}
