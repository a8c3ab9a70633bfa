// Package models defines the canonical records stored by the directory.
package models

import "time"

// ItemType tags an Item as something a person offers or asks for.
type ItemType string

const (
	TypeOffer  ItemType = "offer"
	TypeDemand ItemType = "demand"
)

// Valid reports whether t is one of the two canonical values.
func (t ItemType) Valid() bool {
	return t == TypeOffer || t == TypeDemand
}

// Item is one offer or demand line attached to an Entry. Skill is free text;
// grouping in the UI compares skills case-insensitively.
type Item struct {
	Type  ItemType `json:"type"`
	Skill string   `json:"skill"`
}

// Entry is one directory record. ID is assigned server-side at creation and
// immutable afterwards. CreatedAt is set once; UpdatedAt is zero until the
// first successful mutation.
type Entry struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Phone     string    `json:"phone"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Patch carries a partial update for an Entry. Nil fields keep the prior
// value; Items, when set, replaces the stored list wholesale.
type Patch struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Phone     *string `json:"phone"`
	Items     *[]Item `json:"items"`
}
