package domain

import "time"

// Document holds the identity and timestamps the storage layer assigns to every entity.
// The id is a single string identifier: "id" on the wire, "_id" in the document database.
type Document struct {
	ID        string    `json:"id" bson:"_id"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// GetID returns the storage identifier.
func (d Document) GetID() string { return d.ID }
