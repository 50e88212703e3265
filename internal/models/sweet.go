package models

import "time"

type Sweet struct {
	ID         string      `json:"_id"`
	Name       string      `json:"name"`
	Category   string      `json:"category"`
	Price      float64     `json:"price"`
	Quantity   int         `json:"quantity"`
	LastAction *LastAction `json:"last_action,omitempty"`
	History    []Action    `json:"history,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

type LastAction struct {
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	By       string `json:"by,omitempty"`
}

type Action struct {
	Type     string    `json:"type"`
	Quantity int       `json:"quantity"`
	By       string    `json:"by,omitempty"`
	At       time.Time `json:"at,omitempty"`
}

// SweetInput carries the locally-entered values for an add or edit form.
type SweetInput struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// SweetPatch mirrors a mutation response from the backend, where any field
// may be omitted. Pointers distinguish "absent" from a legitimate zero so
// the services can fall back to the locally-entered value per field.
type SweetPatch struct {
	ID         *string     `json:"_id"`
	Name       *string     `json:"name"`
	Category   *string     `json:"category"`
	Price      *float64    `json:"price"`
	Quantity   *int        `json:"quantity"`
	LastAction *LastAction `json:"last_action"`
	History    []Action    `json:"history"`
	CreatedAt  *time.Time  `json:"createdAt"`
	UpdatedAt  *time.Time  `json:"updatedAt"`
}

type SearchQuery struct {
	Category string
	LowPrice string
	Name     string
}

func (q SearchQuery) IsEmpty() bool {
	return q.Category == "" && q.LowPrice == "" && q.Name == ""
}
