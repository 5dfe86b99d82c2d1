package domain

import "github.com/google/uuid"

// Product is the catalog record shared by every layer. Its JSON form is both
// the HTTP body and the cache payload, so every field must round-trip.
type Product struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       int64     `json:"price"`
}

// Equal reports whether p and other denote the same record.
func (p Product) Equal(other Product) bool {
	return p.ID == other.ID
}

// ProductInput carries the mutable fields of a product for create and full replace.
type ProductInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
}

// ProductPatch is a partial update; nil fields keep their current value.
type ProductPatch struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Price       *int64  `json:"price,omitempty"`
}

// Apply returns current's fields with the non-nil fields of p replaced.
func (p ProductPatch) Apply(current Product) ProductInput {
	in := ProductInput{
		Name:        current.Name,
		Description: current.Description,
		Price:       current.Price,
	}
	if p.Name != nil {
		in.Name = *p.Name
	}
	if p.Description != nil {
		in.Description = *p.Description
	}
	if p.Price != nil {
		in.Price = *p.Price
	}
	return in
}
