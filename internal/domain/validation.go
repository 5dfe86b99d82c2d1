package domain

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	MaxNameLength        = 255
	MaxDescriptionLength = 4096
)

func (in ProductInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required, validation.Length(1, MaxNameLength)),
		validation.Field(&in.Description, validation.Length(0, MaxDescriptionLength)),
		validation.Field(&in.Price, validation.Min(int64(0))),
	)
}

func (p ProductPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(1, MaxNameLength)),
		validation.Field(&p.Description, validation.Length(0, MaxDescriptionLength)),
		validation.Field(&p.Price, validation.Min(int64(0))),
	)
}
