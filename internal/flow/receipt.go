package flow

import (
	"time"

	"github.com/smartdog/pet-contribution/internal/pet"
	"github.com/smartdog/pet-contribution/internal/store"
)

// Receipt converts an accepted contribution into a history record.
func (s *Success) Receipt(variant string, d pet.Details, at time.Time) *store.Receipt {
	return &store.Receipt{
		Session:             s.Session,
		CreatedAt:           at.UTC(),
		Variant:             variant,
		Species:             string(d.Species),
		Breed:               d.Breed,
		Sex:                 string(d.Sex),
		Age:                 d.Age,
		Name:                d.Name,
		CoatColor:           d.CoatColor,
		Message:             s.Message,
		TransformedImageURL: s.TransformedImageURL,
		Prompt:              s.Prompt,
		HumanAge:            s.HumanAge,
	}
}
