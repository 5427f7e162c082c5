// Package pet holds the pet details collected by the contribution form and
// the fixed option lists offered for them.
package pet

import (
	"fmt"
	"strings"
)

// Species of the pet. The zero value means the user has not chosen yet.
type Species string

const (
	SpeciesUnset Species = ""
	SpeciesDog   Species = "dog"
	SpeciesCat   Species = "cat"
)

// Sex of the pet. The zero value means the user has not chosen yet.
type Sex string

const (
	SexUnset  Sex = ""
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// Field names accepted by Details.SetField.
const (
	FieldName      = "name"
	FieldSpecies   = "species"
	FieldBreed     = "breed"
	FieldSex       = "sex"
	FieldAge       = "age"
	FieldCoatColor = "coat"
)

var speciesLabels = map[Species]string{
	SpeciesDog: "Cachorro",
	SpeciesCat: "Gato",
}

var sexLabels = map[Sex]string{
	SexMale:   "Macho",
	SexFemale: "Fêmea",
}

// Label returns the displayed label of the species.
func (s Species) Label() string { return speciesLabels[s] }

// Label returns the displayed label of the sex.
func (s Sex) Label() string { return sexLabels[s] }

// ParseSpecies accepts either the token ("dog") or the displayed label
// ("Cachorro"), case-insensitively. An empty string yields SpeciesUnset.
func ParseSpecies(v string) (Species, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return SpeciesUnset, nil
	}
	for s, label := range speciesLabels {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, label) {
			return s, nil
		}
	}
	return SpeciesUnset, fmt.Errorf("unknown species %q", v)
}

// ParseSex accepts either the token ("female") or the displayed label
// ("Fêmea"), case-insensitively. An empty string yields SexUnset.
func ParseSex(v string) (Sex, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return SexUnset, nil
	}
	for s, label := range sexLabels {
		if strings.EqualFold(v, string(s)) || strings.EqualFold(v, label) {
			return s, nil
		}
	}
	return SexUnset, fmt.Errorf("unknown sex %q", v)
}

// Details is the metadata entered for one contribution.
type Details struct {
	Name      string
	Species   Species
	Breed     string
	Sex       Sex
	Age       string
	CoatColor string
}

// SetSpecies sets the species. Breed lists are species-scoped, so choosing a
// different species clears the breed.
func (d *Details) SetSpecies(s Species) {
	if s != d.Species {
		d.Breed = ""
	}
	d.Species = s
}

// SetField is the generic setter used by form handlers. Values are trimmed;
// species and sex are parsed from token or label.
func (d *Details) SetField(name, value string) error {
	value = strings.TrimSpace(value)
	switch name {
	case FieldName:
		d.Name = value
	case FieldSpecies:
		s, err := ParseSpecies(value)
		if err != nil {
			return err
		}
		d.SetSpecies(s)
	case FieldBreed:
		d.Breed = value
	case FieldSex:
		s, err := ParseSex(value)
		if err != nil {
			return err
		}
		d.Sex = s
	case FieldAge:
		d.Age = value
	case FieldCoatColor:
		d.CoatColor = value
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

// Reset clears every field.
func (d *Details) Reset() {
	*d = Details{}
}
