package flow

import (
	"fmt"
	"sort"

	"github.com/smartdog/pet-contribution/internal/photo"
)

// Variant configures which photos and fields a flow asks for.
type Variant struct {
	Name         string
	Slots        []photo.SlotSpec
	RequireName  bool
	AskCoatColor bool
	RequireTerms bool
}

// Contribute is the dataset contribution flow: two required photos, an
// optional third angle, coat colour and terms acceptance.
var Contribute = Variant{
	Name: "contribute",
	Slots: []photo.SlotSpec{
		{ID: photo.SlotFrontal, Label: "Foto frontal", Required: true},
		{ID: photo.SlotFocinho, Label: "Foto do focinho", Required: true},
		{ID: photo.SlotAngulo, Label: "Foto de outro ângulo", Required: false},
	},
	AskCoatColor: true,
	RequireTerms: true,
}

// Transform is the single-photo "pet as human" flow. The backend returns a
// transformed image. The name is optional and only sent when given.
var Transform = Variant{
	Name: "transform",
	Slots: []photo.SlotSpec{
		{ID: photo.SlotFrontal, Label: "Foto frontal", Required: true},
	},
}

var variants = map[string]Variant{
	Contribute.Name: Contribute,
	Transform.Name:  Transform,
}

// LookupVariant returns the built-in variant with the given name.
func LookupVariant(name string) (Variant, error) {
	v, ok := variants[name]
	if !ok {
		return Variant{}, fmt.Errorf("unknown variant %q (want one of %v)", name, VariantNames())
	}
	return v, nil
}

// VariantNames lists the built-in variant names in sorted order.
func VariantNames() []string {
	names := make([]string, 0, len(variants))
	for n := range variants {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
