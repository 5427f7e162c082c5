package pet

import "strings"

// MixedBreed is offered for both species.
const MixedBreed = "SRD (Sem Raça Definida)"

var dogBreeds = []string{
	MixedBreed,
	"Beagle",
	"Border Collie",
	"Buldogue Francês",
	"Chihuahua",
	"Dachshund",
	"Golden Retriever",
	"Labrador",
	"Lhasa Apso",
	"Maltês",
	"Pastor Alemão",
	"Pinscher",
	"Pit Bull",
	"Poodle",
	"Pug",
	"Rottweiler",
	"Shih Tzu",
	"Spitz Alemão",
	"Yorkshire",
}

var catBreeds = []string{
	MixedBreed,
	"Angorá",
	"Bengal",
	"Maine Coon",
	"Persa",
	"Ragdoll",
	"Siamês",
	"Sphynx",
}

// CoatColors lists the coat colour labels offered by the form, in display
// order. The backend receives a short code for each (see backend.Remap).
var CoatColors = []string{
	"Preto",
	"Branco",
	"Marrom / Chocolate",
	"Caramelo / Dourado",
	"Cinza / Azul",
	"Preto e Branco",
	"Tricolor",
	"Tigrado",
	"Malhado",
}

// BreedOptions returns the breed list for the species. An unset species has
// no options.
func BreedOptions(s Species) []string {
	switch s {
	case SpeciesDog:
		return append([]string(nil), dogBreeds...)
	case SpeciesCat:
		return append([]string(nil), catBreeds...)
	}
	return nil
}

// IsKnownCoatColor reports whether v is one of CoatColors.
func IsKnownCoatColor(v string) bool {
	for _, c := range CoatColors {
		if strings.EqualFold(c, v) {
			return true
		}
	}
	return false
}
