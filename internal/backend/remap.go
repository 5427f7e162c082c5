package backend

import "strings"

// Multipart field names expected by the transform endpoint.
const (
	FieldSession = "session"
	FieldBreed   = "breed"
	FieldSex     = "sex"
	FieldAge     = "age"
	FieldSpecies = "especie"
	FieldName    = "name"
	FieldCoat    = "pelagem"
)

// remapTable translates user-facing option values into the tokens the
// backend expects, per field. Keys are lower-cased.
var remapTable = map[string]map[string]string{
	FieldSex: {
		"male":   "macho",
		"macho":  "macho",
		"female": "fêmea",
		"fêmea":  "fêmea",
		"femea":  "fêmea",
	},
	FieldSpecies: {
		"dog":      "cachorro",
		"cachorro": "cachorro",
		"cão":      "cachorro",
		"cat":      "gato",
		"gato":     "gato",
	},
	FieldCoat: {
		"preto":              "preto",
		"branco":             "branco",
		"marrom / chocolate": "marrom",
		"caramelo / dourado": "caramelo",
		"cinza / azul":       "cinza",
		"preto e branco":     "pb",
		"tricolor":           "tricolor",
		"tigrado":            "tigrado",
		"malhado":            "malhado",
	},
}

// Remap returns the backend token for a displayed value of field. Values
// absent from the table pass through unchanged.
func Remap(field, value string) string {
	table, ok := remapTable[field]
	if !ok {
		return value
	}
	if token, ok := table[strings.ToLower(strings.TrimSpace(value))]; ok {
		return token
	}
	return value
}
