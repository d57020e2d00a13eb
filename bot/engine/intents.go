package engine

import "strings"

// Intent is a cross-cutting user goal detected independent of the current
// step, letting users escape the funnel at any point.
type Intent string

const (
	IntentNone     Intent = ""
	IntentLocation Intent = "location_request"
	IntentHelp     Intent = "help"
	IntentHandoff  Intent = "human_handoff"
	IntentExit     Intent = "exit"
)

// intentOrder fixes match priority: the first intent whose keyword set hits
// wins, so "ayuda para llegar" resolves before the handoff keywords get a look.
var intentOrder = []Intent{IntentLocation, IntentHelp, IntentHandoff, IntentExit}

var intentKeywords = map[Intent][]string{
	IntentLocation: {
		"ubicación", "ubicacion", "dirección", "direccion",
		"donde están", "donde esta", "como llegar", "donde queda",
		"local", "tienda", "sede", "oficina", "showroom",
	},
	IntentHelp: {
		"ayuda", "no entiendo", "explicar", "como funciona",
		"que hago", "confundido", "explicame",
	},
	IntentHandoff: {
		"hablar con", "persona", "asesor", "asesora", "humano",
		"alguien", "operador", "atencion",
	},
	IntentExit: {
		"salir", "cancelar", "no quiero", "chau", "adios",
		"terminar", "ya no",
	},
}

// Classify matches text against the fixed keyword sets, case-insensitive
// substring semantics. Returns IntentNone when nothing matches.
func Classify(text string) Intent {
	lower := strings.ToLower(text)
	for _, intent := range intentOrder {
		for _, keyword := range intentKeywords[intent] {
			if strings.Contains(lower, keyword) {
				return intent
			}
		}
	}
	return IntentNone
}
