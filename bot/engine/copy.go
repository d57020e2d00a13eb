package engine

import (
	"fmt"
	"strings"

	"github.com/cisnemotors/leadbot/bot/store"
	"github.com/cisnemotors/leadbot/core/whatsapp"
)

// Canonical vehicle categories.
const (
	CategoryTruck  = "Camión Isuzu"
	CategoryPickup = "Camionetas"
)

// Models offered per category, at most two list rows each.
var modelCatalog = map[string][]whatsapp.ListRow{
	CategoryTruck: {
		{ID: "model_nqr", Title: "Serie N NQR", Description: "Camión ligero de reparto, hasta 5.5 toneladas de carga útil"},
		{ID: "model_fvr", Title: "Serie F FVR", Description: "Camión pesado para ruta larga, chasis reforzado"},
	},
	CategoryPickup: {
		{ID: "model_dmax_4x2", Title: "D-MAX 4x2", Description: "Camioneta de trabajo, doble cabina, motor 1.9 turbo diésel"},
		{ID: "model_dmax_4x4", Title: "D-MAX 4x4", Description: "Todo terreno, tracción integral, ideal para minería y campo"},
	},
}

var colorRows = []whatsapp.ListRow{
	{ID: "color_blanco", Title: "Blanco"},
	{ID: "color_rojo", Title: "Rojo"},
	{ID: "color_azul", Title: "Azul"},
	{ID: "color_negro", Title: "Negro"},
	{ID: "color_gris", Title: "Gris"},
	{ID: "color_plata", Title: "Plata"},
}

// affirmativeWords restart a finished conversation. Matched as whole words so
// "si" does not fire inside unrelated text.
var affirmativeWords = map[string]bool{
	"si": true, "sí": true, "claro": true, "ok": true, "dale": true, "empezar": true,
}

var affirmativePhrases = []string{"de nuevo", "otra vez", "nueva consulta"}

func isAffirmative(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, word := range strings.Fields(lower) {
		if affirmativeWords[strings.Trim(word, ".,!¡¿?")] {
			return true
		}
	}
	for _, phrase := range affirmativePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// greetingForHour picks the salutation for a local hour using the 5/12/18
// boundaries: early morning counts as night.
func greetingForHour(hour int) string {
	switch {
	case hour >= 5 && hour < 12:
		return "Buenos días"
	case hour >= 12 && hour < 18:
		return "Buenas tardes"
	default:
		return "Buenas noches"
	}
}

const (
	welcomeCopy = "¡Hola! 👋 Bienvenido a *Isuzu Cisne*.\n\n" +
		"Te ayudo a registrar tu interés en un vehículo para que un asesor te llame.\n\n" +
		"Para empezar, ¿me dices tu nombre completo?"

	idLocationPromptCopy = "Para continuar, escríbeme tu DNI (8 dígitos) o RUC (11 dígitos) junto con tu ciudad.\n\n" +
		"Ejemplo: 10283749, Lima"

	categoryPromptCopy = "¿Qué tipo de vehículo te interesa?"

	callTimePromptCopy = "¿En qué horario prefieres que te llamemos? 📞\n\n" +
		"Por ejemplo: hoy por la tarde, mañana después de las 3pm."

	alreadyRegisteredCopy = "Ya registramos tus datos 😊 Un asesor se pondrá en contacto contigo pronto.\n\n" +
		"¿Deseas registrar una nueva consulta? Responde *sí* para empezar de nuevo."

	locationInfoCopy = "Te esperamos de lunes a sábado de 9am a 7pm. ¡Pregunta por el área de ventas! 🚗"

	handoffAckCopy = "Entendido 🤝 Te comunico con un asesor. En unos minutos se pondrá en contacto contigo por este mismo chat."

	farewellCopy = "Gracias por escribirnos 😊 Si deseas retomar tu consulta, escríbenos cuando quieras. ¡Hasta pronto!"

	fallbackRetryCopy = "Por favor intenta nuevamente."
)

func idLocationGreeting(hour int, name string) string {
	first := name
	if i := strings.IndexByte(name, ' '); i > 0 {
		first = name[:i]
	}
	return fmt.Sprintf("%s, %s 😊\n\n%s", greetingForHour(hour), first, idLocationPromptCopy)
}

func confirmationCopy(name, model, color, callTime string) string {
	first := name
	if i := strings.IndexByte(name, ' '); i > 0 {
		first = name[:i]
	}
	return fmt.Sprintf("¡Listo, %s! ✅\n\nRegistramos tu interés en *%s* color *%s*.\n"+
		"Un asesor te llamará: %s.\n\n¡Gracias por confiar en Isuzu Cisne! 🚚", first, model, color, callTime)
}

// retryCopy escalates across three tiers per (identity, step): a nudge, a
// concrete example, then an offer of human help. Counts past three stay on
// the last tier.
func retryCopy(step store.Step, retryCount int) string {
	tiers, ok := retryTiers[step]
	if !ok {
		return fallbackRetryCopy
	}
	if retryCount < 1 {
		retryCount = 1
	}
	if retryCount > len(tiers) {
		retryCount = len(tiers)
	}
	return tiers[retryCount-1]
}

var retryTiers = map[store.Step][]string{
	store.StepWaitingName: {
		"⚠️ Por favor, escribe tu nombre completo (nombre y apellido).",
		"Por ejemplo: *Juan Pérez* o *María González*",
		"Necesito tu nombre para continuar. Si tienes problemas, escribe 'ayuda'.",
	},
	store.StepWaitingIDLocation: {
		"⚠️ Por favor, escribe tu DNI (8 dígitos) o RUC (11 dígitos) seguido de tu ciudad.\n\nEjemplo: 10283749, Lima",
		"Formato correcto:\n*DNI ciudad*\n\nEjemplo: 45678912 Arequipa",
		"Si necesitas ayuda, escribe 'ayuda' o te comunico con un asesor.",
	},
	store.StepWaitingCategory: {
		"⚠️ Por favor, selecciona una opción tocando los botones de arriba 👆",
		"Debes presionar uno de los botones para continuar.",
		"¿Necesitas ayuda? Escribe 'ayuda' para asistencia.",
	},
}

// helpCopy returns contextual help for the user's current step.
func helpCopy(step store.Step) string {
	switch step {
	case store.StepWaitingName:
		return "Solo necesito tu nombre y apellido para registrarte. Por ejemplo: *Juan Pérez*."
	case store.StepWaitingIDLocation:
		return "Escribe tu DNI (8 dígitos) o RUC (11 dígitos) y tu ciudad en un solo mensaje.\n\nEjemplo: 10283749, Lima"
	case store.StepWaitingCategory, store.StepWaitingModel, store.StepWaitingColor:
		return "Toca una de las opciones que te envié, o escribe tu respuesta. Si prefieres hablar con una persona, escribe 'asesor'."
	default:
		return "Estoy aquí para ayudarte a registrar tu interés en un vehículo. Responde las preguntas una por una y un asesor te llamará. Si prefieres atención directa, escribe 'asesor'."
	}
}
