package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cisnemotors/leadbot/bot/engine"
)

func TestFormatLeadSummary(t *testing.T) {
	lead := engine.Lead{
		Phone:             "51999888777",
		Name:              "Juan Perez",
		DNIRuc:            "10283749",
		Location:          "Lima",
		Category:          "Camionetas",
		Model:             "D-MAX 4x4",
		Color:             "Rojo",
		PreferredCallTime: "mañana por la tarde",
		CreatedAt:         time.Date(2026, 8, 20, 10, 30, 0, 0, time.UTC),
		Status:            "COMPLETED",
	}

	got := FormatLeadSummary(lead)
	require.Contains(t, got, "NUEVO LEAD - ISUZU CISNE")
	require.Contains(t, got, "*Cliente:* Juan Perez")
	require.Contains(t, got, "*Teléfono:* +51999888777")
	require.Contains(t, got, "*DNI/RUC:* 10283749")
	require.Contains(t, got, "• Modelo: D-MAX 4x4")
	require.Contains(t, got, "*Llamar:* mañana por la tarde")
	require.Contains(t, got, "20/08/2026 10:30")
	require.Contains(t, got, "_Estado: COMPLETED_")
}

func TestFormatLeadSummaryDefaults(t *testing.T) {
	got := FormatLeadSummary(engine.Lead{Phone: "51999888777"})
	require.Contains(t, got, "*Cliente:* N/A")
	require.Contains(t, got, "*Llamar:* A coordinar")
	require.NotContains(t, got, "Registrado")
}

func TestFormatHandoff(t *testing.T) {
	got := FormatHandoff("51999888777", "Juan Perez", "Cliente solicitó hablar con un asesor")
	require.Contains(t, got, "ATENCIÓN REQUERIDA")
	require.Contains(t, got, "*Cliente:* Juan Perez")
	require.Contains(t, got, "+51999888777")
}
