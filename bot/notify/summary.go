package notify

import (
	"fmt"
	"strings"

	"github.com/cisnemotors/leadbot/bot/engine"
)

// FormatLeadSummary renders the Markdown lead card posted to the operator
// chat when a conversation reaches the terminal step.
func FormatLeadSummary(lead engine.Lead) string {
	var b strings.Builder
	b.WriteString("🔔 *NUEVO LEAD - ISUZU CISNE*\n\n")
	fmt.Fprintf(&b, "👤 *Cliente:* %s\n", orNA(lead.Name))
	fmt.Fprintf(&b, "📱 *Teléfono:* +%s\n", orNA(lead.Phone))
	fmt.Fprintf(&b, "🆔 *DNI/RUC:* %s\n", orNA(lead.DNIRuc))
	fmt.Fprintf(&b, "📍 *Ubicación:* %s\n\n", orNA(lead.Location))
	b.WriteString("🚗 *Interés:*\n")
	fmt.Fprintf(&b, "• Categoría: %s\n", orNA(lead.Category))
	fmt.Fprintf(&b, "• Modelo: %s\n", orNA(lead.Model))
	fmt.Fprintf(&b, "• Color: %s\n\n", orNA(lead.Color))
	callTime := lead.PreferredCallTime
	if callTime == "" {
		callTime = "A coordinar"
	}
	fmt.Fprintf(&b, "📞 *Llamar:* %s\n\n", callTime)
	if !lead.CreatedAt.IsZero() {
		fmt.Fprintf(&b, "⏰ *Registrado:* %s\n\n", lead.CreatedAt.Format("02/01/2006 15:04"))
	}
	fmt.Fprintf(&b, "_Estado: %s_", orNA(lead.Status))
	return b.String()
}

// FormatHandoff renders the short alert for a human-handoff request.
func FormatHandoff(identity, displayName, reason string) string {
	return fmt.Sprintf("🙋 *ATENCIÓN REQUERIDA*\n\n"+
		"👤 *Cliente:* %s\n"+
		"📱 *Teléfono:* +%s\n"+
		"📝 *Motivo:* %s\n\n"+
		"_Responder por WhatsApp lo antes posible._",
		orNA(displayName), orNA(identity), orNA(reason))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
