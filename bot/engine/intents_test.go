package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		text string
		want Intent
	}{
		{"donde queda la tienda?", IntentLocation},
		{"DONDE ESTAN UBICADOS", IntentLocation},
		{"como llegar al showroom", IntentLocation},
		{"ayuda por favor", IntentHelp},
		{"no entiendo que hacer", IntentHelp},
		{"quiero hablar con un asesor", IntentHandoff},
		{"pásame con un humano", IntentHandoff},
		{"ya no quiero", IntentExit},
		{"chau", IntentExit},
		{"cancelar todo", IntentExit},
		{"quiero una camioneta roja", IntentNone},
		{"", IntentNone},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.text), "text %q", tc.text)
	}
}

func TestClassifyPriorityOrder(t *testing.T) {
	// Location outranks handoff when both keyword sets match.
	require.Equal(t, IntentLocation, Classify("una persona me dijo que pregunte la dirección"))
	// Help outranks exit.
	require.Equal(t, IntentHelp, Classify("ayuda, quiero salir"))
}
