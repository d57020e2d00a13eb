package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractTextPlain(t *testing.T) {
	msg := InboundMessage{
		Type: TypeText,
		Text: &TextBody{Body: "hola, quiero información"},
	}
	got, ok := ExtractText(msg)
	require.True(t, ok)
	require.Equal(t, "hola, quiero información", got)
}

func TestExtractTextButtonReply(t *testing.T) {
	msg := InboundMessage{
		Type: TypeInteractive,
		Interactive: &Interactive{
			Type:        "button_reply",
			ButtonReply: &OptionReply{ID: "btn_0", Title: "Camión Isuzu"},
		},
	}
	got, ok := ExtractText(msg)
	require.True(t, ok)
	require.Equal(t, "Camión Isuzu", got)
}

func TestExtractTextListReply(t *testing.T) {
	msg := InboundMessage{
		Type: TypeInteractive,
		Interactive: &Interactive{
			Type:      "list_reply",
			ListReply: &OptionReply{ID: "row_1", Title: "D-MAX 4x4"},
		},
	}
	got, ok := ExtractText(msg)
	require.True(t, ok)
	require.Equal(t, "D-MAX 4x4", got)
}

func TestExtractTextUnsupported(t *testing.T) {
	cases := []InboundMessage{
		{Type: "sticker"},
		{Type: TypeText},
		{Type: TypeInteractive},
		{Type: TypeInteractive, Interactive: &Interactive{Type: "nfm_reply"}},
	}
	for _, msg := range cases {
		got, ok := ExtractText(msg)
		require.False(t, ok)
		require.Empty(t, got)
	}
}
