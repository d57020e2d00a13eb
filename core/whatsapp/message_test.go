package whatsapp

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestNewButtonsCapsOptions(t *testing.T) {
	msg := NewButtons("51999888777", "Elija una opción", []string{"Uno", "Dos", "Tres", "Cuatro"})

	require.Equal(t, "interactive", msg.Type)
	require.NotNil(t, msg.Interactive)
	require.Equal(t, "button", msg.Interactive.Type)
	require.Len(t, msg.Interactive.Action.Buttons, MaxButtons)
	require.Equal(t, "Uno", msg.Interactive.Action.Buttons[0].Reply.Title)
	require.Equal(t, "Tres", msg.Interactive.Action.Buttons[2].Reply.Title)
	require.Equal(t, "btn_2", msg.Interactive.Action.Buttons[2].Reply.ID)
}

func TestNewButtonsKeepsShortLists(t *testing.T) {
	msg := NewButtons("51999888777", "¿Continuamos?", []string{"Sí", "No"})
	require.Len(t, msg.Interactive.Action.Buttons, 2)
}

func TestNewButtonsTruncatesLongTitles(t *testing.T) {
	long := strings.Repeat("ó", 30)
	msg := NewButtons("51999888777", "Elija una opción", []string{long, "Corta"})

	titles := msg.Interactive.Action.Buttons
	require.Equal(t, MaxButtonTitle, utf8.RuneCountInString(titles[0].Reply.Title))
	require.Equal(t, strings.Repeat("ó", MaxButtonTitle), titles[0].Reply.Title)
	require.Equal(t, "Corta", titles[1].Reply.Title)
}

func TestNewListTruncatesRowDescriptions(t *testing.T) {
	long := strings.Repeat("á", 90)
	msg := NewList("51999888777", "Modelos", "Seleccione un modelo", "Ver modelos", []ListSection{
		{Title: "Camionetas", Rows: []ListRow{
			{ID: "row_0", Title: "D-MAX", Description: long},
			{ID: "row_1", Title: "MU-X", Description: "corta"},
		}},
	})

	require.Equal(t, "interactive", msg.Type)
	require.Equal(t, "list", msg.Interactive.Type)
	rows := msg.Interactive.Action.Sections[0].Rows
	require.Equal(t, MaxRowDescription, utf8.RuneCountInString(rows[0].Description))
	require.Equal(t, "corta", rows[1].Description)
}

func TestNewTextShape(t *testing.T) {
	msg := NewText("51999888777", "hola")
	require.Equal(t, "whatsapp", msg.MessagingProduct)
	require.Equal(t, "text", msg.Type)
	require.Equal(t, "hola", msg.Text.Body)
}

func TestNewLocationShape(t *testing.T) {
	msg := NewLocation("51999888777", -12.046374, -77.042793, "Isuzu Cisne", "Av. Industrial 123, Lima")
	require.Equal(t, "location", msg.Type)
	require.NotNil(t, msg.Location)
	require.Equal(t, "Isuzu Cisne", msg.Location.Name)
}
