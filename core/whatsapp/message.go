package whatsapp

import "fmt"

const (
	// MaxButtons is the Cloud API ceiling on reply buttons per message.
	MaxButtons = 3
	// MaxButtonTitle is the Cloud API limit on reply button title length.
	MaxButtonTitle = 20
	// MaxRowDescription is the Cloud API limit on list row description length.
	MaxRowDescription = 70

	messagingProduct        = "whatsapp"
	recipientTypeIndividual = "individual"
)

// Message is an outbound Cloud API payload. Exactly one of the typed bodies is
// set, matching the Type field.
type Message struct {
	MessagingProduct string `json:"messaging_product"`
	RecipientType    string `json:"recipient_type,omitempty"`
	To               string `json:"to"`
	Type             string `json:"type"`

	Text        *TextBody           `json:"text,omitempty"`
	Interactive *InteractivePayload `json:"interactive,omitempty"`
	Location    *LocationBody       `json:"location,omitempty"`
	Image       *MediaLink          `json:"image,omitempty"`
	Audio       *MediaLink          `json:"audio,omitempty"`
	Video       *MediaLink          `json:"video,omitempty"`
	Document    *MediaLink          `json:"document,omitempty"`
}

// InteractivePayload is the outbound interactive envelope (buttons or list).
type InteractivePayload struct {
	Type   string       `json:"type"`
	Header *ListHeader  `json:"header,omitempty"`
	Body   *BodyText    `json:"body"`
	Footer *BodyText    `json:"footer,omitempty"`
	Action *ActionBlock `json:"action"`
}

// BodyText wraps a text fragment of an interactive message.
type BodyText struct {
	Text string `json:"text"`
}

// ListHeader is the typed header of a list message.
type ListHeader struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ActionBlock carries either reply buttons or list sections.
type ActionBlock struct {
	Buttons  []ReplyButton `json:"buttons,omitempty"`
	Button   string        `json:"button,omitempty"`
	Sections []ListSection `json:"sections,omitempty"`
}

// ReplyButton is one tappable reply option.
type ReplyButton struct {
	Type  string      `json:"type"`
	Reply OptionReply `json:"reply"`
}

// ListSection groups titled rows in a list message.
type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

// ListRow is one selectable row of a list message.
type ListRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// LocationBody is a shared location pin.
type LocationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Name      string  `json:"name,omitempty"`
	Address   string  `json:"address,omitempty"`
}

// MediaLink references hosted media by URL.
type MediaLink struct {
	Link string `json:"link"`
}

// NewText builds a plain text message.
func NewText(to, body string) Message {
	return Message{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             "text",
		Text:             &TextBody{Body: body},
	}
}

// NewButtons builds a reply-button message. Options beyond MaxButtons are
// dropped and titles are truncated to MaxButtonTitle characters so the
// payload is never rejected by the provider.
func NewButtons(to, body string, options []string) Message {
	if len(options) > MaxButtons {
		options = options[:MaxButtons]
	}
	buttons := make([]ReplyButton, 0, len(options))
	for i, title := range options {
		buttons = append(buttons, ReplyButton{
			Type:  "reply",
			Reply: OptionReply{ID: fmt.Sprintf("btn_%d", i), Title: truncate(title, MaxButtonTitle)},
		})
	}
	return Message{
		MessagingProduct: messagingProduct,
		RecipientType:    recipientTypeIndividual,
		To:               to,
		Type:             "interactive",
		Interactive: &InteractivePayload{
			Type:   "button",
			Body:   &BodyText{Text: body},
			Action: &ActionBlock{Buttons: buttons},
		},
	}
}

// NewList builds a list message. Row descriptions are truncated to the
// provider limit of MaxRowDescription characters.
func NewList(to, header, body, buttonLabel string, sections []ListSection) Message {
	out := make([]ListSection, len(sections))
	for i, section := range sections {
		rows := make([]ListRow, len(section.Rows))
		for j, row := range section.Rows {
			row.Description = truncate(row.Description, MaxRowDescription)
			rows[j] = row
		}
		out[i] = ListSection{Title: section.Title, Rows: rows}
	}
	return Message{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             "interactive",
		Interactive: &InteractivePayload{
			Type:   "list",
			Header: &ListHeader{Type: "text", Text: header},
			Body:   &BodyText{Text: body},
			Footer: &BodyText{Text: "Seleccione una opción"},
			Action: &ActionBlock{Button: buttonLabel, Sections: out},
		},
	}
}

// NewLocation builds a location pin message.
func NewLocation(to string, lat, lon float64, name, address string) Message {
	return Message{
		MessagingProduct: messagingProduct,
		To:               to,
		Type:             "location",
		Location: &LocationBody{
			Latitude:  lat,
			Longitude: lon,
			Name:      name,
			Address:   address,
		},
	}
}

// NewImage builds an image message referencing hosted media.
func NewImage(to, link string) Message {
	return Message{
		MessagingProduct: messagingProduct,
		RecipientType:    recipientTypeIndividual,
		To:               to,
		Type:             "image",
		Image:            &MediaLink{Link: link},
	}
}

// NewAudio builds an audio message referencing hosted media.
func NewAudio(to, link string) Message {
	return Message{
		MessagingProduct: messagingProduct,
		RecipientType:    recipientTypeIndividual,
		To:               to,
		Type:             "audio",
		Audio:            &MediaLink{Link: link},
	}
}

// NewVideo builds a video message referencing hosted media.
func NewVideo(to, link string) Message {
	return Message{
		MessagingProduct: messagingProduct,
		RecipientType:    recipientTypeIndividual,
		To:               to,
		Type:             "video",
		Video:            &MediaLink{Link: link},
	}
}

// NewDocument builds a document message referencing hosted media.
func NewDocument(to, link string) Message {
	return Message{
		MessagingProduct: messagingProduct,
		RecipientType:    recipientTypeIndividual,
		To:               to,
		Type:             "document",
		Document:         &MediaLink{Link: link},
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
