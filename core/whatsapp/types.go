// Package whatsapp implements the WhatsApp Cloud API surface the bot needs:
// inbound webhook payload types, a text extractor, outbound message builders,
// and the HTTP client that posts them.
package whatsapp

// Event is the top-level webhook payload delivered by the Cloud API.
type Event struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry groups changes for one WhatsApp Business Account.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change carries one value object per notification.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value holds the metadata and messages of a change.
type Value struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         Metadata         `json:"metadata"`
	Contacts         []Contact        `json:"contacts,omitempty"`
	Messages         []InboundMessage `json:"messages,omitempty"`
}

// Metadata identifies the business phone number that received the message.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Contact carries the sender profile attached to a message batch.
type Contact struct {
	WaID    string  `json:"wa_id"`
	Profile Profile `json:"profile"`
}

// Profile is the sender's public profile.
type Profile struct {
	Name string `json:"name"`
}

// InboundMessage is a single user message inside a webhook event.
type InboundMessage struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	Timestamp   string       `json:"timestamp"`
	Type        string       `json:"type"`
	Text        *TextBody    `json:"text,omitempty"`
	Interactive *Interactive `json:"interactive,omitempty"`
}

// TextBody is the body of a plain text message.
type TextBody struct {
	Body string `json:"body"`
}

// Interactive is a button or list reply.
type Interactive struct {
	Type        string       `json:"type"`
	ButtonReply *OptionReply `json:"button_reply,omitempty"`
	ListReply   *OptionReply `json:"list_reply,omitempty"`
}

// OptionReply identifies the option a user tapped.
type OptionReply struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Inbound message types the extractor understands.
const (
	TypeText        = "text"
	TypeInteractive = "interactive"
)
