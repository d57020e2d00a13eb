package whatsapp

// ExtractText normalizes an inbound message into plain text.
// For text messages it returns the body; for interactive replies the selected
// option's title. The second return is false when the message carries no
// extractable text (stickers, reactions, unexpected UI) — callers still hand
// the empty string to the engine so the conversation keeps responding.
func ExtractText(msg InboundMessage) (string, bool) {
	switch msg.Type {
	case TypeText:
		if msg.Text == nil {
			return "", false
		}
		return msg.Text.Body, true
	case TypeInteractive:
		if msg.Interactive == nil {
			return "", false
		}
		switch msg.Interactive.Type {
		case "button_reply":
			if msg.Interactive.ButtonReply != nil {
				return msg.Interactive.ButtonReply.Title, true
			}
		case "list_reply":
			if msg.Interactive.ListReply != nil {
				return msg.Interactive.ListReply.Title, true
			}
		}
		return "", false
	default:
		return "", false
	}
}
