package models

// Values Meta sets on message notifications.
const (
	WebhookObject        = "whatsapp_business_account"
	WebhookFieldMessages = "messages"
)

// WebhookPayload is the part of a WhatsApp Cloud API callback that carries inbound messages.
// Receipts, contacts and errors are not decoded.
type WebhookPayload struct {
	Object string         `json:"object"`
	Entry  []WebhookEntry `json:"entry"`
}

type WebhookEntry struct {
	Changes []WebhookChange `json:"changes"`
}

type WebhookChange struct {
	Field string       `json:"field"`
	Value WebhookValue `json:"value"`
}

type WebhookValue struct {
	Messages []InboundMessage `json:"messages"`
}

// InboundMessage is one message from a staff phone; only text bodies carry commands.
type InboundMessage struct {
	From string       `json:"from"`
	ID   string       `json:"id"`
	Type string       `json:"type"`
	Text *TextContent `json:"text,omitempty"`
}

type TextContent struct {
	Body string `json:"body"`
}
