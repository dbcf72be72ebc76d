package domain

import "time"

// MessageSender indicates which party authored a message.
type MessageSender string

const (
	SenderUser    MessageSender = "user"
	SenderSupport MessageSender = "support"
)

// DeliveryStatus tracks the delivery lifecycle of a message.
type DeliveryStatus string

const (
	DeliverySending   DeliveryStatus = "sending"
	DeliverySent      DeliveryStatus = "sent"
	DeliveryDelivered DeliveryStatus = "delivered"
	DeliveryRead      DeliveryStatus = "read"
	DeliveryError     DeliveryStatus = "error"
)

// Message is one chat turn within a ticket. Body and sender are immutable
// once created; only delivery status and the read flag transition.
type Message struct {
	ID          string
	TicketID    string
	Sender      MessageSender
	SenderName  string
	Body        string
	Attachments []Attachment
	Status      DeliveryStatus
	Read        bool
	CreatedAt   time.Time
}

// Attachment holds metadata for a file referenced by a message.
type Attachment struct {
	Name       string `json:"name"`
	MimeType   string `json:"mime_type"`
	StorageKey string `json:"storage_key"`
}
