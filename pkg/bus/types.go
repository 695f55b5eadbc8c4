package bus

import "time"

// ImageRef points at one image attachment on a platform message. The bytes
// stay with the platform; engines only pass the reference around.
type ImageRef struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Filename    string `json:"filename,omitempty"`
}

// Trust carries the read-only account facts used by the spam engine. It is
// sourced from the platform connector and never modified by the core.
type Trust struct {
	AccountAgeDays int      `json:"account_age_days"`
	Roles          []string `json:"roles,omitempty"`
	IsAdmin        bool     `json:"is_admin,omitempty"`
}

type InboundMessage struct {
	Channel       string     `json:"channel"` // platform name: discord, telegram, console
	SenderID      string     `json:"sender_id"`
	SenderName    string     `json:"sender_name,omitempty"`
	ChatID        string     `json:"chat_id"`
	MessageID     string     `json:"message_id"`
	Content       string     `json:"content"`
	Images        []ImageRef `json:"images,omitempty"`
	ReplyToID     string     `json:"reply_to_id,omitempty"`
	ReplyImages   []ImageRef `json:"reply_images,omitempty"`
	IsDirect      bool       `json:"is_direct,omitempty"` // private conversation with the bot
	MentionsBot   bool       `json:"mentions_bot,omitempty"`
	Trust         Trust      `json:"trust"`
	Timestamp     time.Time  `json:"timestamp"`
	CorrelationID string     `json:"correlation_id,omitempty"`
}

// HasImage reports whether the message itself carries at least one image.
func (m InboundMessage) HasImage() bool {
	return len(m.Images) > 0
}

type OutboundMessage struct {
	Channel string   `json:"channel"`
	ChatID  string   `json:"chat_id"`
	Content string   `json:"content"`
	Media   []string `json:"media,omitempty"` // local file paths to send
	ReplyTo string   `json:"reply_to,omitempty"`
}

// DeleteRequest asks a connector to remove a platform message, best effort.
type DeleteRequest struct {
	Channel   string `json:"channel"`
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
	Reason    string `json:"reason"`
}

type MessageHandler func(InboundMessage) error
