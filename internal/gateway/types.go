package gateway

import (
	"context"
	"time"
)

// Adapter is a chat platform connection.
type Adapter interface {
	Platform() string
	Connect(ctx context.Context) error
	Send(ctx context.Context, msg *OutboundMessage) error
	OnMessage(handler MessageHandler)
	Close() error
}

// MessageHandler processes inbound messages from any platform.
type MessageHandler func(msg *InboundMessage)

// InboundMessage is a normalized message from any platform.
type InboundMessage struct {
	Platform  string    `json:"platform"`
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ReplyTo   string    `json:"reply_to,omitempty"`
}

// OutboundMessage is a reply sent to a specific platform channel.
type OutboundMessage struct {
	Platform  string `json:"platform"`
	ChannelID string `json:"channel_id"`
	Content   string `json:"content"`
	ReplyTo   string `json:"reply_to,omitempty"`
}
