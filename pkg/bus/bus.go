package bus

import (
	"sync"

	"github.com/Austin-J-B/tomcat/pkg/logger"
)

// MessageBus is the in-process pipe between platform connectors and the
// router. Inbound and outbound travel on buffered channels; delete requests
// fan out to whichever connector owns the platform. Publishes never block:
// when a consumer stalls long enough to fill a buffer, the message is
// dropped and logged rather than wedging the publisher (and with it Close).
type MessageBus struct {
	inbound  chan InboundMessage
	outbound chan OutboundMessage
	deletes  chan DeleteRequest

	mu     sync.Mutex
	closed bool
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		inbound:  make(chan InboundMessage, 256),
		outbound: make(chan OutboundMessage, 256),
		deletes:  make(chan DeleteRequest, 64),
	}
}

func (b *MessageBus) PublishInbound(msg InboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.inbound <- msg:
	default:
		logger.WarnCF("bus", "inbound buffer full, message dropped", map[string]any{
			"channel": msg.Channel, "chat": msg.ChatID,
		})
	}
}

func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.outbound <- msg:
	default:
		logger.WarnCF("bus", "outbound buffer full, message dropped", map[string]any{
			"channel": msg.Channel, "chat": msg.ChatID,
		})
	}
}

func (b *MessageBus) PublishDelete(req DeleteRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	select {
	case b.deletes <- req:
	default:
		logger.WarnCF("bus", "delete buffer full, request dropped", map[string]any{
			"channel": req.Channel, "message_id": req.MessageID,
		})
	}
}

func (b *MessageBus) Inbound() <-chan InboundMessage   { return b.inbound }
func (b *MessageBus) Outbound() <-chan OutboundMessage { return b.outbound }
func (b *MessageBus) Deletes() <-chan DeleteRequest    { return b.deletes }

// Close stops accepting publishes and closes the channels so consumers drain.
func (b *MessageBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.inbound)
	close(b.outbound)
	close(b.deletes)
}
