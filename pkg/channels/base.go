// Package channels holds the platform connectors. Each connector turns
// platform events into bus.InboundMessage values and plays outbound
// messages and delete requests back to its platform. Everything the
// intent core needs to know about a platform is captured at this
// boundary: attachments, reply context, and the sender's trust facts.
package channels

import (
	"context"
	"sync/atomic"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/logger"
)

// Channel is one platform connector.
type Channel interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Send(ctx context.Context, msg bus.OutboundMessage) error
	Delete(ctx context.Context, req bus.DeleteRequest) error
}

// BaseChannel carries the pieces every connector shares: the bus, the
// sender allowlist, and the running flag.
type BaseChannel struct {
	name      string
	mbus      *bus.MessageBus
	allowFrom map[string]bool
	running   atomic.Bool
}

func NewBaseChannel(name string, mbus *bus.MessageBus, allowFrom []string) *BaseChannel {
	allowed := make(map[string]bool, len(allowFrom))
	for _, id := range allowFrom {
		if id != "" {
			allowed[id] = true
		}
	}
	return &BaseChannel{name: name, mbus: mbus, allowFrom: allowed}
}

func (b *BaseChannel) Name() string { return b.name }

// IsAllowed reports whether a sender passes the connector allowlist. An
// empty allowlist admits everyone.
func (b *BaseChannel) IsAllowed(senderID string) bool {
	if len(b.allowFrom) == 0 {
		return true
	}
	return b.allowFrom[senderID]
}

func (b *BaseChannel) setRunning(on bool) { b.running.Store(on) }
func (b *BaseChannel) IsRunning() bool    { return b.running.Load() }

// publish hands one inbound message to the core.
func (b *BaseChannel) publish(msg bus.InboundMessage) {
	if !b.IsAllowed(msg.SenderID) {
		logger.DebugCF(b.name, "message rejected by allowlist", map[string]any{
			"sender_id": msg.SenderID,
		})
		return
	}
	b.mbus.PublishInbound(msg)
}
