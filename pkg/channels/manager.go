package channels

import (
	"context"
	"fmt"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/logger"
)

// Manager owns every enabled connector and pumps the bus: inbound
// messages into the router's handler, outbound messages and delete
// requests back to the platform they name.
type Manager struct {
	mbus     *bus.MessageBus
	channels map[string]Channel
}

func NewManager(cfg *config.Config, mbus *bus.MessageBus) (*Manager, error) {
	m := &Manager{mbus: mbus, channels: make(map[string]Channel)}

	if cfg.Channels.Discord.Enabled {
		ch, err := NewDiscordChannel(cfg.Channels.Discord, cfg.Bot.AdminIDs, mbus)
		if err != nil {
			return nil, fmt.Errorf("discord: %w", err)
		}
		m.channels[ch.Name()] = ch
	}
	if cfg.Channels.Telegram.Enabled {
		ch, err := NewTelegramChannel(cfg.Channels.Telegram, cfg.Bot.AdminIDs, mbus)
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		m.channels[ch.Name()] = ch
	}
	if cfg.Channels.Console.Enabled {
		ch := NewConsoleChannel(cfg.Channels.Console, mbus)
		m.channels[ch.Name()] = ch
	}

	if len(m.channels) == 0 {
		return nil, fmt.Errorf("no channels enabled")
	}
	return m, nil
}

// Start opens every connector and begins pumping the bus. handler runs
// inline per inbound message, preserving per-channel ordering.
func (m *Manager) Start(ctx context.Context, handler bus.MessageHandler) error {
	for name, ch := range m.channels {
		if err := ch.Start(ctx); err != nil {
			return fmt.Errorf("failed to start %s: %w", name, err)
		}
	}

	go m.pumpInbound(ctx, handler)
	go m.pumpOutbound(ctx)
	go m.pumpDeletes(ctx)
	return nil
}

func (m *Manager) Stop(ctx context.Context) {
	for name, ch := range m.channels {
		if err := ch.Stop(ctx); err != nil {
			logger.WarnCF("channels", "stop failed", map[string]any{
				"channel": name, "error": err.Error(),
			})
		}
	}
}

// MemberCount delegates to the named connector when it can answer.
func (m *Manager) MemberCount(ctx context.Context, channel, chatID string) (int, error) {
	ch, ok := m.channels[channel]
	if !ok {
		return 0, fmt.Errorf("unknown channel %s", channel)
	}
	counter, ok := ch.(interface {
		MemberCount(ctx context.Context, chatID string) (int, error)
	})
	if !ok {
		return 0, fmt.Errorf("channel %s cannot count members", channel)
	}
	return counter.MemberCount(ctx, chatID)
}

func (m *Manager) pumpInbound(ctx context.Context, handler bus.MessageHandler) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-m.mbus.Inbound():
			if !ok {
				return
			}
			if err := handler(msg); err != nil {
				logger.ErrorCF("channels", "message handling failed", map[string]any{
					"channel": msg.Channel, "chat": msg.ChatID, "error": err.Error(),
				})
			}
		}
	}
}

func (m *Manager) pumpOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-m.mbus.Outbound():
			if !ok {
				return
			}
			ch, found := m.channels[msg.Channel]
			if !found {
				logger.WarnCF("channels", "outbound for unknown channel", map[string]any{
					"channel": msg.Channel,
				})
				continue
			}
			if err := ch.Send(ctx, msg); err != nil {
				logger.ErrorCF("channels", "send failed", map[string]any{
					"channel": msg.Channel, "chat": msg.ChatID, "error": err.Error(),
				})
			}
		}
	}
}

func (m *Manager) pumpDeletes(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req, ok := <-m.mbus.Deletes():
			if !ok {
				return
			}
			ch, found := m.channels[req.Channel]
			if !found {
				continue
			}
			// best effort: a failed delete is logged, never retried
			if err := ch.Delete(ctx, req); err != nil {
				logger.WarnCF("channels", "delete failed", map[string]any{
					"channel": req.Channel, "message_id": req.MessageID, "error": err.Error(),
				})
			}
		}
	}
}
