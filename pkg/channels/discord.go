package channels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/logger"
)

// discordEpochMS is the origin of Discord snowflake timestamps.
const discordEpochMS = 1420070400000

// DiscordChannel is the primary connector: the community lives on
// Discord. It supplies the trust facts (account age from the sender's
// snowflake, role names from guild state) alongside every message.
type DiscordChannel struct {
	*BaseChannel
	session  *discordgo.Session
	config   config.DiscordConfig
	adminIDs map[string]bool
}

func NewDiscordChannel(cfg config.DiscordConfig, adminIDs []string, mbus *bus.MessageBus) (*DiscordChannel, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	return &DiscordChannel{
		BaseChannel: NewBaseChannel("discord", mbus, cfg.AllowFrom),
		session:     session,
		config:      cfg,
		adminIDs:    admins,
	}, nil
}

func (c *DiscordChannel) Start(ctx context.Context) error {
	logger.InfoC("discord", "Starting Discord connector...")

	c.session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	c.session.AddHandler(c.onMessageCreate)

	if err := c.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	c.setRunning(true)
	logger.InfoCF("discord", "Discord connected", map[string]any{
		"user": c.session.State.User.Username,
	})
	return nil
}

func (c *DiscordChannel) Stop(ctx context.Context) error {
	logger.InfoC("discord", "Stopping Discord connector...")
	c.setRunning(false)
	return c.session.Close()
}

func (c *DiscordChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("discord connector not running")
	}

	send := &discordgo.MessageSend{Content: msg.Content}
	if msg.ReplyTo != "" {
		send.Reference = &discordgo.MessageReference{
			MessageID: msg.ReplyTo,
			ChannelID: msg.ChatID,
		}
	}
	for _, path := range msg.Media {
		f, err := os.Open(path)
		if err != nil {
			logger.ErrorCF("discord", "Failed to open media file", map[string]any{
				"path": path, "error": err.Error(),
			})
			continue
		}
		defer f.Close()
		send.Files = append(send.Files, &discordgo.File{
			Name:   filepath.Base(path),
			Reader: f,
		})
	}

	if _, err := c.session.ChannelMessageSendComplex(msg.ChatID, send); err != nil {
		return fmt.Errorf("failed to send discord message: %w", err)
	}
	return nil
}

func (c *DiscordChannel) Delete(ctx context.Context, req bus.DeleteRequest) error {
	if err := c.session.ChannelMessageDelete(req.ChatID, req.MessageID); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", req.MessageID, err)
	}
	logger.InfoCF("discord", "message deleted", map[string]any{
		"chat_id": req.ChatID, "message_id": req.MessageID, "reason": req.Reason,
	})
	return nil
}

// MemberCount reports the guild size behind a channel.
func (c *DiscordChannel) MemberCount(ctx context.Context, chatID string) (int, error) {
	ch, err := c.session.State.Channel(chatID)
	if err != nil {
		if ch, err = c.session.Channel(chatID); err != nil {
			return 0, fmt.Errorf("failed to look up channel: %w", err)
		}
	}
	if ch.GuildID == "" {
		return 0, fmt.Errorf("channel %s is not in a guild", chatID)
	}

	if g, err := c.session.State.Guild(ch.GuildID); err == nil && g.MemberCount > 0 {
		return g.MemberCount, nil
	}
	g, err := c.session.GuildWithCounts(ch.GuildID)
	if err != nil {
		return 0, fmt.Errorf("failed to look up guild: %w", err)
	}
	return g.ApproximateMemberCount, nil
}

func (c *DiscordChannel) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}

	msg := bus.InboundMessage{
		Channel:     "discord",
		SenderID:    m.Author.ID,
		SenderName:  displayName(m),
		ChatID:      m.ChannelID,
		MessageID:   m.ID,
		Content:     m.Content,
		Images:      imageRefs(m.Attachments),
		IsDirect:    m.GuildID == "",
		MentionsBot: mentionsUser(m.Mentions, s.State.User.ID),
		Trust:       c.trustFor(s, m),
		Timestamp:   m.Timestamp,
	}
	if m.ReferencedMessage != nil {
		msg.ReplyToID = m.ReferencedMessage.ID
		msg.ReplyImages = imageRefs(m.ReferencedMessage.Attachments)
	}

	c.publish(msg)
}

// trustFor assembles the spam engine's trust facts: account age decoded
// from the snowflake, role names from guild state, admin flag from
// config.
func (c *DiscordChannel) trustFor(s *discordgo.Session, m *discordgo.MessageCreate) bus.Trust {
	t := bus.Trust{
		AccountAgeDays: accountAgeDays(m.Author.ID, time.Now()),
		IsAdmin:        c.adminIDs[m.Author.ID],
	}
	if m.Member != nil && m.GuildID != "" {
		for _, roleID := range m.Member.Roles {
			if role, err := s.State.Role(m.GuildID, roleID); err == nil {
				t.Roles = append(t.Roles, role.Name)
			}
		}
	}
	return t
}

// accountAgeDays decodes the creation time embedded in a snowflake ID.
func accountAgeDays(snowflake string, now time.Time) int {
	id, err := strconv.ParseUint(snowflake, 10, 64)
	if err != nil {
		return 0
	}
	createdMS := int64(id>>22) + discordEpochMS
	created := time.UnixMilli(createdMS)
	if created.After(now) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}

func imageRefs(attachments []*discordgo.MessageAttachment) []bus.ImageRef {
	var refs []bus.ImageRef
	for _, a := range attachments {
		if a == nil || !strings.HasPrefix(a.ContentType, "image/") {
			continue
		}
		refs = append(refs, bus.ImageRef{
			ID:          a.ID,
			URL:         a.URL,
			ContentType: a.ContentType,
			Filename:    a.Filename,
		})
	}
	return refs
}

func mentionsUser(mentions []*discordgo.User, userID string) bool {
	for _, u := range mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

func displayName(m *discordgo.MessageCreate) string {
	if m.Member != nil && m.Member.Nick != "" {
		return m.Member.Nick
	}
	if m.Author.GlobalName != "" {
		return m.Author.GlobalName
	}
	return m.Author.Username
}
