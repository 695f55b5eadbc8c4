package channels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/logger"
)

// TelegramChannel mirrors the community into Telegram. Telegram exposes
// no account-age or role facts, so trust carries only the admin flag;
// untrusted-by-default is the safe reading for spam scoring.
type TelegramChannel struct {
	*BaseChannel
	bot      *telego.Bot
	config   config.TelegramConfig
	adminIDs map[string]bool
}

func NewTelegramChannel(cfg config.TelegramConfig, adminIDs []string, mbus *bus.MessageBus) (*TelegramChannel, error) {
	bot, err := telego.NewBot(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	admins := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	return &TelegramChannel{
		BaseChannel: NewBaseChannel("telegram", mbus, cfg.AllowFrom),
		bot:         bot,
		config:      cfg,
		adminIDs:    admins,
	}, nil
}

func (c *TelegramChannel) Start(ctx context.Context) error {
	logger.InfoC("telegram", "Starting Telegram bot (polling mode)...")

	updates, err := c.bot.UpdatesViaLongPolling(ctx, &telego.GetUpdatesParams{
		Timeout: 30,
	})
	if err != nil {
		return fmt.Errorf("failed to start long polling: %w", err)
	}

	c.setRunning(true)
	logger.InfoCF("telegram", "Telegram bot connected", map[string]any{
		"username": c.bot.Username(),
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					logger.InfoC("telegram", "Updates channel closed")
					return
				}
				if update.Message != nil {
					c.handleMessage(ctx, update.Message)
				}
			}
		}
	}()
	return nil
}

func (c *TelegramChannel) Stop(ctx context.Context) error {
	logger.InfoC("telegram", "Stopping Telegram bot...")
	c.setRunning(false)
	return nil
}

func (c *TelegramChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	if !c.IsRunning() {
		return fmt.Errorf("telegram bot not running")
	}
	chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", msg.ChatID, err)
	}

	for i, path := range msg.Media {
		f, err := os.Open(path)
		if err != nil {
			logger.ErrorCF("telegram", "Failed to open media file", map[string]any{
				"path": path, "error": err.Error(),
			})
			continue
		}
		params := tu.Photo(tu.ID(chatID), tu.File(f))
		if i == 0 {
			params.Caption = msg.Content
		}
		_, err = c.bot.SendPhoto(ctx, params)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to send photo %s: %w", filepath.Base(path), err)
		}
	}
	if len(msg.Media) > 0 || msg.Content == "" {
		return nil
	}

	out := tu.Message(tu.ID(chatID), msg.Content)
	if msg.ReplyTo != "" {
		if replyID, err := strconv.Atoi(msg.ReplyTo); err == nil {
			out.ReplyParameters = &telego.ReplyParameters{MessageID: replyID}
		}
	}
	if _, err := c.bot.SendMessage(ctx, out); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func (c *TelegramChannel) Delete(ctx context.Context, req bus.DeleteRequest) error {
	chatID, err := strconv.ParseInt(req.ChatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID %q: %w", req.ChatID, err)
	}
	messageID, err := strconv.Atoi(req.MessageID)
	if err != nil {
		return fmt.Errorf("invalid message ID %q: %w", req.MessageID, err)
	}
	if err := c.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    tu.ID(chatID),
		MessageID: messageID,
	}); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", req.MessageID, err)
	}
	return nil
}

func (c *TelegramChannel) handleMessage(ctx context.Context, message *telego.Message) {
	user := message.From
	if user == nil || user.IsBot {
		return
	}
	senderID := strconv.FormatInt(user.ID, 10)

	content := message.Text
	if message.Caption != "" {
		if content != "" {
			content += "\n"
		}
		content += message.Caption
	}

	msg := bus.InboundMessage{
		Channel:    "telegram",
		SenderID:   senderID,
		SenderName: strings.TrimSpace(user.FirstName + " " + user.LastName),
		ChatID:     strconv.FormatInt(message.Chat.ID, 10),
		MessageID:  strconv.Itoa(message.MessageID),
		Content:    content,
		Images:     c.photoRefs(ctx, message.Photo),
		IsDirect:   message.Chat.Type == "private",
		Trust:      bus.Trust{IsAdmin: c.adminIDs[senderID]},
		Timestamp:  time.Unix(message.Date, 0),
	}
	if reply := message.ReplyToMessage; reply != nil {
		msg.ReplyToID = strconv.Itoa(reply.MessageID)
		msg.ReplyImages = c.photoRefs(ctx, reply.Photo)
	}

	c.publish(msg)
}

// photoRefs resolves the largest rendition of each photo to a download
// URL the vision client can fetch directly.
func (c *TelegramChannel) photoRefs(ctx context.Context, photos []telego.PhotoSize) []bus.ImageRef {
	if len(photos) == 0 {
		return nil
	}
	best := photos[len(photos)-1]

	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: best.FileID})
	if err != nil || file.FilePath == "" {
		logger.WarnCF("telegram", "Failed to resolve photo file", map[string]any{
			"error": fmt.Sprintf("%v", err),
		})
		return nil
	}
	return []bus.ImageRef{{
		ID:          best.FileID,
		URL:         c.bot.FileDownloadURL(file.FilePath),
		ContentType: "image/jpeg",
		Filename:    filepath.Base(file.FilePath),
	}}
}
