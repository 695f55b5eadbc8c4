package channels

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/logger"
)

// ConsoleChannel is the local sandbox: a readline loop standing in for a
// chat platform. Lines become messages from a fixed admin sender;
// `/img <url>` attaches an image reference to exercise the pairing flow.
type ConsoleChannel struct {
	*BaseChannel
	rl      *readline.Instance
	counter int
}

const (
	consoleSender = "console"
	consoleChat   = "console"
)

func NewConsoleChannel(cfg config.ConsoleConfig, mbus *bus.MessageBus) *ConsoleChannel {
	return &ConsoleChannel{
		BaseChannel: NewBaseChannel("console", mbus, nil),
	}
}

func (c *ConsoleChannel) Start(ctx context.Context) error {
	rl, err := readline.New("tomcat> ")
	if err != nil {
		return fmt.Errorf("failed to init readline: %w", err)
	}
	c.rl = rl
	c.setRunning(true)
	logger.InfoC("console", "Console channel ready")

	go c.readLoop(ctx)
	return nil
}

func (c *ConsoleChannel) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return
		}
		if err != nil {
			logger.ErrorCF("console", "read failed", map[string]any{"error": err.Error()})
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		c.counter++
		msg := bus.InboundMessage{
			Channel:    "console",
			SenderID:   consoleSender,
			SenderName: "Console",
			ChatID:     consoleChat,
			MessageID:  strconv.Itoa(c.counter),
			Content:    line,
			IsDirect:   true,
			Trust:      bus.Trust{AccountAgeDays: 3650, IsAdmin: true},
			Timestamp:  time.Now(),
		}
		if rest, ok := strings.CutPrefix(line, "/img "); ok {
			url := strings.TrimSpace(rest)
			msg.Content = ""
			msg.Images = []bus.ImageRef{{ID: msg.MessageID, URL: url}}
		}
		c.publish(msg)
	}
}

func (c *ConsoleChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	if c.rl != nil {
		return c.rl.Close()
	}
	return nil
}

func (c *ConsoleChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	fmt.Printf("\n[tomcat] %s\n", msg.Content)
	for _, path := range msg.Media {
		fmt.Printf("[tomcat] (file) %s\n", path)
	}
	return nil
}

func (c *ConsoleChannel) Delete(ctx context.Context, req bus.DeleteRequest) error {
	fmt.Printf("\n[tomcat] would delete message %s (%s)\n", req.MessageID, req.Reason)
	return nil
}
