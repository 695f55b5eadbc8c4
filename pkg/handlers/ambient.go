package handlers

import (
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/bus"
)

var meows = []string{
	"meow!", "MEOW!", "meeeoowww", "meow meow", "mrow!", "mrrp?",
	"meow? :3", "MEOW MEOW!", "*stretches*",
}

var (
	meowPat   = regexp.MustCompile(`(?i)\bmeow\b`)
	thanksPat = regexp.MustCompile(`(?i)\b(?:thanks|thank\s+you)\s+tomcat\b`)
)

const ambientCooldown = time.Second

// Ambient answers meows and thank-yous without entering the intent
// pipeline. One reply per sender per cooldown tick; code blocks are left
// alone so pasted logs never trigger it.
type Ambient struct {
	out Sender

	mu   sync.Mutex
	last map[string]time.Time
}

func NewAmbient(out Sender) *Ambient {
	return &Ambient{out: out, last: make(map[string]time.Time)}
}

// Respond replies when the message matches a trigger, reporting whether it
// did. First trigger wins.
func (a *Ambient) Respond(msg bus.InboundMessage, now time.Time) bool {
	if strings.Contains(msg.Content, "`") {
		return false
	}

	var reply string
	switch {
	case meowPat.MatchString(msg.Content):
		reply = meows[rand.Intn(len(meows))]
	case thanksPat.MatchString(msg.Content):
		reply = "You're welcome"
	default:
		return false
	}

	if !a.cool(msg.SenderID, now) {
		return false
	}
	a.out.Send(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: reply,
	})
	return true
}

func (a *Ambient) cool(senderID string, now time.Time) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if last, ok := a.last[senderID]; ok && now.Sub(last) < ambientCooldown {
		return false
	}
	a.last[senderID] = now
	return true
}
