// Package router orchestrates the per-message pipeline: addressing,
// spam, intent resolution, image correlation, clarification, and finally
// dispatch to exactly one handler. Every uncertain outcome ends the
// pipeline silently; the router never guesses on the community's behalf.
package router

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/addressing"
	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/handlers"
	"github.com/Austin-J-B/tomcat/pkg/intent"
	"github.com/Austin-J-B/tomcat/pkg/logger"
	"github.com/Austin-J-B/tomcat/pkg/pending"
	"github.com/Austin-J-B/tomcat/pkg/spam"
	"github.com/Austin-J-B/tomcat/pkg/store"
	"github.com/Austin-J-B/tomcat/pkg/utils"
	"github.com/google/uuid"
)

var affirmPat = regexp.MustCompile(`^(yes|yeah|yep|yup|ya|sure|correct|right|do\s+it|mark\s+it)$`)

// confidence assigned when a recent photo answers a request backwards
const (
	pairedIdentifyConfidence = 0.95
	pairedFeedConfidence     = 0.85
)

// clarification is one unanswered "mark X as fed?" question.
type clarification struct {
	decision intent.Decision
	expires  time.Time
}

// Router wires the engines together. One Router serves every connector;
// per-message state lives in the pending and clarify stores.
type Router struct {
	cfg      *config.Config
	detector *addressing.Detector
	resolver *intent.Resolver
	spam     *spam.Engine
	slots    *pending.Store
	images   *pending.ImageTrail
	handlers *handlers.Set
	ambient  *handlers.Ambient
	mbus     *bus.MessageBus
	db       *store.Store
	sender   *MutedSender

	// intent kinds allowed to dispatch from unaddressed messages
	allowKinds map[intent.Kind]bool

	mu      sync.Mutex
	clarify map[string]clarification
}

func New(cfg *config.Config, detector *addressing.Detector, resolver *intent.Resolver,
	spamEngine *spam.Engine, slots *pending.Store, hs *handlers.Set,
	mbus *bus.MessageBus, db *store.Store, sender *MutedSender) *Router {
	allow := make(map[intent.Kind]bool, len(cfg.Intents.AllowlistIntents))
	for _, k := range cfg.Intents.AllowlistIntents {
		allow[intent.Kind(k)] = true
	}
	window := time.Duration(cfg.Intents.PairWindowMinutes) * time.Minute
	return &Router{
		cfg:        cfg,
		detector:   detector,
		resolver:   resolver,
		spam:       spamEngine,
		slots:      slots,
		images:     pending.NewImageTrail(window),
		handlers:   hs,
		ambient:    handlers.NewAmbient(sender),
		mbus:       mbus,
		db:         db,
		sender:     sender,
		allowKinds: allow,
		clarify:    make(map[string]clarification),
	}
}

// Handler adapts the router to the bus contract.
func (r *Router) Handler() bus.MessageHandler {
	return func(msg bus.InboundMessage) error {
		return r.Handle(context.Background(), msg)
	}
}

// Handle runs one message through the full pipeline.
func (r *Router) Handle(ctx context.Context, msg bus.InboundMessage) error {
	now := msg.Timestamp
	if now.IsZero() {
		now = time.Now()
	}
	if msg.CorrelationID == "" {
		msg.CorrelationID = uuid.NewString()
	}

	det := r.detector.Detect(msg.Content, msg.IsDirect, msg.MentionsBot)
	allowlisted := r.isAllowlisted(msg.ChatID)

	// an image event first answers any pending image-dependent request
	// from the same sender, regardless of addressing; either way it is
	// remembered so a request arriving after the photo pairs backwards
	if msg.HasImage() {
		r.images.Put(msg.Channel, msg.ChatID, msg.SenderID, pending.Image{
			URL:         msg.Images[0].URL,
			Filename:    msg.Images[0].Filename,
			ContentType: msg.Images[0].ContentType,
			SeenAt:      now,
		})
		if req, ok := r.slots.Consume(msg.Channel, msg.ChatID, msg.SenderID, now); ok {
			d := intent.Decision{
				Kind:       req.Kind,
				Confidence: 1.0,
				Source:     intent.StageAlias,
				Span:       det.Body,
			}
			msg.CorrelationID = req.CorrelationID
			r.logDecision(msg, d, "correlation")
			return r.handlers.Dispatch(ctx, msg, d)
		}
	}

	// a short yes from the same author upgrades an open clarification
	if answer, ok := r.takeClarification(msg, det.Body, now); ok {
		r.logDecision(msg, answer, "clarified")
		return r.handlers.Dispatch(ctx, msg, answer)
	}

	// meows and thank-yous get an ambient reply without entering the
	// pipeline
	if !det.Addressed && r.ambient.Respond(msg, now) {
		return nil
	}

	if !det.Addressed && !allowlisted {
		return nil
	}

	verdict := r.spam.Check(ctx, msg)
	if verdict.IsSpam {
		return r.onSpam(msg, verdict)
	}

	d := r.resolver.Resolve(ctx, intent.Input{
		Msg:         msg,
		Body:        det.Body,
		Addressed:   det.Addressed,
		Allowlisted: allowlisted,
		Now:         now,
	})
	if d.Kind == intent.KindNone {
		logger.DebugCF("router", "no intent", map[string]any{
			"chat": msg.ChatID, "addressed": det.Addressed,
		})
		return nil
	}

	// unaddressed messages may only run the allowlisted flows
	if !det.Addressed && !r.allowKinds[d.Kind] {
		logger.DebugCF("router", "intent not allowlisted", map[string]any{
			"kind": string(d.Kind), "chat": msg.ChatID,
		})
		return nil
	}

	// image-dependent intent with no image anywhere: a photo the sender
	// posted moments ago answers it on the spot, otherwise park and wait
	if d.Kind.NeedsImage() && !msg.HasImage() && len(msg.ReplyImages) == 0 {
		if img, ok := r.images.Last(msg.Channel, msg.ChatID, msg.SenderID, now); ok {
			msg.Images = []bus.ImageRef{{URL: img.URL, Filename: img.Filename, ContentType: img.ContentType}}
			d.Confidence = pairedIdentifyConfidence
			r.logDecision(msg, d, "paired_back")
			return r.handlers.Dispatch(ctx, msg, d)
		}
		r.slots.Put(pending.Request{
			Kind:          d.Kind,
			Channel:       msg.Channel,
			ChatID:        msg.ChatID,
			UserID:        msg.SenderID,
			CorrelationID: msg.CorrelationID,
			CreatedAt:     now,
		})
		logger.InfoCF("router", "waiting for image", map[string]any{
			"kind": string(d.Kind), "chat": msg.ChatID, "correlation": msg.CorrelationID,
		})
		if det.Addressed {
			r.send(bus.OutboundMessage{
				Channel: msg.Channel,
				ChatID:  msg.ChatID,
				Content: "Send the photo and I'll take a look.",
				ReplyTo: msg.MessageID,
			})
		}
		return nil
	}

	// low-confidence feed updates ride a recent photo when one exists,
	// and ask instead of acting when none does
	if d.Kind == intent.KindFeedUpdate && d.Confidence < r.cfg.Intents.ConfMid {
		if img, ok := r.images.Last(msg.Channel, msg.ChatID, msg.SenderID, now); ok {
			msg.Images = []bus.ImageRef{{URL: img.URL, Filename: img.Filename, ContentType: img.ContentType}}
			d.Confidence = pairedFeedConfidence
			r.logDecision(msg, d, "paired_back")
			return r.handlers.Dispatch(ctx, msg, d)
		}
		r.askClarification(msg, d, now)
		return nil
	}

	r.logDecision(msg, d, "dispatch")
	return r.handlers.Dispatch(ctx, msg, d)
}

// MutedSender wraps the bus so that outbound messages are dropped while
// silent mode is on. Handlers and the router both send through it.
type MutedSender struct {
	mbus   *bus.MessageBus
	silent *utils.Switch
}

func NewMutedSender(mbus *bus.MessageBus, silent *utils.Switch) *MutedSender {
	return &MutedSender{mbus: mbus, silent: silent}
}

func (s *MutedSender) Send(m bus.OutboundMessage) {
	if s.silent.On() {
		logger.InfoCF("router", "muted_send", map[string]any{
			"chat": m.ChatID, "length": len(m.Content),
		})
		return
	}
	s.mbus.PublishOutbound(m)
}

func (r *Router) send(m bus.OutboundMessage) {
	r.sender.Send(m)
}

// SweepPending expires stale pending slots and remembered images; called
// from the scheduler.
func (r *Router) SweepPending(now time.Time) {
	if removed := r.slots.Sweep(now); removed > 0 {
		logger.DebugCF("router", "pending slots expired", map[string]any{"count": removed})
	}
	r.images.Sweep(now)
	r.mu.Lock()
	for key, c := range r.clarify {
		if now.After(c.expires) {
			delete(r.clarify, key)
		}
	}
	r.mu.Unlock()
}

func (r *Router) onSpam(msg bus.InboundMessage, v spam.Verdict) error {
	logger.WarnCF("spam", "message flagged", map[string]any{
		"sender": msg.SenderID, "chat": msg.ChatID,
		"reason": v.DecisionReason, "scores": v.ContributingScores,
	})
	if r.db != nil {
		if err := r.db.RecordSpamVerdict(msg.SenderID, msg.Channel, msg.ChatID,
			v.DecisionReason, v.ContributingScores); err != nil {
			logger.WarnCF("spam", "audit write failed", map[string]any{"error": err.Error()})
		}
	}

	// deletion and the moderation alert bypass silent mode
	if r.cfg.Spam.DeleteOnVerdict && msg.MessageID != "" {
		r.mbus.PublishDelete(bus.DeleteRequest{
			Channel:   msg.Channel,
			ChatID:    msg.ChatID,
			MessageID: msg.MessageID,
			Reason:    v.DecisionReason,
		})
	}
	if r.cfg.Channels.Logging != "" {
		r.mbus.PublishOutbound(bus.OutboundMessage{
			Channel: msg.Channel,
			ChatID:  r.cfg.Channels.Logging,
			Content: fmt.Sprintf("Removed a message from %s in %s (%s).",
				msg.SenderName, msg.ChatID, v.DecisionReason),
		})
	}
	return nil
}

func (r *Router) askClarification(msg bus.InboundMessage, d intent.Decision, now time.Time) {
	window := time.Duration(r.cfg.Intents.ClarifyWindowMinutes) * time.Minute
	r.mu.Lock()
	r.clarify[clarifyKey(msg)] = clarification{decision: d, expires: now.Add(window)}
	r.mu.Unlock()

	logger.InfoCF("router", "clarification asked", map[string]any{
		"station": d.Entity(), "chat": msg.ChatID, "confidence": d.Confidence,
	})
	r.send(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: fmt.Sprintf("Mark %s as fed today?", d.Entity()),
		ReplyTo: msg.MessageID,
	})
}

// takeClarification consumes the open question for this author when the
// message is a plain affirmation inside the window.
func (r *Router) takeClarification(msg bus.InboundMessage, body string, now time.Time) (intent.Decision, bool) {
	if !affirmPat.MatchString(body) {
		return intent.Decision{}, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	key := clarifyKey(msg)
	c, ok := r.clarify[key]
	if !ok {
		return intent.Decision{}, false
	}
	delete(r.clarify, key)
	if now.After(c.expires) {
		return intent.Decision{}, false
	}

	d := c.decision
	d.Confidence = r.cfg.Intents.ConfMid
	return d, true
}

func (r *Router) isAllowlisted(chatID string) bool {
	for _, id := range r.cfg.Channels.FeedingTeam {
		if id == chatID {
			return true
		}
	}
	return chatID != "" && chatID == r.cfg.Channels.Sandbox
}

func (r *Router) logDecision(msg bus.InboundMessage, d intent.Decision, path string) {
	logger.InfoCF("router", "intent resolved", map[string]any{
		"kind":        string(d.Kind),
		"confidence":  d.Confidence,
		"source":      string(d.Source),
		"entity":      d.Entity(),
		"path":        path,
		"chat":        msg.ChatID,
		"correlation": msg.CorrelationID,
	})
}

func clarifyKey(msg bus.InboundMessage) string {
	return msg.Channel + ":" + msg.ChatID + ":" + msg.SenderID
}
