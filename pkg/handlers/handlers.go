// Package handlers turns resolved intents into replies and records. One
// handler per intent kind; the router owns the dispatch table and the
// decision of whether a handler runs at all. Handlers never second-guess
// the decision they are given, but they do stay quiet when a collaborator
// (vision service, store) cannot produce a result.
package handlers

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/intent"
	"github.com/Austin-J-B/tomcat/pkg/logger"
	"github.com/Austin-J-B/tomcat/pkg/registry"
	"github.com/Austin-J-B/tomcat/pkg/store"
	"github.com/Austin-J-B/tomcat/pkg/utils"
	"github.com/Austin-J-B/tomcat/pkg/vision"
	"github.com/Austin-J-B/tomcat/pkg/when"
)

// Sender delivers one outbound message. The router supplies an
// implementation that honors silent mode; handlers never talk to a
// platform directly.
type Sender interface {
	Send(msg bus.OutboundMessage)
}

// MemberCounter reports community size for one chat. Only some
// connectors can answer; a nil counter means the feature is off.
type MemberCounter interface {
	MemberCount(ctx context.Context, channel, chatID string) (int, error)
}

// Set carries every handler plus their shared collaborators.
type Set struct {
	cfg     *config.Config
	reg     *registry.Registry
	db      *store.Store
	cv      *vision.Client
	dates   *when.Extractor
	out     Sender
	silent  *utils.Switch
	members MemberCounter
}

func New(cfg *config.Config, reg *registry.Registry, db *store.Store, cv *vision.Client,
	dates *when.Extractor, out Sender, silent *utils.Switch, members MemberCounter) *Set {
	return &Set{
		cfg:     cfg,
		reg:     reg,
		db:      db,
		cv:      cv,
		dates:   dates,
		out:     out,
		silent:  silent,
		members: members,
	}
}

// Dispatch routes one resolved decision to its handler.
func (h *Set) Dispatch(ctx context.Context, msg bus.InboundMessage, d intent.Decision) error {
	switch d.Kind {
	case intent.KindShowPhoto:
		return h.showPhoto(msg, d)
	case intent.KindShowProfile:
		return h.showProfile(msg, d)
	case intent.KindCVIdentify:
		return h.cvIdentify(ctx, msg)
	case intent.KindCVDetect:
		return h.cvDetect(ctx, msg)
	case intent.KindCVCrop:
		return h.cvCrop(ctx, msg)
	case intent.KindFeedUpdate:
		return h.feedUpdate(msg, d)
	case intent.KindSubRequest:
		return h.subRequest(msg, d)
	case intent.KindSubAccept:
		return h.subAccept(msg)
	case intent.KindFeedingStatus:
		return h.feedingStatus(msg)
	case intent.KindSilentMode:
		return h.silentMode(msg, d)
	case intent.KindMembersCount:
		return h.membersCount(ctx, msg)
	}
	return fmt.Errorf("no handler for intent %s", d.Kind)
}

func (h *Set) reply(msg bus.InboundMessage, content string, media ...string) {
	h.out.Send(bus.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: content,
		Media:   media,
		ReplyTo: msg.MessageID,
	})
}

func (h *Set) showPhoto(msg bus.InboundMessage, d intent.Decision) error {
	name := d.Entity()
	profile, ok := h.reg.Profile(registry.KindCat, name)
	if !ok || profile.PhotoURL == "" {
		h.reply(msg, fmt.Sprintf("I don't have a photo of %s yet.", name))
		return nil
	}
	h.reply(msg, fmt.Sprintf("Here's %s! %s", name, profile.PhotoURL))
	return nil
}

func (h *Set) showProfile(msg bus.InboundMessage, d intent.Decision) error {
	name := d.Entity()
	profile, ok := h.reg.Profile(registry.KindCat, name)
	if !ok {
		h.reply(msg, fmt.Sprintf("I don't know a cat named %s.", name))
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**", profile.Name)
	if len(profile.Nicknames) > 0 {
		fmt.Fprintf(&b, " (aka %s)", strings.Join(profile.Nicknames, ", "))
	}
	if profile.Bio != "" {
		fmt.Fprintf(&b, "\n%s", profile.Bio)
	}
	if profile.PhotoURL != "" {
		fmt.Fprintf(&b, "\n%s", profile.PhotoURL)
	}
	h.reply(msg, b.String())
	return nil
}

// pickImage prefers the message's own attachment over the replied-to
// message's.
func pickImage(msg bus.InboundMessage) (bus.ImageRef, bool) {
	if len(msg.Images) > 0 {
		return msg.Images[0], true
	}
	if len(msg.ReplyImages) > 0 {
		return msg.ReplyImages[0], true
	}
	return bus.ImageRef{}, false
}

func (h *Set) cvIdentify(ctx context.Context, msg bus.InboundMessage) error {
	img, ok := pickImage(msg)
	if !ok || h.cv == nil {
		logger.DebugCF("handlers", "identify skipped", map[string]any{
			"has_image": ok, "vision": h.cv != nil,
		})
		return nil
	}

	results, err := h.cv.Identify(ctx, img.URL)
	if err != nil {
		logger.WarnCF("handlers", "identify failed", map[string]any{"error": err.Error()})
		return nil
	}
	if len(results) == 0 {
		h.reply(msg, "I couldn't find a cat in that photo.")
		return nil
	}

	top := results[0]
	switch {
	case top.Score >= h.cfg.Intents.ConfHigh:
		h.reply(msg, fmt.Sprintf("That's %s! (%.0f%% sure)", top.Name, top.Score*100))
	case top.Score >= h.cfg.Intents.ConfMid:
		h.reply(msg, fmt.Sprintf("That might be %s (%.0f%%).", top.Name, top.Score*100))
	default:
		h.reply(msg, "I'm not sure who that is.")
	}
	return nil
}

func (h *Set) cvDetect(ctx context.Context, msg bus.InboundMessage) error {
	img, ok := pickImage(msg)
	if !ok || h.cv == nil {
		return nil
	}

	detections, err := h.cv.Detect(ctx, img.URL)
	if err != nil {
		logger.WarnCF("handlers", "detect failed", map[string]any{"error": err.Error()})
		return nil
	}
	switch len(detections) {
	case 0:
		h.reply(msg, "No cats found in that photo.")
	case 1:
		h.reply(msg, "Found 1 cat.")
	default:
		h.reply(msg, fmt.Sprintf("Found %d cats.", len(detections)))
	}
	return nil
}

func (h *Set) cvCrop(ctx context.Context, msg bus.InboundMessage) error {
	img, ok := pickImage(msg)
	if !ok || h.cv == nil {
		return nil
	}

	data, _, err := h.cv.Crop(ctx, img.URL)
	if err != nil {
		logger.WarnCF("handlers", "crop failed", map[string]any{"error": err.Error()})
		return nil
	}

	name := utils.SanitizeFilename(img.Filename)
	if name == "file" {
		name = "crop.jpg"
	}
	// crops land in the managed media dir so the scheduler reaps them
	dir, err := utils.MediaDir()
	if err != nil {
		return fmt.Errorf("media dir: %w", err)
	}
	f, err := os.CreateTemp(dir, "crop-*-"+name)
	if err != nil {
		return fmt.Errorf("create crop file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return fmt.Errorf("write crop file: %w", err)
	}
	f.Close()

	h.reply(msg, "", f.Name())
	return nil
}

func (h *Set) feedUpdate(msg bus.InboundMessage, d intent.Decision) error {
	station := d.Entity()
	imageURL := ""
	if img, ok := pickImage(msg); ok {
		imageURL = img.URL
	}

	for _, date := range d.Dates {
		if _, err := h.db.RecordFeeding(store.Feeding{
			Station:      station,
			FedOn:        date,
			ReporterID:   msg.SenderID,
			ReporterName: msg.SenderName,
			Channel:      msg.Channel,
			ChatID:       msg.ChatID,
			ImageURL:     imageURL,
		}); err != nil {
			return fmt.Errorf("record feeding: %w", err)
		}
	}

	if len(d.Dates) == 1 && d.Dates[0] == h.dates.Today() {
		h.reply(msg, fmt.Sprintf("Got it, %s is fed for today. Thanks %s!", station, msg.SenderName))
	} else {
		h.reply(msg, fmt.Sprintf("Logged %s as fed on %s.", station, strings.Join(d.Dates, ", ")))
	}
	return nil
}

func (h *Set) subRequest(msg bus.InboundMessage, d intent.Decision) error {
	req := store.SubRequest{
		Station:       d.Entity(),
		Dates:         d.Dates,
		RequesterID:   msg.SenderID,
		RequesterName: msg.SenderName,
		Channel:       msg.Channel,
		ChatID:        msg.ChatID,
		MessageID:     msg.MessageID,
	}
	if _, err := h.db.CreateSubRequest(req); err != nil {
		return fmt.Errorf("create sub request: %w", err)
	}

	what := "a shift"
	if req.Station != "" {
		what = req.Station
	}
	if len(req.Dates) > 0 {
		h.reply(msg, fmt.Sprintf("Noted! Looking for someone to cover %s on %s.", what, strings.Join(req.Dates, ", ")))
	} else {
		h.reply(msg, fmt.Sprintf("Noted! Looking for someone to cover %s.", what))
	}
	return nil
}

func (h *Set) subAccept(msg bus.InboundMessage) error {
	at := msg.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	req, ok, err := h.db.AcceptLatestOpen(msg.Channel, msg.ChatID, msg.SenderID, at)
	if err != nil {
		return fmt.Errorf("accept sub request: %w", err)
	}
	if !ok {
		// an accept with nothing open is just conversation
		logger.DebugCF("handlers", "accept with no open sub request", map[string]any{
			"chat": msg.ChatID,
		})
		return nil
	}

	what := "the shift"
	if req.Station != "" {
		what = req.Station
	}
	h.reply(msg, fmt.Sprintf("%s has %s covered. Thank you!", msg.SenderName, what))
	return nil
}

func (h *Set) feedingStatus(msg bus.InboundMessage) error {
	today := h.dates.Today()
	fed, err := h.db.StationsFedOn(today)
	if err != nil {
		return fmt.Errorf("read feedings: %w", err)
	}

	var fedList, unfedList []string
	for _, station := range h.reg.Names(registry.KindStation) {
		if fed[station] {
			fedList = append(fedList, station)
		} else {
			unfedList = append(unfedList, station)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Feeding status for %s\n", today)
	if len(fedList) > 0 {
		fmt.Fprintf(&b, "Fed: %s\n", strings.Join(fedList, ", "))
	}
	if len(unfedList) > 0 {
		fmt.Fprintf(&b, "Still waiting: %s", strings.Join(unfedList, ", "))
	} else {
		b.WriteString("Every station is fed. Good work everyone!")
	}
	h.reply(msg, b.String())
	return nil
}

func (h *Set) silentMode(msg bus.InboundMessage, d intent.Decision) error {
	if !h.isAdmin(msg.SenderID) {
		logger.WarnCF("handlers", "silent mode denied", map[string]any{"sender": msg.SenderID})
		return nil
	}

	if d.SilentOn {
		// confirm first so the confirmation itself is not muted
		h.reply(msg, "Silent mode on. I'll keep watching but stay quiet.")
		h.silent.Set(true)
	} else {
		h.silent.Set(false)
		h.reply(msg, "Silent mode off. Back to normal.")
	}
	logger.InfoCF("handlers", "silent mode changed", map[string]any{
		"on": d.SilentOn, "by": msg.SenderID,
	})
	return nil
}

func (h *Set) membersCount(ctx context.Context, msg bus.InboundMessage) error {
	if h.members == nil {
		return nil
	}
	n, err := h.members.MemberCount(ctx, msg.Channel, msg.ChatID)
	if err != nil {
		logger.WarnCF("handlers", "member count failed", map[string]any{"error": err.Error()})
		return nil
	}
	h.reply(msg, fmt.Sprintf("We're %d members strong.", n))
	return nil
}

func (h *Set) isAdmin(senderID string) bool {
	for _, id := range h.cfg.Bot.AdminIDs {
		if id == senderID {
			return true
		}
	}
	return false
}
