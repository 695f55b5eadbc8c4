// Package schedule runs the recurring jobs: the evening unfed-stations
// reminder and the sweep that clears stale pending slots. Cron
// expressions come from config and are evaluated in the community
// timezone.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/logger"
	"github.com/Austin-J-B/tomcat/pkg/registry"
	"github.com/Austin-J-B/tomcat/pkg/store"
	"github.com/Austin-J-B/tomcat/pkg/utils"
	"github.com/Austin-J-B/tomcat/pkg/when"
)

// generated media older than this is reaped on every sweep tick
const mediaMaxAge = time.Hour

// Sender is the outbound path for reminder posts; the router's muted
// sender, so silent mode also quiets reminders.
type Sender interface {
	Send(msg bus.OutboundMessage)
}

// Sweeper expires stale per-message state between pairings.
type Sweeper interface {
	SweepPending(now time.Time)
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cfg     *config.Config
	reg     *registry.Registry
	db      *store.Store
	dates   *when.Extractor
	out     Sender
	sweeper Sweeper
	cron    *cron.Cron
}

func New(cfg *config.Config, reg *registry.Registry, db *store.Store,
	dates *when.Extractor, out Sender, sweeper Sweeper) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Bot.Timezone)
	if err != nil {
		loc = time.UTC
	}

	s := &Scheduler{
		cfg:     cfg,
		reg:     reg,
		db:      db,
		dates:   dates,
		out:     out,
		sweeper: sweeper,
		cron:    cron.New(cron.WithLocation(loc)),
	}

	if cfg.Schedule.ReminderCron != "" {
		if _, err := s.cron.AddFunc(cfg.Schedule.ReminderCron, s.postReminder); err != nil {
			return nil, fmt.Errorf("bad reminder cron %q: %w", cfg.Schedule.ReminderCron, err)
		}
	}
	if cfg.Schedule.SweepCron != "" {
		if _, err := s.cron.AddFunc(cfg.Schedule.SweepCron, s.sweep); err != nil {
			return nil, fmt.Errorf("bad sweep cron %q: %w", cfg.Schedule.SweepCron, err)
		}
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.InfoC("schedule", "scheduler started")
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// sweep expires pending per-message state and reaps stale generated media.
func (s *Scheduler) sweep() {
	now := time.Now()
	s.sweeper.SweepPending(now)
	if dir, err := utils.MediaDir(); err == nil {
		if removed := utils.CleanDir(dir, mediaMaxAge, now); removed > 0 {
			logger.DebugCF("schedule", "media files reaped", map[string]any{"count": removed})
		}
	}
}

// postReminder posts the unfed-stations summary to every feeding-team
// chat. Nothing is posted when every station is covered.
func (s *Scheduler) postReminder() {
	today := s.dates.Today()
	fed, err := s.db.StationsFedOn(today)
	if err != nil {
		logger.WarnCF("schedule", "reminder read failed", map[string]any{"error": err.Error()})
		return
	}

	var unfed []string
	for _, station := range s.reg.Names(registry.KindStation) {
		if !fed[station] {
			unfed = append(unfed, station)
		}
	}
	if len(unfed) == 0 {
		logger.InfoC("schedule", "all stations fed, skipping reminder")
		return
	}

	content := fmt.Sprintf("Evening check: still waiting on %s today. Anyone able to swing by?",
		strings.Join(unfed, ", "))
	for _, chatID := range s.cfg.Channels.FeedingTeam {
		s.out.Send(bus.OutboundMessage{
			Channel: "discord",
			ChatID:  chatID,
			Content: content,
		})
	}
	logger.InfoCF("schedule", "reminder posted", map[string]any{"unfed": len(unfed)})
}
