package intent

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/addressing"
	"github.com/Austin-J-B/tomcat/pkg/bus"
	"github.com/Austin-J-B/tomcat/pkg/config"
	"github.com/Austin-J-B/tomcat/pkg/nlp"
	"github.com/Austin-J-B/tomcat/pkg/registry"
	"github.com/Austin-J-B/tomcat/pkg/when"
)

type fakeScorer struct {
	label string
	score float64
	err   error
	calls int
}

func (f *fakeScorer) Score(_ context.Context, _ string, _ []string) (nlp.Result, error) {
	f.calls++
	if f.err != nil {
		return nlp.Result{}, f.err
	}
	return nlp.Result{Label: f.label, Score: f.score}, nil
}

func testResolver(t *testing.T, scorer nlp.Scorer) *Resolver {
	t.Helper()
	cfg := config.DefaultConfig()
	reg := registry.New(cfg.Registry)
	return NewResolver(cfg.Intents, reg, scorer, when.NewExtractor("America/Chicago"))
}

func addressedInput(t *testing.T, text string) Input {
	t.Helper()
	det := addressing.NewDetector([]string{"tomcat", "tom cat"})
	res := det.Detect(text, false, false)
	return Input{
		Msg:       bus.InboundMessage{Channel: "discord", SenderID: "u1", ChatID: "c1", Content: text},
		Body:      res.Body,
		Addressed: res.Addressed,
		Now:       time.Date(2026, 8, 12, 12, 0, 0, 0, time.UTC),
	}
}

func allowlistedInput(t *testing.T, text string) Input {
	t.Helper()
	in := addressedInput(t, text)
	in.Addressed = false
	in.Allowlisted = true
	return in
}

func TestWhoIsResolvesShowProfile(t *testing.T) {
	r := testResolver(t, nil)
	d := r.Resolve(context.Background(), addressedInput(t, "TomCat, who is Microwave"))
	if d.Kind != KindShowProfile {
		t.Fatalf("kind = %s, want show_profile", d.Kind)
	}
	if d.Source != StageAlias {
		t.Fatalf("source = %s, want alias", d.Source)
	}
	if d.Entity() != "Microwave" {
		t.Fatalf("entity = %q, want Microwave", d.Entity())
	}
}

func TestShowMeResolvesShowPhoto(t *testing.T) {
	r := testResolver(t, nil)
	d := r.Resolve(context.Background(), addressedInput(t, "tomcat show me Twix"))
	if d.Kind != KindShowPhoto || d.Entity() != "Twix" {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestShowWithUnknownCatStaysSilent(t *testing.T) {
	r := testResolver(t, nil)
	d := r.Resolve(context.Background(), addressedInput(t, "tomcat show me the quarterly report"))
	if d.Kind != KindNone {
		t.Fatalf("kind = %s, want none", d.Kind)
	}
}

func TestAllowlistedSubRequest(t *testing.T) {
	r := testResolver(t, nil)
	d := r.Resolve(context.Background(), allowlistedInput(t, "can someone cover Business"))
	if d.Kind != KindSubRequest {
		t.Fatalf("kind = %s, want sub_request", d.Kind)
	}
	if d.Source != StageAlias {
		t.Fatalf("source = %s, want alias", d.Source)
	}
	if d.Entity() != "Business" {
		t.Fatalf("entity = %q, want Business", d.Entity())
	}
}

func TestUnaddressedOutsideAllowlistIsNone(t *testing.T) {
	r := testResolver(t, nil)
	in := addressedInput(t, "can someone cover Business")
	in.Addressed = false
	in.Allowlisted = false
	if d := r.Resolve(context.Background(), in); d.Kind != KindNone {
		t.Fatalf("kind = %s, want none", d.Kind)
	}
}

func TestFeedVerbWithStation(t *testing.T) {
	r := testResolver(t, nil)
	d := r.Resolve(context.Background(), allowlistedInput(t, "mike fed"))
	if d.Kind != KindFeedUpdate {
		t.Fatalf("kind = %s, want feed_update", d.Kind)
	}
	if d.Entity() != "Microwave" {
		t.Fatalf("entity = %q, want Microwave", d.Entity())
	}
	if len(d.Dates) != 1 {
		t.Fatalf("dates = %v, want exactly today", d.Dates)
	}
}

func TestBareStationWithImageIsFeedUpdate(t *testing.T) {
	r := testResolver(t, nil)
	in := allowlistedInput(t, "west hall")
	in.Msg.Images = []bus.ImageRef{{ID: "a1", URL: "https://x/img.jpg"}}
	d := r.Resolve(context.Background(), in)
	if d.Kind != KindFeedUpdate || d.Entity() != "West Hall" {
		t.Fatalf("unexpected decision: %+v", d)
	}
	if d.Confidence < 0.9 {
		t.Fatalf("confidence = %f, want >= 0.9", d.Confidence)
	}
}

func TestBareStationWithoutImageIsLowConfidence(t *testing.T) {
	r := testResolver(t, nil)
	d := r.Resolve(context.Background(), allowlistedInput(t, "west hall"))
	if d.Kind != KindFeedUpdate {
		t.Fatalf("kind = %s, want feed_update", d.Kind)
	}
	if d.Confidence >= 0.75 {
		t.Fatalf("confidence = %f, want below the mid gate", d.Confidence)
	}
}

func TestSubAcceptNeedsContext(t *testing.T) {
	r := testResolver(t, nil)
	// bare accept with no sub request anywhere: none
	if d := r.Resolve(context.Background(), allowlistedInput(t, "sure i got it")); d.Kind != KindNone {
		t.Fatalf("kind = %s, want none without context", d.Kind)
	}

	// after a sub request in the same chat, the accept resolves
	_ = r.Resolve(context.Background(), allowlistedInput(t, "need a sub for hop friday"))
	d := r.Resolve(context.Background(), allowlistedInput(t, "sure i got it"))
	if d.Kind != KindSubAccept {
		t.Fatalf("kind = %s, want sub_accept after sub request", d.Kind)
	}

	// a reply is always enough context
	in := allowlistedInput(t, "sure i got it")
	in.Msg.ChatID = "other"
	in.Msg.ReplyToID = "m99"
	if d := r.Resolve(context.Background(), in); d.Kind != KindSubAccept {
		t.Fatalf("kind = %s, want sub_accept on reply", d.Kind)
	}
}

func TestSilentModeCommand(t *testing.T) {
	r := testResolver(t, nil)
	d := r.Resolve(context.Background(), addressedInput(t, "tomcat silent mode on"))
	if d.Kind != KindSilentMode || !d.SilentOn {
		t.Fatalf("unexpected decision: %+v", d)
	}
	d = r.Resolve(context.Background(), addressedInput(t, "tomcat silent mode off"))
	if d.Kind != KindSilentMode || d.SilentOn {
		t.Fatalf("unexpected decision: %+v", d)
	}
}

func TestFeedingStatusPhrasings(t *testing.T) {
	r := testResolver(t, nil)
	for _, text := range []string{
		"tomcat feeding update",
		"tomcat who's been fed today",
		"tomcat which stations haven't been fed",
	} {
		d := r.Resolve(context.Background(), addressedInput(t, text))
		if d.Kind != KindFeedingStatus {
			t.Fatalf("%q: kind = %s, want feeding_status", text, d.Kind)
		}
	}
}

func TestBackstopNeverLeads(t *testing.T) {
	scorer := &fakeScorer{label: string(KindFeedUpdate), score: 0.99}
	r := testResolver(t, scorer)
	// deterministic hit: scorer must not be consulted
	d := r.Resolve(context.Background(), allowlistedInput(t, "mike fed"))
	if d.Source != StageAlias {
		t.Fatalf("source = %s, want alias", d.Source)
	}
	if scorer.calls != 0 {
		t.Fatalf("scorer called %d times on a deterministic hit", scorer.calls)
	}
}

func TestBackstopResolvesWhenDeterministicFails(t *testing.T) {
	scorer := &fakeScorer{label: string(KindFeedUpdate), score: 0.81}
	r := testResolver(t, scorer)
	// no feed verb the rules know, but the station is present
	d := r.Resolve(context.Background(), addressedInput(t, "tomcat took care of the business kitties earlier"))
	if d.Kind != KindFeedUpdate {
		t.Fatalf("kind = %s, want feed_update via backstop", d.Kind)
	}
	if d.Source != StageNLP {
		t.Fatalf("source = %s, want nlp", d.Source)
	}
}

func TestBackstopBelowThresholdIsSilent(t *testing.T) {
	scorer := &fakeScorer{label: string(KindFeedUpdate), score: 0.4}
	r := testResolver(t, scorer)
	d := r.Resolve(context.Background(), addressedInput(t, "tomcat something ambiguous entirely"))
	if d.Kind != KindNone {
		t.Fatalf("kind = %s, want none below threshold", d.Kind)
	}
}

func TestBackstopErrorIsSilent(t *testing.T) {
	scorer := &fakeScorer{err: fmt.Errorf("model offline")}
	r := testResolver(t, scorer)
	d := r.Resolve(context.Background(), addressedInput(t, "tomcat something ambiguous entirely"))
	if d.Kind != KindNone {
		t.Fatalf("kind = %s, want none on scorer failure", d.Kind)
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := testResolver(t, nil)
	in := allowlistedInput(t, "filled the greens yesterday")
	first := r.Resolve(context.Background(), in)
	for i := 0; i < 10; i++ {
		again := r.Resolve(context.Background(), in)
		if again.Kind != first.Kind || again.Confidence != first.Confidence || again.Source != first.Source {
			t.Fatalf("run %d differed: %+v vs %+v", i, again, first)
		}
	}
}

func TestFuzzyFallbackForMisspelledStation(t *testing.T) {
	r := testResolver(t, nil)
	d := r.Resolve(context.Background(), allowlistedInput(t, "maintenence fed"))
	if d.Kind != KindFeedUpdate {
		t.Fatalf("kind = %s, want feed_update", d.Kind)
	}
	if d.Source != StageFuzzy {
		t.Fatalf("source = %s, want fuzzy", d.Source)
	}
	if d.Entity() != "Maintenance" {
		t.Fatalf("entity = %q, want Maintenance", d.Entity())
	}
}
