package pending

import (
	"sync"
	"time"
)

// Image is one remembered attachment from a recent message.
type Image struct {
	URL         string
	Filename    string
	ContentType string
	SeenAt      time.Time
}

// ImageTrail remembers the newest image each (user, chat) posted, so an
// image-dependent request issued shortly after a photo pairs backwards
// instead of asking for the photo again. Lookups do not consume: one photo
// can answer a later identify and a later feed report alike, exactly like
// the original conversation would.
type ImageTrail struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]Image
}

func NewImageTrail(window time.Duration) *ImageTrail {
	return &ImageTrail{
		window: window,
		last:   make(map[string]Image),
	}
}

// Put records the newest image for the key, replacing any older one.
func (t *ImageTrail) Put(channel, chatID, userID string, img Image) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last[slotKey(channel, chatID, userID)] = img
}

// Last returns the key's most recent image when it is still inside the
// window.
func (t *ImageTrail) Last(channel, chatID, userID string, now time.Time) (Image, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	img, ok := t.last[slotKey(channel, chatID, userID)]
	if !ok || now.Sub(img.SeenAt) > t.window {
		return Image{}, false
	}
	return img, true
}

// Sweep drops every image outside the window and returns how many were
// removed.
func (t *ImageTrail) Sweep(now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for key, img := range t.last {
		if now.Sub(img.SeenAt) > t.window {
			delete(t.last, key)
			removed++
		}
	}
	return removed
}
