package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Austin-J-B/tomcat/pkg/config"
)

func TestIdentify(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/identify" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req struct {
			ImageURL string `json:"image_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.ImageURL != "https://cdn.example/cat.jpg" {
			t.Errorf("image_url = %s", req.ImageURL)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"results": []Identification{
				{Name: "Microwave", Score: 0.92},
				{Name: "Twix", Score: 0.04},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	got, err := c.Identify(context.Background(), "https://cdn.example/cat.jpg")
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}
	if len(got) != 2 || got[0].Name != "Microwave" {
		t.Fatalf("results = %+v", got)
	}
}

func TestDetect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"detections": []Detection{{Box: [4]int{10, 20, 100, 120}, Score: 0.88}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	got, err := c.Detect(context.Background(), "https://cdn.example/cat.jpg")
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if len(got) != 1 || got[0].Box[2] != 100 {
		t.Fatalf("detections = %+v", got)
	}
}

func TestCropReturnsBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte("jpegbytes"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	data, ctype, err := c.Crop(context.Background(), "https://cdn.example/cat.jpg")
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	if string(data) != "jpegbytes" || ctype != "image/jpeg" {
		t.Fatalf("data = %q, type = %q", data, ctype)
	}
}

func TestBudgetEnforced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 50*time.Millisecond)
	if _, err := c.Identify(context.Background(), "https://cdn.example/cat.jpg"); err == nil {
		t.Fatal("expected a budget error")
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 2*time.Second)
	if _, err := c.Detect(context.Background(), "https://cdn.example/cat.jpg"); err == nil {
		t.Fatal("expected an error on 503")
	}
}

func TestFromConfigDisabled(t *testing.T) {
	if c := FromConfig(config.VisionConfig{Enabled: false, BaseURL: "http://x"}); c != nil {
		t.Fatal("disabled config produced a client")
	}
	if c := FromConfig(config.VisionConfig{Enabled: true}); c != nil {
		t.Fatal("empty base URL produced a client")
	}
	if c := FromConfig(config.VisionConfig{Enabled: true, BaseURL: "http://x", BudgetMS: 100}); c == nil {
		t.Fatal("enabled config produced no client")
	}
}
