package addressing

import "testing"

func newDetector() *Detector {
	return NewDetector([]string{"tomcat", "tom cat", "tom-kat"})
}

func TestWakeWordPrefix(t *testing.T) {
	d := newDetector()
	cases := []struct {
		in       string
		wantBody string
	}{
		{"TomCat, who is Microwave", "who is microwave"},
		{"  tomcat   show me Twix ", "show me twix"},
		{"Tom Cat feeding update", "feeding update"},
		{"tom-kat who's been fed", "who s been fed"},
	}
	for _, c := range cases {
		res := d.Detect(c.in, false, false)
		if !res.Addressed || res.Reason != ReasonWakeWord {
			t.Fatalf("%q: not detected as wake word: %+v", c.in, res)
		}
		if res.Body != c.wantBody {
			t.Fatalf("%q: body = %q, want %q", c.in, res.Body, c.wantBody)
		}
	}
}

func TestWakeWordMustBePrefix(t *testing.T) {
	d := newDetector()
	res := d.Detect("I wonder if tomcat saw this", false, false)
	if res.Addressed {
		t.Fatalf("mid-sentence bot name must not address: %+v", res)
	}
}

func TestMentionAndDM(t *testing.T) {
	d := newDetector()
	if res := d.Detect("anyone around?", false, true); !res.Addressed || res.Reason != ReasonMention {
		t.Fatalf("mention not detected: %+v", res)
	}
	if res := d.Detect("anyone around?", true, false); !res.Addressed || res.Reason != ReasonDM {
		t.Fatalf("dm not detected: %+v", res)
	}
}

func TestAmbientChatterIsNotAddressed(t *testing.T) {
	d := newDetector()
	res := d.Detect("the cats were out in force today", false, false)
	if res.Addressed || res.Reason != ReasonNone {
		t.Fatalf("ambient chatter flagged as addressed: %+v", res)
	}
	if res.Body != "the cats were out in force today" {
		t.Fatalf("body should be the normalized input, got %q", res.Body)
	}
}
