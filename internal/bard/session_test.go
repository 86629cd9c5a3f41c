package bard

import (
	"reflect"
	"testing"
	"time"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/config"
)

func newTestSession(t *testing.T, snlm0e string) *Session {
	t.Helper()
	cfg := &config.Config{}
	cfg.Gemini.Cookies = "__Secure-1PSID=abc"
	cfg.Gemini.Snlm0e = snlm0e
	cfg.Gemini.TokenTTLMinutes = 25
	s, err := NewSession(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestCleanCookies(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"__Secure-1PSID=abc; SID=def", "__Secure-1PSID=abc; SID=def"},
		{"cookie: __Secure-1PSID=abc", "__Secure-1PSID=abc"},
		{"Cookie:__Secure-1PSID=abc", "__Secure-1PSID=abc"},
		{"COOKIE: __Secure-1PSID=abc", "__Secure-1PSID=abc"},
		{"  __Secure-1PSID=abc  ", "__Secure-1PSID=abc"},
		{"__Secure-1PSID=abc;\nSID=def", "__Secure-1PSID=abc; SID=def"},
	}
	for _, cs := range cases {
		if got := CleanCookies(cs.in); got != cs.want {
			t.Errorf("CleanCookies(%q) = %q, want %q", cs.in, got, cs.want)
		}
	}
}

func TestSessionStaleness(t *testing.T) {
	// 手动配置的token不按时间过期
	s := newTestSession(t, "at-manual")
	s.fetchedAt = time.Now().Add(-time.Hour)
	if s.staleLocked() {
		t.Error("manual token should not expire by time")
	}
	snlm0e, bl, err := s.Tokens()
	if err != nil {
		t.Fatal(err)
	}
	if snlm0e != "at-manual" || bl != defaultBl {
		t.Errorf("Tokens() = %q, %q", snlm0e, bl)
	}

	// 抓取来的token超过ttl要重新抓
	s = newTestSession(t, "at-scraped")
	s.manual = false
	s.fetchedAt = time.Now()
	if s.staleLocked() {
		t.Error("fresh scraped token should still be valid")
	}
	s.fetchedAt = time.Now().Add(-26 * time.Minute)
	if !s.staleLocked() {
		t.Error("scraped token past ttl should be stale")
	}

	// 没token必须抓
	s = newTestSession(t, "")
	if !s.staleLocked() {
		t.Error("empty token should be stale")
	}
}

func TestSessionInvalidate(t *testing.T) {
	s := newTestSession(t, "at-manual")
	s.Invalidate()
	if snlm0e, _ := s.TokenInfo(); snlm0e != "" {
		t.Errorf("token after invalidate = %q", snlm0e)
	}
	if s.manual {
		t.Error("invalidate should drop manual flag")
	}
	if !s.staleLocked() {
		t.Error("invalidated session should need re-scrape")
	}
}

func TestScanSnlm0e(t *testing.T) {
	cases := []struct {
		html string
		want string
	}{
		{`window.WIZ_global_data = {"SNlM0e":"AUieZ_token123"}`, "AUieZ_token123"},
		{`{"at":"AUieZ_fallback"}`, "AUieZ_fallback"},
		{`SNlM0e: 'AUieZ_loose'`, "AUieZ_loose"},
		{`nothing here`, ""},
	}
	for _, cs := range cases {
		if got := scanFirst(snlm0ePatterns, cs.html); got != cs.want {
			t.Errorf("scan %q = %q, want %q", cs.html, got, cs.want)
		}
	}
}

func TestScanBlAndPushId(t *testing.T) {
	html := `{"cfb2h":"boq_assistant-bard-web-server_20250101.01_p1","feedName":"feeds/abc123defg4567"}`
	if m := blPattern.FindStringSubmatch(html); m == nil || m[1] != "boq_assistant-bard-web-server_20250101.01_p1" {
		t.Errorf("bl scan failed: %v", m)
	}
	if got := scanFirst(pushIdPatterns, html); got != "feeds/abc123defg4567" {
		t.Errorf("push id = %q", got)
	}
}

func TestScanModels(t *testing.T) {
	html := `["gemini-3.0-flash","gemini-3.0-pro","gemini-embedding-001","GEMINI-3.0-FLASH","gemini-nano-2"]`
	got := scanModels(html)
	want := []string{"gemini-3.0-flash", "gemini-3.0-pro", "gemini-nano-2"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("models = %v, want %v", got, want)
	}
}
