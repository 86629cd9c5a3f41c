package support

import (
	"encoding/base64"
	"strings"
	"testing"
)

func TestParseDataURL(t *testing.T) {
	raw := base64.StdEncoding.EncodeToString([]byte("imagebytes"))
	mime, data, ok := ParseDataURL("data:image/jpeg;base64," + raw)
	if !ok {
		t.Fatal("should parse")
	}
	if mime != "image/jpeg" || string(data) != "imagebytes" {
		t.Errorf("mime = %q data = %q", mime, data)
	}
	if _, _, ok := ParseDataURL("data:image/jpeg;base64,%%%"); ok {
		t.Error("broken base64 should fail")
	}
	if _, _, ok := ParseDataURL("http://a/b.jpg"); ok {
		t.Error("plain url should fail")
	}
}

func TestEqURL(t *testing.T) {
	if !EqURL("https://a.com/x") || !EqURL("http://a.com/x") {
		t.Error("http urls should pass")
	}
	if EqURL("ftp://a.com") || EqURL("a.com") {
		t.Error("non-http should fail")
	}
}

func TestRandomIP(t *testing.T) {
	for i := 0; i < 20; i++ {
		ip := RandomIP()
		if strings.Count(ip, ".") != 3 {
			t.Fatalf("bad ip %q", ip)
		}
	}
}
