package support

import (
	"encoding/base64"
	"strings"
)

func EqURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func EqDataURL(s string) bool {
	return strings.HasPrefix(s, "data:") && strings.Contains(s, ";base64,")
}

// data:image/png;base64,xxx -> (image/png, 解码数据)
func ParseDataURL(s string) (string, []byte, bool) {
	if !EqDataURL(s) {
		return "", nil, false
	}
	meta, raw, _ := strings.Cut(s, ";base64,")
	mime := strings.TrimPrefix(meta, "data:")
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return "", nil, false
	}
	return mime, data, true
}

func EqBase64(s string) bool {
	if s == "" {
		return false
	}
	probe := s
	if len(probe) > 100 {
		probe = probe[:100]
	}
	_, err := base64.StdEncoding.DecodeString(probe[:len(probe)-len(probe)%4])
	return err == nil
}
