package bard

import (
	"testing"

	"github.com/zatxm/fhblade"
)

func TestBuildFReq(t *testing.T) {
	fReq, err := buildFReq("你好", "zh-CN", "at-token", "SESSION-ID",
		"c_123", "r_456", "rc_789", nil, 1700000000, 123000000)
	if err != nil {
		t.Fatal(err)
	}
	var outer []interface{}
	if err := fhblade.Json.UnmarshalFromString(fReq, &outer); err != nil {
		t.Fatal(err)
	}
	if len(outer) != 2 || outer[0] != nil {
		t.Fatalf("outer layout wrong: %v", outer)
	}
	innerJson, ok := outer[1].(string)
	if !ok {
		t.Fatal("inner must be doubly encoded string")
	}
	var inner []interface{}
	if err := fhblade.Json.UnmarshalFromString(innerJson, &inner); err != nil {
		t.Fatal(err)
	}
	if len(inner) != 67 {
		t.Fatalf("inner slots = %d, want 67", len(inner))
	}
	first := inner[0].([]interface{})
	if first[0] != "你好" {
		t.Errorf("text = %v", first[0])
	}
	if first[3] != nil {
		t.Errorf("image data should be null without images, got %v", first[3])
	}
	if inner[3] != "at-token" {
		t.Errorf("snlm0e slot = %v", inner[3])
	}
	conv := inner[2].([]interface{})
	if conv[0] != "c_123" || conv[1] != "r_456" || conv[2] != "rc_789" {
		t.Errorf("conversation triple = %v", conv[:3])
	}
	if conv[9] != "" {
		t.Errorf("conversation tail = %v", conv[9])
	}
	if inner[59] != "SESSION-ID" {
		t.Errorf("session id slot = %v", inner[59])
	}
	ts := inner[66].([]interface{})
	if ts[0].(float64) != 1700000000 {
		t.Errorf("timestamp = %v", ts)
	}
}

func TestBuildFReqWithImages(t *testing.T) {
	images := []*UploadedImage{{
		Path:     "/contrib_service/ttl_1d/abcdef",
		MimeType: "image/png",
		Filename: "image_123456.png",
	}}
	fReq, err := buildFReq("看图", "zh-CN", "at", "S", "", "", "", images, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	var outer []interface{}
	if err := fhblade.Json.UnmarshalFromString(fReq, &outer); err != nil {
		t.Fatal(err)
	}
	var inner []interface{}
	if err := fhblade.Json.UnmarshalFromString(outer[1].(string), &inner); err != nil {
		t.Fatal(err)
	}
	imageData := inner[0].([]interface{})[3].([]interface{})
	if len(imageData) != 1 {
		t.Fatalf("image data = %v", imageData)
	}
	entry := imageData[0].([]interface{})
	ref := entry[0].([]interface{})
	if ref[0] != "/contrib_service/ttl_1d/abcdef" || ref[3] != "image/png" {
		t.Errorf("image ref = %v", ref)
	}
	if entry[1] != "image_123456.png" {
		t.Errorf("filename = %v", entry[1])
	}
}

func TestSkipLine(t *testing.T) {
	for _, line := range []string{"", ")]}'", "123456", "42"} {
		if !skipLine(line) {
			t.Errorf("should skip %q", line)
		}
	}
	for _, line := range []string{`[["wrb.fr"]]`, "12a", "a12"} {
		if skipLine(line) {
			t.Errorf("should keep %q", line)
		}
	}
}

func TestParseEnvelopeLine(t *testing.T) {
	payload := `[null,["c_111","r_222"],null,null,[["rc_333",["回答文本"]]]]`
	line, _ := fhblade.Json.MarshalToString([]interface{}{
		[]interface{}{"wrb.fr", nil, payload},
	})
	frame := parseEnvelopeLine(line)
	if frame == nil {
		t.Fatal("frame is nil")
	}
	if frame.Cid != "c_111" || frame.Rid != "r_222" || frame.Rcid != "rc_333" {
		t.Errorf("ids = %q %q %q", frame.Cid, frame.Rid, frame.Rcid)
	}
	if frame.Text != "回答文本" {
		t.Errorf("text = %q", frame.Text)
	}
}

func TestParseEnvelopeLineSkipsCitationStatus(t *testing.T) {
	line := `[["wrb.fr",null,"[null,[\"c\",\"r\"]]",null,null,[9]]]`
	if frame := parseEnvelopeLine(line); frame != nil {
		t.Errorf("citation status frame should be dropped, got %+v", frame)
	}
	// 状态3是知识库帧,要正常处理
	line = `[["wrb.fr",null,"[null,[\"c_kb\",\"r_kb\"]]",null,null,[3]]]`
	frame := parseEnvelopeLine(line)
	if frame == nil || frame.Cid != "c_kb" {
		t.Errorf("knowledge base frame should pass, got %+v", frame)
	}
}

func TestParseEnvelopeLineIgnoresOtherRPC(t *testing.T) {
	for _, line := range []string{
		`[["di",59]]`,
		`[["af.httprm",59,"123",7]]`,
		`[["wrb.fr",null,null]]`,
		`not json at all`,
	} {
		if frame := parseEnvelopeLine(line); frame != nil {
			t.Errorf("line %q should not yield frame", line)
		}
	}
}

func TestParsePayloadCidFallback(t *testing.T) {
	// 流式首帧cid为空时落在[16]
	payload := `[null,[null,"r_1"],null,null,null,null,null,null,null,null,null,null,null,null,null,null,"c_16"]`
	frame := parsePayload(payload)
	if frame == nil {
		t.Fatal("frame is nil")
	}
	if frame.Cid != "c_16" || frame.Rid != "r_1" {
		t.Errorf("cid = %q rid = %q", frame.Cid, frame.Rid)
	}
}

func TestExtractText(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{"plain", "plain"},
		{[]interface{}{"a", "b"}, "ab"},
		{map[string]interface{}{"text": "t"}, "t"},
		{map[string]interface{}{"content": "c"}, "c"},
		{map[string]interface{}{"parts": []interface{}{"p1", map[string]interface{}{"text": "p2"}}}, "p1p2"},
		{map[string]interface{}{"inlineData": map[string]interface{}{}}, ""},
		{map[string]interface{}{"functionCall": map[string]interface{}{}}, ""},
		{map[string]interface{}{"value": "v"}, "v"},
	}
	for _, cs := range cases {
		if got := extractText(cs.in); got != cs.want {
			t.Errorf("extractText(%v) = %q, want %q", cs.in, got, cs.want)
		}
	}
}

func TestParseFullResponse(t *testing.T) {
	body := ")]}'\n\n55\n" +
		`[["wrb.fr",null,"[null,[\"c_1\",\"r_1\"],null,null,[[\"rc_1\",[\"你\"]]]]"]]` + "\n" +
		"60\n" +
		`[["wrb.fr",null,"[null,[\"c_1\",\"r_1\"],null,null,[[\"rc_1\",[\"你好，世界\"]]]]"]]` + "\n"
	frame := parseFullResponse(body)
	if frame == nil {
		t.Fatal("frame is nil")
	}
	if frame.Text != "你好，世界" {
		t.Errorf("text = %q, want longest", frame.Text)
	}
	if frame.Cid != "c_1" || frame.Rid != "r_1" || frame.Rcid != "rc_1" {
		t.Errorf("ids = %q %q %q", frame.Cid, frame.Rid, frame.Rcid)
	}
}
