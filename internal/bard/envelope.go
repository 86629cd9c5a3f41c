package bard

import (
	"strings"

	"github.com/zatxm/fhblade"
)

// StreamGenerate响应里的一帧增量
type chatFrame struct {
	Cid  string
	Rid  string
	Rcid string
	Text string // 累积全文,非增量
}

// 已上传到google的图片引用
type UploadedImage struct {
	Path     string
	MimeType string
	Filename string
}

// 组装f.req参数,外层[null,"<内层json>"]双重编码
func buildFReq(text, hl, snlm0e, sessionId string, cid, rid, rcid string, images []*UploadedImage, tsSec, tsNano int64) (string, error) {
	var imageData interface{}
	if len(images) > 0 {
		list := make([]interface{}, 0, len(images))
		for k := range images {
			img := images[k]
			list = append(list, []interface{}{
				[]interface{}{img.Path, 1, nil, img.MimeType},
				img.Filename,
			})
		}
		imageData = list
	}

	inner := make([]interface{}, 67)
	inner[0] = []interface{}{text, 0, nil, imageData, nil, nil, 0}
	inner[1] = []interface{}{hl}
	inner[2] = []interface{}{cid, rid, rcid, nil, nil, nil, nil, nil, nil, ""}
	inner[3] = snlm0e
	inner[6] = []interface{}{1}
	inner[7] = 1
	inner[10] = 1
	inner[11] = 0
	inner[17] = []interface{}{[]interface{}{0}}
	inner[18] = 0
	inner[27] = 1
	inner[30] = []interface{}{4}
	inner[41] = []interface{}{1}
	inner[53] = 0
	inner[59] = sessionId
	inner[61] = []interface{}{}
	inner[66] = []interface{}{tsSec, tsNano}

	innerJson, err := fhblade.Json.MarshalToString(inner)
	if err != nil {
		return "", err
	}
	return fhblade.Json.MarshalToString([]interface{}{nil, innerJson})
}

// 响应按行给出,数字行是后一行的字节数,直接跳过
func skipLine(line string) bool {
	if line == "" || strings.HasPrefix(line, ")]}'") {
		return true
	}
	for i := 0; i < len(line); i++ {
		if line[i] < '0' || line[i] > '9' {
			return false
		}
	}
	return true
}

// 解析一行wrb.fr信封,非聊天数据返回nil
func parseEnvelopeLine(line string) *chatFrame {
	var outer []interface{}
	if err := fhblade.Json.UnmarshalFromString(line, &outer); err != nil {
		return nil
	}
	if len(outer) == 0 {
		return nil
	}
	env, ok := outer[0].([]interface{})
	if !ok || len(env) < 3 {
		return nil
	}
	if tag, ok := env[0].(string); !ok || tag != "wrb.fr" {
		return nil
	}
	// [5]里的9是引用内容占位帧,丢弃;3是知识库帧,正常处理
	if len(env) >= 6 {
		if status, ok := env[5].([]interface{}); ok && len(status) > 0 {
			if code, ok := status[0].(float64); ok && code == 9 {
				return nil
			}
		}
	}
	payload, ok := env[2].(string)
	if !ok || payload == "" {
		return nil
	}
	return parsePayload(payload)
}

func parsePayload(payload string) *chatFrame {
	var data []interface{}
	if err := fhblade.Json.UnmarshalFromString(payload, &data); err != nil {
		return nil
	}
	if len(data) < 2 {
		return nil
	}
	frame := &chatFrame{}
	if meta, ok := data[1].([]interface{}); ok {
		if len(meta) > 0 {
			frame.Cid, _ = meta[0].(string)
		}
		if len(meta) > 1 {
			frame.Rid, _ = meta[1].(string)
		}
	}
	// 流式首帧cid可能为空,落在[16]
	if frame.Cid == "" && len(data) > 16 {
		frame.Cid, _ = data[16].(string)
	}
	if len(data) > 4 {
		if candidates, ok := data[4].([]interface{}); ok && len(candidates) > 0 {
			if candidate, ok := candidates[0].([]interface{}); ok {
				if len(candidate) > 0 {
					frame.Rcid, _ = candidate[0].(string)
				}
				if len(candidate) > 1 {
					frame.Text = extractText(candidate[1])
				}
			}
		}
	}
	if frame.Cid == "" && frame.Rid == "" && frame.Text == "" {
		return nil
	}
	return frame
}

// 正文部分可能是字符串、字符串数组或带text/content/parts的map
func extractText(v interface{}) string {
	switch part := v.(type) {
	case string:
		return part
	case []interface{}:
		var b strings.Builder
		for k := range part {
			b.WriteString(extractText(part[k]))
		}
		return b.String()
	case map[string]interface{}:
		if _, ok := part["inlineData"]; ok {
			return ""
		}
		if _, ok := part["functionCall"]; ok {
			return ""
		}
		if t, ok := part["text"].(string); ok {
			return t
		}
		if t, ok := part["content"].(string); ok {
			return t
		}
		if sub, ok := part["parts"]; ok {
			return extractText(sub)
		}
		if t, ok := part["value"].(string); ok {
			return t
		}
	}
	return ""
}

// 整包解析,取文本最长的一帧,会话三元组逐帧补全
func parseFullResponse(body string) *chatFrame {
	final := &chatFrame{}
	lines := strings.Split(body, "\n")
	for k := range lines {
		line := strings.TrimSpace(lines[k])
		if skipLine(line) {
			continue
		}
		frame := parseEnvelopeLine(line)
		if frame == nil {
			continue
		}
		mergeFrame(final, frame)
	}
	if final.Cid == "" && final.Text == "" {
		return nil
	}
	return final
}

func mergeFrame(dst, src *chatFrame) {
	if src.Cid != "" {
		dst.Cid = src.Cid
	}
	if src.Rid != "" {
		dst.Rid = src.Rid
	}
	if src.Rcid != "" {
		dst.Rcid = src.Rcid
	}
	if len(src.Text) > len(dst.Text) {
		dst.Text = src.Text
	}
}
