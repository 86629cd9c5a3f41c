package bard

import (
	"encoding/base64"
	"strings"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/client"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/types"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/vars"
	"github.com/Deng1Qsx2Wdc/geminixiang/pkg/support"
	http "github.com/bogdanfinn/fhttp"
	"github.com/h2non/filetype"
	"github.com/zatxm/fhblade"
	"github.com/zatxm/fhblade/tools"
	tlsClient "github.com/zatxm/tls-client"
	"go.uber.org/zap"
)

// 待上传的图片原始数据
type imageSource struct {
	MimeType string
	Data     []byte
}

// openai格式消息的解析结果
type intake struct {
	Text         string // 发送的正文,取最后一条user消息
	Images       []*imageSource
	UserTexts    []string // 全部user消息文本,算会话hash用
	HasAssistant bool
	URLContext   bool
}

func hasURLContextTool(tools []map[string]interface{}) bool {
	for k := range tools {
		if _, ok := tools[k]["urlContext"]; ok {
			return true
		}
	}
	return false
}

func parseMessages(messages []*types.ReqMessage) *intake {
	in := &intake{}
	for k := range messages {
		m := messages[k]
		switch m.Role {
		case "user":
			text, images := parseContent(m.Content)
			in.Text = text
			in.Images = images
			in.UserTexts = append(in.UserTexts, text)
		case "assistant":
			in.HasAssistant = true
		}
		// system等其他角色忽略
	}
	return in
}

// content是纯文本或text/image_url分块数组
func parseContent(content interface{}) (string, []*imageSource) {
	text, ok := content.(string)
	if ok {
		return text, nil
	}
	parts, ok := content.([]interface{})
	if !ok {
		return "", nil
	}
	var textParts []string
	var images []*imageSource
	for k := range parts {
		part, ok := parts[k].(map[string]interface{})
		if !ok {
			continue
		}
		switch part["type"] {
		case "text":
			if t, ok := part["text"].(string); ok {
				textParts = append(textParts, t)
			}
		case "image_url":
			url := ""
			switch v := part["image_url"].(type) {
			case string:
				url = v
			case map[string]interface{}:
				url, _ = v["url"].(string)
			}
			if img := resolveImage(url); img != nil {
				images = append(images, img)
			}
		}
	}
	return strings.Join(textParts, " "), images
}

// 图片三种来源:data url、http url、裸base64
func resolveImage(url string) *imageSource {
	if url == "" {
		return nil
	}
	if mime, data, ok := support.ParseDataURL(url); ok {
		return &imageSource{MimeType: mime, Data: data}
	}
	if support.EqURL(url) {
		return downloadImage(url)
	}
	if support.EqBase64(url) {
		data, err := base64.StdEncoding.DecodeString(url)
		if err != nil {
			return nil
		}
		return &imageSource{MimeType: sniffMime(data, "image/png"), Data: data}
	}
	return nil
}

func downloadImage(url string) *imageSource {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("accept", vars.AcceptAll)
	req.Header.Set("user-agent", vars.UserAgent)
	gClient := client.CPool.Get().(tlsClient.HttpClient)
	resp, err := gClient.Do(req)
	client.CPool.Put(gClient)
	if err != nil {
		fhblade.Log.Warn("image download err", zap.Error(err), zap.String("url", url))
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}
	data, err := tools.ReadAll(resp.Body)
	if err != nil {
		return nil
	}
	mime := strings.Split(resp.Header.Get("Content-Type"), ";")[0]
	if mime == "" || mime == "application/octet-stream" {
		mime = sniffMime(data, "image/jpeg")
	}
	return &imageSource{MimeType: mime, Data: data}
}

func sniffMime(data []byte, fallback string) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	return fallback
}
