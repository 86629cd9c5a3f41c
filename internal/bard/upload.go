package bard

import (
	"bytes"
	"errors"
	"net/url"
	"regexp"
	"strconv"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/client"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/config"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/vars"
	"github.com/Deng1Qsx2Wdc/geminixiang/pkg/support"
	http "github.com/bogdanfinn/fhttp"
	"github.com/zatxm/fhblade"
	"github.com/zatxm/fhblade/tools"
	tlsClient "github.com/zatxm/tls-client"
	"go.uber.org/zap"
)

const uploadURL = "https://push.clients6.google.com/upload/"

var (
	ErrUploadAuth = errors.New("图片上传认证失败,cookie可能已过期")

	contribPathPattern = regexp.MustCompile(`/contrib_service/[^\s"']+`)
)

func uploadBrowserHeader() http.Header {
	return http.Header{
		"accept":               {vars.AcceptAll},
		"accept-language":      {vars.AcceptLanguage},
		"origin":               {baseURL},
		"referer":              {baseURL + "/"},
		"sec-fetch-dest":       {"empty"},
		"sec-fetch-mode":       {"cors"},
		"sec-fetch-site":       {"same-site"},
		"user-agent":           {vars.UserAgent},
		"x-browser-channel":    {"stable"},
		"x-browser-copyright":  {"Copyright 2025 Google LLC. All Rights reserved."},
		"x-browser-validation": {"Aj9fzfu+SaGLBY9Oqr3S7RokOtM="},
		"x-browser-year":       {"2025"},
		"x-client-data":        {"CIa2yQEIpbbJAQipncoBCNvaygEIk6HLAQiFoM0BCJaMzwEIkZHPAQiSpM8BGOyFzwEYsobPAQ=="},
	}
}

// 两步断点续传握手,返回contrib_service图片路径
func (s *Session) uploadImage(img *imageSource) (*UploadedImage, error) {
	pushId := s.PushId()
	if pushId == "" {
		return nil, errors.New("图片上传需要push_id")
	}
	filename := "image_" + strconv.Itoa(support.RandIntn(100000, 999999)) + ".png"

	gClient := client.CPool.Get().(tlsClient.HttpClient)
	defer client.CPool.Put(gClient)
	proxyUrl := config.GeminiProxyUrl()
	if proxyUrl != "" {
		gClient.SetProxy(proxyUrl)
	}

	// 第一步,拿upload_id
	form := url.Values{"File name": {filename}}
	req, err := http.NewRequest(http.MethodPost, uploadURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header = uploadBrowserHeader()
	req.Header.Set("content-type", vars.ContentTypeForm)
	req.Header.Set("cookie", s.Cookies())
	req.Header.Set("push-id", pushId)
	req.Header.Set("x-goog-upload-command", "start")
	req.Header.Set("x-goog-upload-header-content-length", strconv.Itoa(len(img.Data)))
	req.Header.Set("x-goog-upload-protocol", "resumable")
	req.Header.Set("x-tenant-id", "bard-storage")
	resp, err := gClient.Do(req)
	if err != nil {
		fhblade.Log.Error("gemini web upload start err", zap.Error(err))
		return nil, err
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUploadAuth
	}
	uploadId := resp.Header.Get("x-guploader-uploadid")
	if uploadId == "" {
		fhblade.Log.Warn("gemini web upload no upload id", zap.Int("code", resp.StatusCode))
		return nil, ErrUploadAuth
	}

	// 第二步,一次性传完并finalize
	req, err = http.NewRequest(http.MethodPost,
		uploadURL+"?upload_id="+url.QueryEscape(uploadId)+"&upload_protocol=resumable",
		bytes.NewReader(img.Data))
	if err != nil {
		return nil, err
	}
	req.Header = uploadBrowserHeader()
	req.Header.Set("content-type", img.MimeType)
	req.Header.Set("cookie", s.Cookies())
	req.Header.Set("push-id", pushId)
	req.Header.Set("x-goog-upload-command", "upload, finalize")
	req.Header.Set("x-goog-upload-offset", "0")
	req.Header.Set("x-tenant-id", "bard-storage")
	req.Header.Set("x-client-pctx", "CgcSBWjK7pYx")
	resp, err = gClient.Do(req)
	if err != nil {
		fhblade.Log.Error("gemini web upload data err", zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, ErrUploadAuth
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("图片上传失败,状态" + strconv.Itoa(resp.StatusCode))
	}
	body, err := tools.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	path := extractContribPath(body)
	if path == "" || len(path) < 40 {
		fhblade.Log.Warn("gemini web upload bad path", zap.ByteString("data", body))
		return nil, ErrUploadAuth
	}
	return &UploadedImage{Path: path, MimeType: img.MimeType, Filename: filename}, nil
}

// 响应可能是任意嵌套的json,递归找/contrib_service/路径,非json退化成正则
func extractContribPath(body []byte) string {
	var data interface{}
	if err := fhblade.Json.Unmarshal(body, &data); err == nil {
		if path := findContribPath(data); path != "" {
			return path
		}
	}
	return contribPathPattern.FindString(tools.BytesToString(body))
}

func findContribPath(data interface{}) string {
	switch v := data.(type) {
	case string:
		if len(v) > len("/contrib_service/") && v[:len("/contrib_service/")] == "/contrib_service/" {
			return v
		}
	case []interface{}:
		for k := range v {
			if path := findContribPath(v[k]); path != "" {
				return path
			}
		}
	case map[string]interface{}:
		for key := range v {
			if path := findContribPath(v[key]); path != "" {
				return path
			}
		}
	}
	return ""
}
