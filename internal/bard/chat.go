package bard

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net/url"
	"strings"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/client"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/config"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/store"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/vars"
	"github.com/Deng1Qsx2Wdc/geminixiang/pkg/support"
	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"github.com/zatxm/fhblade"
	tlsClient "github.com/zatxm/tls-client"
	"go.uber.org/zap"
)

var ErrEmptyAnswer = errors.New("gemini无有效回复")

// 串起凭据、会话状态和StreamGenerate请求
type Engine struct {
	session    *Session
	store      store.Store
	hl         string
	maxHistory int
}

func NewEngine(cfg *config.Config, st store.Store) (*Engine, error) {
	session, err := NewSession(cfg)
	if err != nil {
		return nil, err
	}
	return &Engine{
		session:    session,
		store:      st,
		hl:         cfg.Gemini.Hl,
		maxHistory: cfg.Gemini.MaxHistoryMessages,
	}, nil
}

func (e *Engine) Session() *Session {
	return e.session
}

// 取会话状态,非延续对话时清掉旧上下文
func (e *Engine) prepareState(ctx context.Context, in *intake) (*store.State, error) {
	state, err := e.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !state.HasConversation() && len(state.Messages) == 0 && !isContinuation(in, state) {
		state = &store.State{}
	}
	return state, nil
}

// 判断请求是否延续上次会话:带assistant回复或多条user消息即是,
// 单条user消息时对比上次的消息hash
func isContinuation(in *intake, state *store.State) bool {
	if state.UserHash == "" {
		return false
	}
	if in.HasAssistant || len(in.UserTexts) > 1 {
		return true
	}
	return store.UserMessagesHash(in.UserTexts[:0]) == state.UserHash
}

func (e *Engine) commitState(ctx context.Context, state *store.State, in *intake, frame *chatFrame, model string) {
	if frame.Cid != "" {
		state.Cid = frame.Cid
	}
	if frame.Rid != "" {
		state.Rid = frame.Rid
	}
	if frame.Rcid != "" {
		state.Rcid = frame.Rcid
	}
	state.Model = model
	state.UserHash = store.UserMessagesHash(in.UserTexts)
	state.Messages = append(state.Messages,
		store.Message{Role: "user", Content: in.Text},
		store.Message{Role: "assistant", Content: frame.Text})
	state.TrimHistory(e.maxHistory)
	state.UpdatedAt = support.TimeStamp()
	if err := e.store.Save(ctx, state); err != nil {
		fhblade.Log.Warn("conversation state save err", zap.Error(err))
	}
}

func (e *Engine) Reset(ctx context.Context) error {
	return e.store.Reset(ctx)
}

func looksHTML(s string) bool {
	return strings.HasPrefix(strings.TrimSpace(s), "<")
}

// 解析不出内容时区分凭据失效和单纯的空回复:
// 上游回登录页之类的html说明cookie/token已失效,作废待重抓
func (e *Engine) emptyAnswerErr(htmlBody bool) error {
	if htmlBody {
		e.session.Invalidate()
		return ErrTokenFetch
	}
	return ErrEmptyAnswer
}

// 发起StreamGenerate,返回响应体由调用方读取
func (e *Engine) send(in *intake, state *store.State) (*http.Response, error) {
	snlm0e, bl, err := e.session.Tokens()
	if err != nil {
		return nil, err
	}

	var uploaded []*UploadedImage
	for k := range in.Images {
		img, err := e.session.uploadImage(in.Images[k])
		if err != nil {
			return nil, err
		}
		uploaded = append(uploaded, img)
	}

	if in.URLContext {
		// 网页端对url上下文没有独立开关,标记仅用于排查
		fhblade.Log.Debug("url context tool requested")
	}
	tsSec, tsNano := support.TimeStampNano()
	fReq, err := buildFReq(in.Text, e.hl, snlm0e, strings.ToUpper(uuid.NewString()),
		state.Cid, state.Rid, state.Rcid, uploaded, tsSec, tsNano)
	if err != nil {
		return nil, err
	}

	query := url.Values{
		"bl":     {bl},
		"f.sid":  {""},
		"hl":     {e.hl},
		"_reqid": {e.session.nextReqId()},
		"rt":     {"c"},
	}
	form := url.Values{
		"f.req": {fReq},
		"at":    {snlm0e},
	}
	req, err := http.NewRequest(http.MethodPost,
		baseURL+streamGeneratePath+"?"+query.Encode(),
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header = http.Header{
		"accept":          {vars.AcceptAll},
		"accept-language": {vars.AcceptLanguage},
		"content-type":    {vars.ContentTypeForm},
		"cookie":          {e.session.Cookies()},
		"origin":          {baseURL},
		"referer":         {baseURL + "/"},
		"user-agent":      {vars.UserAgent},
		"x-forwarded-for": {support.RandomIP()},
		"x-same-domain":   {"1"},
	}
	gClient := client.CPool.Get().(tlsClient.HttpClient)
	proxyUrl := config.GeminiProxyUrl()
	if proxyUrl != "" {
		gClient.SetProxy(proxyUrl)
	}
	resp, err := gClient.Do(req)
	client.CPool.Put(gClient)
	if err != nil {
		fhblade.Log.Error("gemini web stream generate err", zap.Error(err))
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		fhblade.Log.Warn("gemini web stream generate status", zap.Int("code", resp.StatusCode))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, ErrTokenFetch
		}
		return nil, errors.New("gemini请求失败")
	}
	return resp, nil
}

// 整包问答,返回完整回复文本
func (e *Engine) Ask(ctx context.Context, in *intake, model string) (string, error) {
	state, err := e.prepareState(ctx, in)
	if err != nil {
		return "", err
	}
	resp, err := e.send(in, state)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	frame := parseFullResponse(string(body))
	if frame == nil || frame.Text == "" {
		return "", e.emptyAnswerErr(looksHTML(string(body)))
	}
	frame.Text = strings.TrimSpace(frame.Text)
	e.commitState(ctx, state, in, frame, model)
	return frame.Text, nil
}

// 流式问答,响应文本是累积的,按长度差算增量回调
func (e *Engine) AskStream(ctx context.Context, in *intake, model string, fn func(delta string) error) (string, error) {
	state, err := e.prepareState(ctx, in)
	if err != nil {
		return "", err
	}
	resp, err := e.send(in, state)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	final := &chatFrame{}
	lastText := ""
	htmlBody := false
	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err != io.EOF {
				fhblade.Log.Error("gemini web stream read err", zap.Error(err))
			}
			break
		}
		line = strings.TrimSpace(line)
		if skipLine(line) {
			continue
		}
		if looksHTML(line) {
			htmlBody = true
			continue
		}
		frame := parseEnvelopeLine(line)
		if frame == nil {
			continue
		}
		mergeFrame(final, frame)
		if len(frame.Text) > len(lastText) {
			delta := frame.Text[len(lastText):]
			lastText = frame.Text
			if err := fn(delta); err != nil {
				return lastText, err
			}
		}
	}
	if final.Text == "" {
		return "", e.emptyAnswerErr(htmlBody)
	}
	e.commitState(ctx, state, in, final, model)
	return final.Text, nil
}
