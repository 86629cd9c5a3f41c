package bard

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/client"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/config"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/vars"
	"github.com/Deng1Qsx2Wdc/geminixiang/pkg/support"
	"github.com/PuerkitoBio/goquery"
	http "github.com/bogdanfinn/fhttp"
	"github.com/samber/lo"
	"github.com/zatxm/fhblade"
	"github.com/zatxm/fhblade/tools"
	tlsClient "github.com/zatxm/tls-client"
	"go.uber.org/zap"
)

const (
	Provider = "gemini-web"

	baseURL            = "https://gemini.google.com"
	streamGeneratePath = "/_/BardChatUi/data/assistant.lamda.BardFrontendService/StreamGenerate"

	// 页面抓不到时的兜底值
	defaultBl     = "boq_assistant-bard-web-server_20241209.00_p0"
	defaultPushId = "feeds/mcudyrk2a4khkz"
)

var (
	ErrCookieRequired = errors.New("cookies里必须含__Secure-1PSID")
	ErrTokenFetch     = errors.New("页面抓取SNlM0e失败,cookie可能已过期")

	DefaultModels = []string{"gemini-3.0-flash", "gemini-3.0-flash-thinking", "gemini-3.0-pro"}

	snlm0ePatterns = []*regexp.Regexp{
		regexp.MustCompile(`"SNlM0e":"([^"]+)"`),
		regexp.MustCompile(`SNlM0e["\s:]+["']([^"']+)["']`),
		regexp.MustCompile(`"at":"([^"]+)"`),
	}
	blPattern      = regexp.MustCompile(`"cfb2h":"([^"]+)"`)
	pushIdPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)"push[_-]?id["\s:]+["'](feeds/[a-z0-9]+)["']`),
		regexp.MustCompile(`(?i)feedName["\s:]+["'](feeds/[a-z0-9]+)["']`),
		regexp.MustCompile(`(?i)clientId["\s:]+["'](feeds/[a-z0-9]+)["']`),
		regexp.MustCompile(`(feeds/[a-z0-9]{14,})`),
	}
	modelPattern = regexp.MustCompile(`(?i)["'](gemini-[a-z0-9.\-]+)["']`)
)

// 去掉粘贴时常带的cookie:之类前缀
func CleanCookies(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, prefix := range []string{"【cookie】", "[cookie]", "cookie:", "cookie"} {
		if strings.HasPrefix(lower, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			s = strings.TrimSpace(strings.TrimPrefix(s, ":"))
			break
		}
	}
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", "")
	return s
}

// gemini网页会话凭据,过期自动从页面重新抓取
type Session struct {
	mu        sync.Mutex
	cookies   string
	snlm0e    string
	bl        string
	pushId    string
	models    []string
	manual    bool // snlm0e来自配置,不做周期刷新
	fetchedAt time.Time
	ttl       time.Duration
	reqCount  int64
}

func NewSession(cfg *config.Config) (*Session, error) {
	g := cfg.Gemini
	cookies := CleanCookies(g.Cookies)
	if !strings.Contains(cookies, "__Secure-1PSID=") {
		return nil, ErrCookieRequired
	}
	s := &Session{
		cookies: cookies,
		snlm0e:  g.Snlm0e,
		bl:      g.Bl,
		pushId:  g.PushId,
		models:  g.Models,
		manual:  g.Snlm0e != "",
		ttl:     time.Duration(g.TokenTTLMinutes) * time.Minute,
	}
	if s.bl == "" {
		s.bl = defaultBl
	}
	if s.pushId == "" {
		s.pushId = defaultPushId
	}
	if len(s.models) == 0 {
		s.models = DefaultModels
	}
	return s, nil
}

func (s *Session) Cookies() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cookies
}

func (s *Session) PushId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pushId
}

func (s *Session) Models() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.models))
	copy(out, s.models)
	return out
}

func (s *Session) HasModel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo.Contains(s.models, name)
}

// 上游回了网页而不是数据时作废token,下次强制重新抓取
func (s *Session) Invalidate() {
	s.mu.Lock()
	s.snlm0e = ""
	s.manual = false
	s.mu.Unlock()
}

// 当前token快照,不触发刷新,后台展示用
func (s *Session) TokenInfo() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snlm0e, s.bl
}

// 返回当前可用的snlm0e和bl,必要时刷新
func (s *Session) Tokens() (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.staleLocked() {
		return s.snlm0e, s.bl, nil
	}
	if err := s.refreshLocked(); err != nil {
		return "", "", err
	}
	return s.snlm0e, s.bl, nil
}

// 是否需要重新抓取:无token,或抓取来的token超过ttl。
// 手动配置的token不按时间过期,只能被Invalidate作废
func (s *Session) staleLocked() bool {
	if s.snlm0e == "" {
		return true
	}
	if s.manual {
		return false
	}
	return time.Since(s.fetchedAt) >= s.ttl
}

// 替换cookie并立即抓取一次,用于后台保存配置
func (s *Session) UpdateCookies(cookies string) error {
	cookies = CleanCookies(cookies)
	if !strings.Contains(cookies, "__Secure-1PSID=") {
		return ErrCookieRequired
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = cookies
	s.manual = false
	s.snlm0e = ""
	return s.refreshLocked()
}

func (s *Session) refreshLocked() error {
	req, err := http.NewRequest(http.MethodGet, baseURL+"/app", nil)
	if err != nil {
		return err
	}
	req.Header = http.Header{
		"accept":          {vars.AcceptHtml},
		"accept-language": {vars.AcceptLanguage},
		"cookie":          {s.cookies},
		"user-agent":      {vars.UserAgent},
	}
	gClient := client.CPool.Get().(tlsClient.HttpClient)
	proxyUrl := config.GeminiProxyUrl()
	if proxyUrl != "" {
		gClient.SetProxy(proxyUrl)
	}
	resp, err := gClient.Do(req)
	client.CPool.Put(gClient)
	if err != nil {
		fhblade.Log.Error("gemini web fetch page err", zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fhblade.Log.Warn("gemini web fetch page status", zap.Int("code", resp.StatusCode))
		return ErrTokenFetch
	}
	body, err := tools.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	html := tools.BytesToString(body)

	// token都埋在脚本里,先只扫script缩小范围,扫不到再全文兜底
	scripts := html
	if doc, derr := goquery.NewDocumentFromReader(strings.NewReader(html)); derr == nil {
		var b strings.Builder
		doc.Find("script").Each(func(i int, sel *goquery.Selection) {
			b.WriteString(sel.Text())
			b.WriteString("\n")
		})
		if b.Len() > 0 {
			scripts = b.String()
		}
	}

	snlm0e := scanFirst(snlm0ePatterns, scripts)
	if snlm0e == "" {
		snlm0e = scanFirst(snlm0ePatterns, html)
	}
	if snlm0e == "" {
		return ErrTokenFetch
	}
	s.snlm0e = snlm0e
	s.fetchedAt = time.Now()

	if m := blPattern.FindStringSubmatch(scripts); m != nil {
		s.bl = m[1]
	}
	if pushId := scanFirst(pushIdPatterns, scripts); pushId != "" {
		s.pushId = pushId
	}
	if models := scanModels(scripts); len(models) > 0 {
		s.models = models
	}
	fhblade.Log.Info("gemini web tokens refreshed",
		zap.String("bl", s.bl),
		zap.Int("models", len(s.models)))
	return nil
}

func scanFirst(patterns []*regexp.Regexp, text string) string {
	for k := range patterns {
		if m := patterns[k].FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

func scanModels(text string) []string {
	matches := modelPattern.FindAllStringSubmatch(text, -1)
	var found []string
	for k := range matches {
		found = append(found, strings.ToLower(matches[k][1]))
	}
	found = lo.Filter(lo.Uniq(found), func(m string, _ int) bool {
		return strings.Contains(m, "flash") || strings.Contains(m, "pro") ||
			strings.Contains(m, "ultra") || strings.Contains(m, "nano")
	})
	sort.Strings(found)
	return found
}

// StreamGenerate的_reqid,随机基数加计数跳变
func (s *Session) nextReqId() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reqCount++
	return strconv.FormatInt(s.reqCount*100000+int64(support.RandIntn(10000, 99999)), 10)
}
