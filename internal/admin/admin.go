package admin

import (
	"net"
	"sync"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/bard"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/config"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/vars"
	"github.com/Deng1Qsx2Wdc/geminixiang/pkg/support"
	http "github.com/bogdanfinn/fhttp"
	"github.com/zatxm/fhblade"
	"go.uber.org/zap"
)

const sessionCookieName = "admin_session"

type loginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type saveParams struct {
	Cookies string `json:"cookies"`
}

// 配置后台,登录后可在线换cookie并触发重新抓取token
type Admin struct {
	engine   *bard.Engine
	mu       sync.Mutex
	sessions map[string]struct{}
}

func New(engine *bard.Engine) *Admin {
	return &Admin{
		engine:   engine,
		sessions: map[string]struct{}{},
	}
}

func (a *Admin) verify(c *fhblade.Context) bool {
	cookie, err := c.Request().Req().Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.sessions[cookie.Value]
	return ok
}

func html(c *fhblade.Context, body string) error {
	rw := c.Response().Rw()
	rw.Header().Set("Content-Type", vars.ContentTypeHtml)
	rw.WriteHeader(http.StatusOK)
	rw.Write([]byte(body))
	return nil
}

func redirect(c *fhblade.Context, location string) error {
	rw := c.Response().Rw()
	rw.Header().Set("Location", location)
	rw.WriteHeader(http.StatusFound)
	return nil
}

// GET /admin/login
func (a *Admin) LoginPage() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		return html(c, loginHtml)
	}
}

// POST /admin/login
func (a *Admin) Login() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		var p loginParams
		if err := c.ShouldBindJSON(&p); err != nil {
			return c.JSONAndStatus(http.StatusBadRequest, fhblade.H{
				"success": false,
				"message": "参数错误",
			})
		}
		cfg := config.V()
		if p.Username != cfg.Admin.Username || p.Password != cfg.Admin.Password {
			return c.JSONAndStatus(http.StatusOK, fhblade.H{
				"success": false,
				"message": "用户名或密码错误",
			})
		}
		token := support.RandHex(32)
		a.mu.Lock()
		a.sessions[token] = struct{}{}
		a.mu.Unlock()
		http.SetCookie(c.Response().Rw(), &http.Cookie{
			Name:     sessionCookieName,
			Value:    token,
			Path:     "/",
			MaxAge:   86400,
			HttpOnly: true,
		})
		return c.JSONAndStatus(http.StatusOK, fhblade.H{
			"success": true,
			"message": "登录成功",
		})
	}
}

// GET /admin/logout
func (a *Admin) Logout() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		if cookie, err := c.Request().Req().Cookie(sessionCookieName); err == nil {
			a.mu.Lock()
			delete(a.sessions, cookie.Value)
			a.mu.Unlock()
		}
		http.SetCookie(c.Response().Rw(), &http.Cookie{
			Name:   sessionCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		return redirect(c, "/admin/login")
	}
}

// GET /admin
func (a *Admin) Page() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		if !a.verify(c) {
			return redirect(c, "/admin/login")
		}
		return html(c, adminHtml)
	}
}

// POST /admin/save 保存cookie并立即抓取新token
func (a *Admin) Save() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		if !a.verify(c) {
			return c.JSONAndStatus(http.StatusUnauthorized, fhblade.H{
				"success": false,
				"message": "未登录",
			})
		}
		var p saveParams
		if err := c.ShouldBindJSON(&p); err != nil || p.Cookies == "" {
			return c.JSONAndStatus(http.StatusOK, fhblade.H{
				"success": false,
				"message": "Cookie是必填项",
			})
		}
		if err := a.engine.Session().UpdateCookies(p.Cookies); err != nil {
			return c.JSONAndStatus(http.StatusOK, fhblade.H{
				"success": false,
				"message": err.Error(),
			})
		}
		session := a.engine.Session()
		config.V().Gemini.Cookies = session.Cookies()
		if err := config.Save(); err != nil {
			fhblade.Log.Warn("config save err", zap.Error(err))
		}
		msg := "配置已保存并验证成功"
		if session.PushId() == "" {
			msg += ",push_id未抓到,图片功能不可用"
		}
		return c.JSONAndStatus(http.StatusOK, fhblade.H{
			"success": true,
			"message": msg,
			"models":  session.Models(),
		})
	}
}

// GET /admin/config 当前生效的配置概况,token只露头尾
func (a *Admin) Config() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		if !a.verify(c) {
			return c.JSONAndStatus(http.StatusUnauthorized, fhblade.H{
				"success": false,
				"message": "未登录",
			})
		}
		session := a.engine.Session()
		snlm0e, bl := session.TokenInfo()
		cfg := config.V()
		return c.JSONAndStatus(http.StatusOK, fhblade.H{
			"snlm0e":         mask(snlm0e),
			"bl":             bl,
			"push_id":        session.PushId(),
			"models":         session.Models(),
			"hl":             cfg.Gemini.Hl,
			"streaming_mode": cfg.Gemini.StreamingMode,
			"has_cookie":     session.Cookies() != "",
		})
	}
}

// GET /admin/server-info
func (a *Admin) ServerInfo() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		if !a.verify(c) {
			return c.JSONAndStatus(http.StatusUnauthorized, fhblade.H{
				"success": false,
				"message": "未登录",
			})
		}
		return c.JSONAndStatus(http.StatusOK, fhblade.H{
			"server_ip": localIP(),
			"port":      config.V().Port,
		})
	}
}

func mask(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:6] + "..." + s[len(s)-6:]
}

func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "127.0.0.1"
	}
	return addr.IP.String()
}
