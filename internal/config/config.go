package config

import (
	"errors"
	"os"

	"github.com/Deng1Qsx2Wdc/geminixiang/pkg/support"
	"gopkg.in/yaml.v3"
)

var (
	cfg     *Config
	cfgFile string
)

type Config struct {
	Port      string    `yaml:"port"`
	HttpsInfo httpsInfo `yaml:"https_info"`
	ProxyUrl  string    `yaml:"proxy_url"`
	ApiKey    string    `yaml:"api_key"`
	Admin     admin     `yaml:"admin"`
	Gemini    gemini    `yaml:"gemini_web"`
	Redis     redis     `yaml:"redis"`
}

type httpsInfo struct {
	Enable  bool   `yaml:"enable"`
	PemFile string `yaml:"pem_file"`
	KeyFile string `yaml:"key_file"`
}

type admin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type gemini struct {
	// 浏览器复制的完整cookie,必须含__Secure-1PSID
	Cookies string `yaml:"cookies"`
	// 下面三个可手动填,空则启动时自动从页面抓取
	Snlm0e string `yaml:"snlm0e"`
	Bl     string `yaml:"bl"`
	PushId string `yaml:"push_id"`
	// 请求语言,默认zh-CN
	Hl string `yaml:"hl"`
	// 可用模型,空则用页面抓取的
	Models []string `yaml:"models"`
	// 代理,空则用全局proxy_url
	ProxyUrl string `yaml:"proxy_url"`
	// 抓取token有效分钟数,过期重新抓取,默认25
	TokenTTLMinutes int `yaml:"token_ttl_minutes"`
	// real真流式,fake先取完整回复再分块
	StreamingMode string `yaml:"streaming_mode"`
	// 会话状态保存文件
	StateFile string `yaml:"state_file"`
	// 保留的历史消息条数上限
	MaxHistoryMessages int `yaml:"max_history_messages"`
}

type redis struct {
	Enable   bool   `yaml:"enable"`
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

func V() *Config {
	return cfg
}

func ProxyUrl() string {
	return cfg.ProxyUrl
}

func GeminiProxyUrl() string {
	if cfg.Gemini.ProxyUrl != "" {
		return cfg.Gemini.ProxyUrl
	}
	return cfg.ProxyUrl
}

// 后台改完cookie写回配置文件,重启不丢
func Save() error {
	if cfgFile == "" {
		return errors.New("config not loaded from file")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(cfgFile, data, 0644)
}

func Parse(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	cfgFile = filename
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Port == "" {
		return nil, errors.New("config port required")
	}
	if cfg.HttpsInfo.Enable {
		if !support.FileExists(cfg.HttpsInfo.PemFile) || !support.FileExists(cfg.HttpsInfo.KeyFile) {
			return nil, errors.New("https pem/key file not found")
		}
	}
	if cfg.Gemini.Hl == "" {
		cfg.Gemini.Hl = "zh-CN"
	}
	if cfg.Gemini.TokenTTLMinutes <= 0 {
		cfg.Gemini.TokenTTLMinutes = 25
	}
	if cfg.Gemini.StreamingMode == "" {
		cfg.Gemini.StreamingMode = "real"
	}
	if cfg.Gemini.StateFile == "" {
		cfg.Gemini.StateFile = "conversation_state.json"
	}
	if cfg.Gemini.MaxHistoryMessages <= 0 {
		cfg.Gemini.MaxHistoryMessages = 100
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	return cfg, nil
}
