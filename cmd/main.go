package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/admin"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/bard"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/config"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/store"
	http "github.com/bogdanfinn/fhttp"
	"github.com/zatxm/fhblade"
)

func main() {
	// parse config
	var configFile string
	flag.StringVar(&configFile, "c", "", "where is config filepath")
	flag.Parse()
	if configFile == "" {
		fmt.Println("You must set config file use -c")
		return
	}
	cfg, err := config.Parse(configFile)
	if err != nil {
		fmt.Println(err)
		return
	}

	var st store.Store
	if cfg.Redis.Enable {
		st, err = store.NewRedisStore(cfg)
		if err != nil {
			fmt.Println(err)
			return
		}
	} else {
		st = store.NewFileStore(cfg.Gemini.StateFile)
	}
	engine, err := bard.NewEngine(cfg, st)
	if err != nil {
		fmt.Println(err)
		return
	}
	api := bard.NewApi(engine)
	manage := admin.New(engine)

	app := fhblade.New()

	// ping
	app.Get("/ping", func(c *fhblade.Context) error {
		return c.JSONAndStatus(http.StatusOK, fhblade.H{"ping": "ok"})
	})

	// 配置后台,走自己的cookie会话
	app.Get("/", func(c *fhblade.Context) error {
		c.Response().SetHeader("Location", "/admin")
		c.Response().Rw().WriteHeader(http.StatusFound)
		return nil
	})
	app.Get("/admin", manage.Page())
	app.Get("/admin/login", manage.LoginPage())
	app.Post("/admin/login", manage.Login())
	app.Get("/admin/logout", manage.Logout())
	app.Post("/admin/save", manage.Save())
	app.Get("/admin/config", manage.Config())
	app.Get("/admin/server-info", manage.ServerInfo())

	// middleware - check api key,只保护下面注册的接口
	app.Use(func(next fhblade.Handler) fhblade.Handler {
		return func(c *fhblade.Context) error {
			c.Response().SetHeader("Access-Control-Allow-Origin", "*")
			c.Response().SetHeader("Access-Control-Allow-Headers", "*")
			c.Response().SetHeader("Access-Control-Allow-Methods", "*")
			apiKey := config.V().ApiKey
			if apiKey != "" {
				authorization := c.Request().Header("Authorization")
				if strings.TrimPrefix(authorization, "Bearer ") != apiKey {
					return c.JSONAndStatus(http.StatusUnauthorized, fhblade.H{"errorMessage": "please provide a valid api key in 'Authorization' header"})
				}
			}
			return next(c)
		}
	})

	// openai兼容接口
	app.Get("/v1/models", api.ListModels())
	app.Post("/v1/chat/completions", api.ChatCompletions())
	app.Post("/v1/chat/completions/reset", api.ResetConversation())

	// gemini原生接口
	app.Get("/v1beta/models", api.GeminiListModels())
	app.Post("/v1beta/models/:action", api.GeminiGenerateContent())

	// run
	var runErr error
	if cfg.HttpsInfo.Enable {
		runErr = app.RunTLS(cfg.Port, cfg.HttpsInfo.PemFile, cfg.HttpsInfo.KeyFile)
	} else {
		runErr = app.Run(cfg.Port)
	}
	if runErr != nil {
		fmt.Println(runErr)
	}
}
