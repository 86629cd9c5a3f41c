package bard

import (
	"fmt"
	"strings"
	"time"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/config"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/types"
	"github.com/Deng1Qsx2Wdc/geminixiang/internal/vars"
	"github.com/Deng1Qsx2Wdc/geminixiang/pkg/tokenizer"
	http "github.com/bogdanfinn/fhttp"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/zatxm/fhblade"
)

const fakeStreamChunkSize = 10

type Api struct {
	engine        *Engine
	streamingMode string
}

func NewApi(engine *Engine) *Api {
	return &Api{
		engine:        engine,
		streamingMode: config.V().Gemini.StreamingMode,
	}
}

func (a *Api) Engine() *Engine {
	return a.engine
}

func jsonError(c *fhblade.Context, status int, msg, errType, code string) error {
	return c.JSONAndStatus(status, types.ErrorResponse{
		Error: &types.CError{
			Message: msg,
			Type:    errType,
			Code:    code,
		},
	})
}

// GET /v1/models
func (a *Api) ListModels() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		created := time.Now().Unix()
		models := lo.Map(a.engine.Session().Models(), func(m string, _ int) *types.Model {
			return &types.Model{
				ID:      m,
				Object:  "model",
				Created: created,
				OwnedBy: "google",
			}
		})
		return c.JSONAndStatus(http.StatusOK, &types.ModelList{
			Object: "list",
			Data:   models,
		})
	}
}

// POST /v1/chat/completions
func (a *Api) ChatCompletions() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		var p types.ChatCompletionRequest
		if err := c.ShouldBindJSON(&p); err != nil {
			return jsonError(c, http.StatusBadRequest, "params error", "invalid_request_error", "request_err")
		}
		in := parseMessages(p.Messages)
		in.URLContext = hasURLContextTool(p.Tools)
		if in.Text == "" {
			return jsonError(c, http.StatusBadRequest, "message content empty", "invalid_request_error", "request_err")
		}
		model := p.Model
		if model == "" || !a.engine.Session().HasModel(model) {
			model = a.engine.Session().Models()[0]
		}
		if !p.Stream {
			return a.completions(c, in, model)
		}
		if a.streamingMode == "fake" {
			return a.fakeStreamCompletions(c, in, model)
		}
		return a.streamCompletions(c, in, model)
	}
}

// POST /v1/chat/completions/reset
func (a *Api) ResetConversation() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		if err := a.engine.Reset(c.Request().Req().Context()); err != nil {
			return jsonError(c, http.StatusInternalServerError, err.Error(), "invalid_systems_error", "systems_err")
		}
		return c.JSONAndStatus(http.StatusOK, fhblade.H{
			"success": true,
			"message": "会话已重置",
		})
	}
}

func (a *Api) completions(c *fhblade.Context, in *intake, model string) error {
	answer, err := a.engine.Ask(c.Request().Req().Context(), in, model)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err.Error(), "invalid_request_error", "request_err")
	}
	promptTokens := tokenizer.CountTokenMessages(in.UserTexts)
	completionTokens := tokenizer.CountTokenText(answer)
	return c.JSONAndStatus(http.StatusOK, &types.ChatCompletionResponse{
		ID:      "chatcmpl-" + uuid.NewString(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   model,
		Choices: []*types.Choice{{
			Index: 0,
			Message: &types.ResMessageOrDelta{
				Role:    "assistant",
				Content: answer,
			},
			FinishReason: "stop",
		}},
		Usage: &types.Usage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}

func (a *Api) streamCompletions(c *fhblade.Context, in *intake, model string) error {
	rw := c.Response().Rw()
	flusher, ok := rw.(http.Flusher)
	if !ok {
		return jsonError(c, http.StatusNotImplemented, "Flushing not supported", "invalid_systems_error", "systems_err")
	}
	setStreamHeader(c)
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	writeChunk(rw, id, created, model, &types.ResMessageOrDelta{Role: "assistant"}, nil)
	flusher.Flush()
	_, err := a.engine.AskStream(c.Request().Req().Context(), in, model, func(delta string) error {
		writeChunk(rw, id, created, model, &types.ResMessageOrDelta{Content: delta}, nil)
		flusher.Flush()
		return nil
	})
	if err != nil {
		errJson, _ := fhblade.Json.MarshalToString(types.ErrorResponse{
			Error: &types.CError{
				Message: err.Error(),
				Type:    "invalid_request_error",
				Code:    "request_err",
			},
		})
		fmt.Fprintf(rw, "data: %s\n\n", errJson)
		flusher.Flush()
		return nil
	}
	writeChunk(rw, id, created, model, &types.ResMessageOrDelta{}, "stop")
	fmt.Fprint(rw, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

// 先拿完整回复,再按固定步长切块模拟流式
func (a *Api) fakeStreamCompletions(c *fhblade.Context, in *intake, model string) error {
	rw := c.Response().Rw()
	flusher, ok := rw.(http.Flusher)
	if !ok {
		return jsonError(c, http.StatusNotImplemented, "Flushing not supported", "invalid_systems_error", "systems_err")
	}
	answer, err := a.engine.Ask(c.Request().Req().Context(), in, model)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err.Error(), "invalid_request_error", "request_err")
	}
	setStreamHeader(c)
	id := "chatcmpl-" + uuid.NewString()
	created := time.Now().Unix()
	writeChunk(rw, id, created, model, &types.ResMessageOrDelta{Role: "assistant"}, nil)
	flusher.Flush()
	runes := []rune(answer)
	for i := 0; i < len(runes); i += fakeStreamChunkSize {
		end := i + fakeStreamChunkSize
		if end > len(runes) {
			end = len(runes)
		}
		writeChunk(rw, id, created, model, &types.ResMessageOrDelta{Content: string(runes[i:end])}, nil)
		flusher.Flush()
	}
	writeChunk(rw, id, created, model, &types.ResMessageOrDelta{}, "stop")
	fmt.Fprint(rw, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

func setStreamHeader(c *fhblade.Context) {
	rw := c.Response().Rw()
	header := rw.Header()
	header.Set("Content-Type", vars.ContentTypeStream)
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("Access-Control-Allow-Origin", "*")
	rw.WriteHeader(http.StatusOK)
}

func writeChunk(rw http.ResponseWriter, id string, created int64, model string, delta *types.ResMessageOrDelta, finishReason interface{}) {
	chunk := &types.ChatCompletionResponse{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []*types.Choice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finishReason,
		}},
	}
	data, _ := fhblade.Json.MarshalToString(chunk)
	fmt.Fprintf(rw, "data: %s\n\n", data)
}

// gemini-3.0-flash => Gemini 3.0 Flash
func displayName(model string) string {
	parts := strings.Split(model, "-")
	for k := range parts {
		if parts[k] != "" && parts[k][0] >= 'a' && parts[k][0] <= 'z' {
			parts[k] = string(parts[k][0]-32) + parts[k][1:]
		}
	}
	return strings.Join(parts, " ")
}

// GET /v1beta/models
func (a *Api) GeminiListModels() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		models := lo.Map(a.engine.Session().Models(), func(m string, _ int) *types.GeminiModel {
			return &types.GeminiModel{
				Name:             "models/" + m,
				DisplayName:      displayName(m),
				InputTokenLimit:  1048576,
				OutputTokenLimit: 65536,
			}
		})
		return c.JSONAndStatus(http.StatusOK, &types.GeminiModelList{Models: models})
	}
}

// POST /v1beta/models/{model}:generateContent
// POST /v1beta/models/{model}:streamGenerateContent
func (a *Api) GeminiGenerateContent() func(*fhblade.Context) error {
	return func(c *fhblade.Context) error {
		action := c.Get("action")
		model, op, ok := strings.Cut(action, ":")
		if !ok {
			return jsonError(c, http.StatusNotFound, "unknown action", "invalid_request_error", "request_err")
		}
		model = strings.TrimPrefix(model, "models/")
		var p types.GenerateContentRequest
		if err := c.ShouldBindJSON(&p); err != nil {
			return jsonError(c, http.StatusBadRequest, "params error", "invalid_request_error", "request_err")
		}
		in := parseGeminiContents(&p)
		in.URLContext = hasURLContextTool(p.Tools)
		if in.Text == "" {
			return jsonError(c, http.StatusBadRequest, "contents empty", "invalid_request_error", "request_err")
		}
		stream := op == "streamGenerateContent" ||
			c.Request().Req().URL.Query().Get("alt") == "sse"
		if stream {
			return a.geminiStream(c, in, model)
		}
		return a.geminiGenerate(c, in, model)
	}
}

// gemini原生contents转统一intake格式,model角色视为assistant回复
func parseGeminiContents(p *types.GenerateContentRequest) *intake {
	in := &intake{}
	for k := range p.Contents {
		content := p.Contents[k]
		if content.Role == "model" {
			in.HasAssistant = true
			continue
		}
		var textParts []string
		var images []*imageSource
		for j := range content.Parts {
			part := content.Parts[j]
			if part.Text != "" {
				textParts = append(textParts, part.Text)
			}
			if part.InlineData != nil {
				if img := resolveImage("data:" + part.InlineData.MimeType + ";base64," + part.InlineData.Data); img != nil {
					images = append(images, img)
				}
			}
		}
		text := strings.Join(textParts, " ")
		in.Text = text
		in.Images = images
		in.UserTexts = append(in.UserTexts, text)
	}
	return in
}

func (a *Api) geminiGenerate(c *fhblade.Context, in *intake, model string) error {
	answer, err := a.engine.Ask(c.Request().Req().Context(), in, model)
	if err != nil {
		return jsonError(c, http.StatusInternalServerError, err.Error(), "invalid_request_error", "request_err")
	}
	promptTokens := tokenizer.CountTokenMessages(in.UserTexts)
	completionTokens := tokenizer.CountTokenText(answer)
	return c.JSONAndStatus(http.StatusOK, &types.GenerateContentResponse{
		Candidates: []*types.GeminiCandidate{{
			Content: &types.GeminiContent{
				Parts: []*types.GeminiPart{{Text: answer}},
				Role:  "model",
			},
			FinishReason: "STOP",
		}},
		UsageMetadata: &types.GeminiUsage{
			PromptTokenCount:     promptTokens,
			CandidatesTokenCount: completionTokens,
			TotalTokenCount:      promptTokens + completionTokens,
		},
	})
}

func (a *Api) geminiStream(c *fhblade.Context, in *intake, model string) error {
	rw := c.Response().Rw()
	flusher, ok := rw.(http.Flusher)
	if !ok {
		return jsonError(c, http.StatusNotImplemented, "Flushing not supported", "invalid_systems_error", "systems_err")
	}
	setStreamHeader(c)
	writeGeminiChunk(rw, &types.GenerateContentResponse{
		Candidates: []*types.GeminiCandidate{{
			Content: &types.GeminiContent{Parts: []*types.GeminiPart{}},
		}},
	})
	flusher.Flush()
	_, err := a.engine.AskStream(c.Request().Req().Context(), in, model, func(delta string) error {
		writeGeminiChunk(rw, &types.GenerateContentResponse{
			Candidates: []*types.GeminiCandidate{{
				Content: &types.GeminiContent{
					Parts: []*types.GeminiPart{{Text: delta}},
				},
			}},
		})
		flusher.Flush()
		return nil
	})
	if err != nil {
		errJson, _ := fhblade.Json.MarshalToString(fhblade.H{"error": err.Error()})
		fmt.Fprintf(rw, "data: %s\n\n", errJson)
		flusher.Flush()
		return nil
	}
	writeGeminiChunk(rw, &types.GenerateContentResponse{
		Candidates: []*types.GeminiCandidate{{FinishReason: "STOP"}},
	})
	fmt.Fprint(rw, "data: [DONE]\n\n")
	flusher.Flush()
	return nil
}

func writeGeminiChunk(rw http.ResponseWriter, chunk *types.GenerateContentResponse) {
	data, _ := fhblade.Json.MarshalToString(chunk)
	fmt.Fprintf(rw, "data: %s\n\n", data)
}
