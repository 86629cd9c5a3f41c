package types

type ChatCompletionRequest struct {
	Messages    []*ReqMessage            `json:"messages" binding:"required"`
	Model       string                   `json:"model"`
	MaxTokens   int                      `json:"max_tokens,omitempty"`
	N           int                      `json:"n,omitempty"`
	Stop        interface{}              `json:"stop,omitempty"`
	Stream      bool                     `json:"stream,omitempty"`
	Temperature float64                  `json:"temperature,omitempty"`
	TopP        float64                  `json:"top_p,omitempty"`
	Tools       []map[string]interface{} `json:"tools,omitempty"`
	User        string                   `json:"user,omitempty"`
}

type ReqMessage struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
	Name    string      `json:"name,omitempty"`
}

type ErrorResponse struct {
	Error *CError `json:"error"`
}

type CError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code"`
}

type ChatCompletionResponse struct {
	ID      string    `json:"id"`
	Choices []*Choice `json:"choices"`
	Created int64     `json:"created"`
	Model   string    `json:"model"`
	Object  string    `json:"object"`
	Usage   *Usage    `json:"usage,omitempty"`
}

type Choice struct {
	Index        int                `json:"index"`
	Message      *ResMessageOrDelta `json:"message,omitempty"`
	Delta        *ResMessageOrDelta `json:"delta,omitempty"`
	FinishReason interface{}        `json:"finish_reason"`
}

type ResMessageOrDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ModelList struct {
	Object string   `json:"object"`
	Data   []*Model `json:"data"`
}

type Model struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	Created int64  `json:"created"`
	OwnedBy string `json:"owned_by"`
}
