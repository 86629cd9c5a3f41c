package tokenizer

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"github.com/zatxm/fhblade"
	"go.uber.org/zap"
)

const defaultEncoding = "cl100k_base"

var (
	encoderOnce sync.Once
	encoder     *tiktoken.Tiktoken
)

// 统计文本token数，编码器加载失败时按字符数估算
func CountTokenText(text string) int {
	encoderOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(defaultEncoding)
		if err != nil {
			fhblade.Log.Warn("tokenizer load fail", zap.Error(err))
			return
		}
		encoder = enc
	})
	if encoder == nil {
		return len([]rune(text))
	}
	return len(encoder.Encode(text, nil, nil))
}

func CountTokenMessages(texts []string) int {
	n := 0
	for k := range texts {
		n += CountTokenText(texts[k])
	}
	return n
}
