package store

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"os"
	"strings"
	"sync"

	"github.com/zatxm/fhblade"
)

// 会话状态,记录gemini网页会话三元组和历史消息
type State struct {
	Cid       string    `json:"conversation_id"`
	Rid       string    `json:"response_id"`
	Rcid      string    `json:"choice_id"`
	Model     string    `json:"model"`
	UserHash  string    `json:"user_hash"`
	Messages  []Message `json:"messages"`
	UpdatedAt int64     `json:"updated_at"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *State) HasConversation() bool {
	return s != nil && s.Cid != ""
}

// 保留最近的消息,成对裁剪避免拆散问答
func (s *State) TrimHistory(max int) {
	if max <= 0 || len(s.Messages) <= max {
		return
	}
	drop := len(s.Messages) - max
	if drop%2 != 0 {
		drop++
	}
	if drop >= len(s.Messages) {
		s.Messages = nil
		return
	}
	s.Messages = s.Messages[drop:]
}

// 用户消息md5,用于判断请求是否same会话的延续
func UserMessagesHash(texts []string) string {
	h := md5.New()
	h.Write([]byte(strings.Join(texts, "\n")))
	return hex.EncodeToString(h.Sum(nil))
}

type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error
	Reset(ctx context.Context) error
}

type fileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) Store {
	return &fileStore{path: path}
}

func (f *fileStore) Load(ctx context.Context) (*State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, err
	}
	s := &State{}
	if err := fhblade.Json.Unmarshal(data, s); err != nil {
		// 文件损坏时丢弃重新开始
		return &State{}, nil
	}
	return s, nil
}

func (f *fileStore) Save(ctx context.Context, s *State) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := fhblade.Json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(f.path, data, 0644)
}

func (f *fileStore) Reset(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	err := os.Remove(f.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
