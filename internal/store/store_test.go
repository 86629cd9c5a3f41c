package store

import (
	"context"
	"path/filepath"
	"testing"
)

func TestTrimHistoryKeepsPairs(t *testing.T) {
	s := &State{}
	for i := 0; i < 8; i++ {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		s.Messages = append(s.Messages, Message{Role: role, Content: "m"})
	}
	s.TrimHistory(4)
	if len(s.Messages) != 4 {
		t.Fatalf("len = %d, want 4", len(s.Messages))
	}
	s2 := &State{Messages: append([]Message{}, s.Messages...)}
	s2.TrimHistory(3)
	// 上限为奇数时多裁一条,保证成对
	if len(s2.Messages) != 2 || s2.Messages[0].Role != "user" {
		t.Errorf("odd cap trim = %+v", s2.Messages)
	}
	// 裁剪后开头必须是user,问答不拆散
	if s.Messages[0].Role != "user" {
		t.Errorf("first role = %q", s.Messages[0].Role)
	}
}

func TestTrimHistoryNoop(t *testing.T) {
	s := &State{Messages: []Message{{Role: "user", Content: "a"}}}
	s.TrimHistory(100)
	if len(s.Messages) != 1 {
		t.Errorf("len = %d", len(s.Messages))
	}
	s.TrimHistory(0)
	if len(s.Messages) != 1 {
		t.Errorf("max 0 should disable trim, len = %d", len(s.Messages))
	}
}

func TestUserMessagesHash(t *testing.T) {
	h1 := UserMessagesHash([]string{"你好", "再问一个"})
	h2 := UserMessagesHash([]string{"你好", "再问一个"})
	h3 := UserMessagesHash([]string{"你好"})
	if h1 != h2 {
		t.Error("same input should hash equal")
	}
	if h1 == h3 {
		t.Error("different input should hash different")
	}
	if len(h1) != 32 {
		t.Errorf("hash len = %d", len(h1))
	}
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state.json")
	fs := NewFileStore(path)

	// 文件不存在时返回空状态
	s, err := fs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.HasConversation() {
		t.Error("fresh state should have no conversation")
	}

	s.Cid = "c_1"
	s.Rid = "r_1"
	s.Rcid = "rc_1"
	s.UserHash = "deadbeef"
	s.Messages = []Message{{Role: "user", Content: "hi"}}
	if err := fs.Save(ctx, s); err != nil {
		t.Fatal(err)
	}

	loaded, err := fs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Cid != "c_1" || loaded.Rcid != "rc_1" || len(loaded.Messages) != 1 {
		t.Errorf("loaded = %+v", loaded)
	}
	if !loaded.HasConversation() {
		t.Error("loaded state should have conversation")
	}

	if err := fs.Reset(ctx); err != nil {
		t.Fatal(err)
	}
	s, err = fs.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.HasConversation() {
		t.Error("state should be empty after reset")
	}
	// 重复reset不报错
	if err := fs.Reset(ctx); err != nil {
		t.Fatal(err)
	}
}
