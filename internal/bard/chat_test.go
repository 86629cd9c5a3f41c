package bard

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Deng1Qsx2Wdc/geminixiang/internal/store"
)

func TestIsContinuation(t *testing.T) {
	state := &store.State{UserHash: store.UserMessagesHash(nil)}
	cases := []struct {
		name string
		in   *intake
		want bool
	}{
		{"带assistant回复", &intake{HasAssistant: true, UserTexts: []string{"q"}}, true},
		{"多条user消息", &intake{UserTexts: []string{"q1", "q2"}}, true},
		{"单条新消息", &intake{UserTexts: []string{"q"}}, true}, // 空历史hash恰好匹配
	}
	for _, cs := range cases {
		if got := isContinuation(cs.in, state); got != cs.want {
			t.Errorf("%s: got %v, want %v", cs.name, got, cs.want)
		}
	}
	if isContinuation(&intake{HasAssistant: true}, &store.State{}) {
		t.Error("no saved hash should never be continuation")
	}
}

func TestPrepareStateResetsFreshRequest(t *testing.T) {
	ctx := context.Background()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	e := &Engine{store: fs, maxHistory: 100}

	stale := &store.State{UserHash: "oldhash"}
	if err := fs.Save(ctx, stale); err != nil {
		t.Fatal(err)
	}
	state, err := e.prepareState(ctx, &intake{UserTexts: []string{"全新问题"}})
	if err != nil {
		t.Fatal(err)
	}
	if state.UserHash != "" {
		t.Error("fresh single-turn request should clear stale hash")
	}
}

func TestLooksHTML(t *testing.T) {
	for _, body := range []string{"<!DOCTYPE html><html>", "  <html>", "\n<head>"} {
		if !looksHTML(body) {
			t.Errorf("%q should look like html", body)
		}
	}
	for _, body := range []string{"", ")]}'", `[["wrb.fr"]]`, "123"} {
		if looksHTML(body) {
			t.Errorf("%q should not look like html", body)
		}
	}
}

func TestEmptyAnswerMarksCredentialFailure(t *testing.T) {
	session := newTestSession(t, "at-token")
	e := &Engine{session: session, maxHistory: 100}

	err := e.emptyAnswerErr(looksHTML("<!DOCTYPE html><html>请重新登录</html>"))
	if err != ErrTokenFetch {
		t.Fatalf("err = %v, want ErrTokenFetch", err)
	}
	if snlm0e, _ := session.TokenInfo(); snlm0e != "" {
		t.Errorf("token should be cleared, got %q", snlm0e)
	}
	if !session.staleLocked() {
		t.Error("session should need re-scrape after html body")
	}
}

func TestEmptyAnswerWithoutHTML(t *testing.T) {
	session := newTestSession(t, "at-token")
	e := &Engine{session: session, maxHistory: 100}

	if err := e.emptyAnswerErr(looksHTML(")]}'\n\n12\n")); err != ErrEmptyAnswer {
		t.Fatalf("err = %v, want ErrEmptyAnswer", err)
	}
	if snlm0e, _ := session.TokenInfo(); snlm0e != "at-token" {
		t.Errorf("token should stay valid, got %q", snlm0e)
	}
}

func TestPrepareStateKeepsConversation(t *testing.T) {
	ctx := context.Background()
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "state.json"))
	e := &Engine{store: fs, maxHistory: 100}

	saved := &store.State{
		Cid:      "c_1",
		Rid:      "r_1",
		Rcid:     "rc_1",
		UserHash: "somehash",
	}
	if err := fs.Save(ctx, saved); err != nil {
		t.Fatal(err)
	}
	state, err := e.prepareState(ctx, &intake{HasAssistant: true, UserTexts: []string{"q1", "q2"}})
	if err != nil {
		t.Fatal(err)
	}
	if state.Cid != "c_1" || state.Rcid != "rc_1" {
		t.Errorf("conversation lost: %+v", state)
	}
}
