package stt

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// fakeYating 模拟令牌接口和流式识别接口。
type fakeYating struct {
	final    string // 为空时不发送最终结果
	mu       sync.Mutex
	received int
	empties  int
	pipeline string
}

func (f *fakeYating) handler(t *testing.T) http.Handler {
	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("key") != "yk" {
			http.Error(w, "bad key", http.StatusUnauthorized)
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.pipeline = body["pipeline"]
		f.mu.Unlock()
		w.Write([]byte(`{"auth_token":"tok"}`))
	})
	mux.HandleFunc("/ws/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "tok" {
			http.Error(w, "bad token", http.StatusForbidden)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			f.mu.Lock()
			if len(msg) == 0 {
				f.empties++
			}
			f.received += len(msg)
			done := f.empties == 2
			f.mu.Unlock()
			if done && f.final != "" {
				conn.WriteMessage(websocket.TextMessage, []byte(`{"pipe":{"asr_state":"start"}}`))
				conn.WriteMessage(websocket.TextMessage, []byte(`{"pipe":{"asr_final":false,"asr_sentence":"你"}}`))
				conn.WriteMessage(websocket.TextMessage, []byte(`{"pipe":{"asr_final":true,"asr_sentence":" `+f.final+` "}}`))
			}
		}
	})
	return mux
}

func newFakeYatingServer(t *testing.T, f *fakeYating) (*httptest.Server, YatingConfig) {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return srv, YatingConfig{
		APIKey:    "yk",
		TokenURL:  srv.URL + "/token",
		StreamURL: "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/",
		FinalWait: time.Second,
	}
}

func TestYatingRecognizer_Recognize(t *testing.T) {
	f := &fakeYating{final: "你好"}
	_, cfg := newFakeYatingServer(t, f)

	y, err := NewYatingRecognizer(cfg)
	if err != nil {
		t.Fatal(err)
	}
	pcm := make([]int16, 2500)
	got, err := y.Recognize(context.Background(), pcm, 16000)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if got.Transcript != "你好" || got.HasConfidence {
		t.Errorf("got %+v", got)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.received != 5000 || f.empties != 2 {
		t.Errorf("server received %d bytes, %d end markers", f.received, f.empties)
	}
	if f.pipeline != "asr-zh-en-nan" {
		t.Errorf("pipeline = %q", f.pipeline)
	}
}

func TestYatingRecognizer_FinalWaitTimeout(t *testing.T) {
	f := &fakeYating{}
	_, cfg := newFakeYatingServer(t, f)
	cfg.FinalWait = 200 * time.Millisecond

	y, _ := NewYatingRecognizer(cfg)
	_, err := y.Recognize(context.Background(), make([]int16, 100), 16000)
	if !errors.Is(err, ErrNetworkTimeout) {
		t.Fatalf("expected ErrNetworkTimeout, got %v", err)
	}
}

func TestYatingRecognizer_TokenRejected(t *testing.T) {
	f := &fakeYating{final: "x"}
	_, cfg := newFakeYatingServer(t, f)
	cfg.APIKey = "wrong"

	y, _ := NewYatingRecognizer(cfg)
	if _, err := y.Recognize(context.Background(), make([]int16, 100), 16000); err == nil {
		t.Fatal("expected token error")
	}
	if f.empties != 0 {
		t.Error("stream should not be opened without a token")
	}
}

func TestYatingRecognizer_ContextCancel(t *testing.T) {
	f := &fakeYating{final: "你好"}
	_, cfg := newFakeYatingServer(t, f)
	cfg.ChunkSamples = 160

	y, _ := NewYatingRecognizer(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := y.Recognize(ctx, make([]int16, 16000), 16000); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
}

func TestNewYatingRecognizer_RequiresKey(t *testing.T) {
	if _, err := NewYatingRecognizer(YatingConfig{}); err == nil {
		t.Error("expected error")
	}
}
