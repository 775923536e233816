package notifications

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewNotifierWithoutSinksIsNoop(t *testing.T) {
	n := NewNotifier(config.Config{})
	assert.IsType(t, Noop{}, n)
	assert.NoError(t, n.Notify(context.Background(), LevelError, "ignored"))
}

func TestNewNotifierFansOut(t *testing.T) {
	n := NewNotifier(config.Config{
		TelegramBotToken: "token",
		TelegramChatIDs:  []string{"1"},
		NtfyTopic:        "https://ntfy.sh/reels",
	})
	assert.Len(t, n, 2)
}

func TestTelegramSendsToEveryChat(t *testing.T) {
	var mu sync.Mutex
	var chats, texts []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botsecret/sendMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		mu.Lock()
		chats = append(chats, r.PostForm.Get("chat_id"))
		texts = append(texts, r.PostForm.Get("text"))
		mu.Unlock()
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n := NewTelegram(srv.Client(), srv.URL, "secret", []string{"100", "200"})
	require.NoError(t, n.Notify(context.Background(), LevelSuccess, "Reel #4 published"))

	assert.Equal(t, []string{"100", "200"}, chats)
	assert.Equal(t, "✅ Reel #4 published", texts[0])
}

func TestTelegramReportsFailedChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("chat_id") == "bad" {
			http.Error(w, "chat not found", http.StatusBadRequest)
			return
		}
	}))
	defer srv.Close()

	n := NewTelegram(srv.Client(), srv.URL, "secret", []string{"good", "bad"})
	err := n.Notify(context.Background(), LevelInfo, "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram chat bad")
	assert.Contains(t, err.Error(), "chat not found")
}

func TestNtfyHeaders(t *testing.T) {
	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
	}))
	defer srv.Close()

	n := NewNtfy(srv.Client(), srv.URL)
	require.NoError(t, n.Notify(context.Background(), LevelError, "  publish failed  "))

	assert.Equal(t, "publish failed", body)
	assert.Equal(t, "Reelflow - Error", got.Header.Get("Title"))
	assert.Equal(t, "reelflow,error", got.Header.Get("Tags"))
	assert.Equal(t, "high", got.Header.Get("Priority"))
}

type failing struct{ err error }

func (f failing) Notify(context.Context, Level, string) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	err := Multi{failing{first}, Noop{}, failing{second}}.Notify(context.Background(), LevelInfo, "x")
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)
}
