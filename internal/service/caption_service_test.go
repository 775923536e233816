package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	config "github.com/maheshrc27/reelflow/configs"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chatServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body struct {
			Model          string `json:"model"`
			ResponseFormat struct {
				Type string `json:"type"`
			} `json:"response_format"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "json_schema", body.ResponseFormat.Type)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1,
			"model":   body.Model,
			"choices": []map[string]any{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTemplateCaption(t *testing.T) {
	content := config.DefaultContent()
	content.Content.Themes = map[string]config.Theme{
		"discipline": {Keywords: []string{"discipline", "self control", "grind", "focus"}},
	}
	captions := NewCaptionService("", "", content)

	got := captions.Caption(context.Background(), CaptionRequest{Quote: " Do the work. ", Author: "Unknown", Theme: "discipline"})
	assert.Equal(t, "Do the work. - Unknown #Discipline #SelfControl #Grind", got)

	got = captions.Caption(context.Background(), CaptionRequest{Quote: "Start now", Theme: "other"})
	assert.Equal(t, "Start now #Motivation #Mindset #Success", got)
}

func TestModelCaption(t *testing.T) {
	srv := chatServer(t, http.StatusOK, `{"caption":"  Small steps daily #Growth #Mindset "}`)
	captions := NewCaptionService("sk-test", "", nil, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	got := captions.Caption(context.Background(), CaptionRequest{Quote: "Small steps", Theme: "growth"})
	assert.Equal(t, "Small steps daily #Growth #Mindset", got)
}

func TestModelCaptionFallsBackToTemplate(t *testing.T) {
	srv := chatServer(t, http.StatusInternalServerError, "")
	captions := NewCaptionService("sk-test", "", nil, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	got := captions.Caption(context.Background(), CaptionRequest{Quote: "Small steps", Author: "Unknown"})
	assert.Equal(t, "Small steps - Unknown #Motivation #Mindset #Success", got)
}

func TestIdea(t *testing.T) {
	assert.Nil(t, NewIdeaService("", "", nil))

	srv := chatServer(t, http.StatusOK, `{"quote":"Comfort is the enemy","caption":"Get uncomfortable #Growth","theme":"growth","hook":"Stop waiting","payoff":"Start moving"}`)
	ideas := NewIdeaService("sk-test", "", nil, option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	require.NotNil(t, ideas)

	idea, err := ideas.Idea(context.Background(), "growth")
	require.NoError(t, err)
	assert.Equal(t, "Comfort is the enemy", idea.Quote)
	assert.Equal(t, "Stop waiting", idea.Hook)
	assert.Equal(t, "Start moving", idea.Payoff)

	empty := chatServer(t, http.StatusOK, `{"quote":"","caption":"","theme":"","hook":"","payoff":""}`)
	ideas = NewIdeaService("sk-test", "", nil, option.WithBaseURL(empty.URL), option.WithMaxRetries(0))
	_, err = ideas.Idea(context.Background(), "")
	assert.Error(t, err)
}
