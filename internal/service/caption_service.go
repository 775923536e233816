package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/invopop/jsonschema"
	config "github.com/maheshrc27/reelflow/configs"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var defaultHashtags = []string{"Motivation", "Mindset", "Success"}

type CaptionRequest struct {
	Quote       string
	Author      string
	Theme       string
	MusicEnergy string
}

// CaptionService always produces a caption; model failures fall back to a
// template.
type CaptionService interface {
	Caption(ctx context.Context, req CaptionRequest) string
}

// ContentIdea is a model-written reel concept.
type ContentIdea struct {
	Quote   string `json:"quote" jsonschema_description:"The on-screen text, one or two short sentences under 100 characters"`
	Caption string `json:"caption" jsonschema_description:"Instagram caption under 200 characters with 2-3 hashtags"`
	Theme   string `json:"theme" jsonschema_description:"One of the allowed themes"`
	Hook    string `json:"hook" jsonschema_description:"Opening line shown in the first seconds, under 60 characters"`
	Payoff  string `json:"payoff" jsonschema_description:"Closing line that answers the hook, under 80 characters"`

	VideoSearchTerms []string `json:"video_search_terms" jsonschema_description:"Two or three stock footage searches for vertical background video"`
	MusicSearchTerms []string `json:"music_search_terms" jsonschema_description:"Two or three searches for copyright-free background music"`
}

type IdeaService interface {
	Idea(ctx context.Context, theme string) (*ContentIdea, error)
}

type CaptionResponse struct {
	Caption string `json:"caption" jsonschema_description:"Instagram caption under 200 characters with 2-3 hashtags"`
}

func GenerateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var (
	captionResponseSchema = GenerateSchema[CaptionResponse]()
	contentIdeaSchema     = GenerateSchema[ContentIdea]()
)

type openAIService struct {
	client  *openai.Client
	model   string
	content *config.Content
}

func newOpenAIService(apiKey, model string, content *config.Content, opts ...option.RequestOption) *openAIService {
	if content == nil {
		content = config.DefaultContent()
	}
	if model == "" {
		model = openai.ChatModelGPT4oMini
	}
	s := &openAIService{model: model, content: content}
	if apiKey != "" {
		client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
		s.client = &client
	}
	return s
}

// NewCaptionService uses the chat model when apiKey is set and templates
// otherwise.
func NewCaptionService(apiKey, model string, content *config.Content, opts ...option.RequestOption) CaptionService {
	return newOpenAIService(apiKey, model, content, opts...)
}

// NewIdeaService returns nil without an API key.
func NewIdeaService(apiKey, model string, content *config.Content, opts ...option.RequestOption) IdeaService {
	if apiKey == "" {
		return nil
	}
	return newOpenAIService(apiKey, model, content, opts...)
}

func (s *openAIService) Caption(ctx context.Context, req CaptionRequest) string {
	if s.client != nil {
		prompt := fmt.Sprintf(`Write an Instagram caption for a short motivational reel.

Quote: %s
Theme: %s
Music energy: %s

Keep it under 200 characters, authentic and direct, and include 2-3 relevant hashtags.`, req.Quote, req.Theme, req.MusicEnergy)

		resp, err := structured[CaptionResponse](ctx, s, prompt, "reel_caption", captionResponseSchema)
		if err == nil && strings.TrimSpace(resp.Caption) != "" {
			return strings.TrimSpace(resp.Caption)
		}
		slog.Warn("caption generation failed, using template", "error", err)
	}
	return s.templateCaption(req)
}

func (s *openAIService) templateCaption(req CaptionRequest) string {
	tags := defaultHashtags
	if theme, ok := s.content.Content.Themes[req.Theme]; ok && len(theme.Keywords) > 0 {
		tags = theme.Keywords
		if len(tags) > 3 {
			tags = tags[:3]
		}
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(req.Quote))
	if req.Author != "" {
		b.WriteString(" - ")
		b.WriteString(req.Author)
	}
	for _, tag := range tags {
		b.WriteString(" #")
		b.WriteString(hashtag(tag))
	}
	return b.String()
}

func hashtag(keyword string) string {
	var b strings.Builder
	for _, w := range strings.Fields(keyword) {
		r := []rune(w)
		b.WriteString(strings.ToUpper(string(r[0])))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}

func (s *openAIService) Idea(ctx context.Context, theme string) (*ContentIdea, error) {
	if s.client == nil {
		return nil, errors.New("OPENAI_API_KEY is not set")
	}

	themes := s.content.ThemeNames()
	if theme == "" && len(themes) > 0 {
		theme = "any of: " + strings.Join(themes, ", ")
	}

	prompt := fmt.Sprintf(`You are planning a short vertical video for Instagram Reels.

Theme: %s

Write one original, punchy idea: a quote for the screen, a caption, the theme it belongs to,
a hook/payoff pair for a two-part edit, and search terms for the footage and the music.`, theme)

	idea, err := structured[ContentIdea](ctx, s, prompt, "content_idea", contentIdeaSchema)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(idea.Quote) == "" {
		return nil, errors.New("OpenAI returned an empty quote")
	}
	return idea, nil
}

func structured[T any](ctx context.Context, s *openAIService, prompt, name string, schema interface{}) (*T, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        name,
		Description: openai.String("Structured data response"),
		Schema:      schema,
		Strict:      openai.Bool(true),
	}

	chatCompletion, err := s.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Model: s.model,
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(chatCompletion.Choices) == 0 {
		return nil, errors.New("no response from OpenAI")
	}

	raw := chatCompletion.Choices[0].Message.Content
	if raw == "" {
		return nil, fmt.Errorf("OpenAI returned empty response. Finish reason: %s", chatCompletion.Choices[0].FinishReason)
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI JSON response: %w", err)
	}
	return &out, nil
}
