package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"google.golang.org/genai"

	"github.com/mmynk/finwise/internal/models"
)

const systemPrompt = `You are a personal finance assistant inside the finwise app.
Answer using only the figures in the context below. Be concise and concrete,
use the user's currency, and never invent transactions or accounts.`

const insightsPrompt = `Give between 2 and 5 insights about these finances.
Respond with JSON only, shaped as:
{"insights": [{"title": "...", "message": "...", "kind": "tip|warning|praise"}]}`

// Gemini answers through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini model using apiKey.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return g.model }

func (g *Gemini) config(s Snapshot) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt + "\n\n" + s.Markdown()}}},
	}
}

// ask starts a chat seeded with history and sends one message.
func (g *Gemini) ask(ctx context.Context, config *genai.GenerateContentConfig, history []*genai.Content, message string) (string, error) {
	chat, err := g.client.Chats.Create(ctx, g.model, config, history)
	if err != nil {
		return "", fmt.Errorf("failed to start chat: %w", err)
	}
	resp, err := chat.Send(ctx, &genai.Part{Text: message})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty response from model")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	if b.Len() == 0 {
		return "", errors.New("empty response from model")
	}
	return b.String(), nil
}

func (g *Gemini) Reply(ctx context.Context, s Snapshot, history []models.ChatMessage, question string) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := "user"
		if m.Role == models.ChatRoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: []*genai.Part{{Text: m.Content}}})
	}
	return g.ask(ctx, g.config(s), contents, question)
}

func (g *Gemini) Insights(ctx context.Context, s Snapshot) ([]Insight, error) {
	config := g.config(s)
	config.ResponseMIMEType = "application/json"
	text, err := g.ask(ctx, config, nil, insightsPrompt)
	if err != nil {
		return nil, err
	}
	return ParseInsights(text)
}

// ParseInsights extracts insights from a model's JSON answer. Code fences
// around the JSON are tolerated and entries without a message are skipped.
func ParseInsights(text string) ([]Insight, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode model answer: %w", err)
	}
	found, err := jsonpath.Get("$.insights", doc)
	if err != nil {
		return nil, fmt.Errorf("failed to find insights in model answer: %w", err)
	}
	items, ok := found.([]any)
	if !ok {
		return nil, fmt.Errorf("insights is not a list: %T", found)
	}

	out := make([]Insight, 0, len(items))
	for _, item := range items {
		in := Insight{
			Title:   field(item, "$.title"),
			Message: field(item, "$.message"),
			Kind:    InsightKind(field(item, "$.kind")),
		}
		if in.Message == "" {
			continue
		}
		switch in.Kind {
		case KindTip, KindWarning, KindPraise:
		default:
			in.Kind = KindTip
		}
		out = append(out, in)
	}
	return out, nil
}

func field(item any, path string) string {
	v, err := jsonpath.Get(path, item)
	if err != nil {
		return ""
	}
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
