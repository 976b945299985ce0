// Package ai generates whiteboard ideas with an OpenAI-compatible chat model.
package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"TeamBoard/internal/config"
	"TeamBoard/internal/logging"
	"TeamBoard/internal/state"
)

// MaxIdeas caps how many ideas one request places on the board.
const MaxIdeas = 5

// Idea labels are drawn with these settings.
const (
	IdeaPrefix      = "💡 "
	IdeaColor       = "#8B5CF6"
	IdeaStrokeWidth = 1
)

var (
	// ErrDisabled is returned when no model is configured.
	ErrDisabled = errors.New("ai ideas are disabled")
	// ErrNoContent is returned when the model answers with nothing usable.
	ErrNoContent = errors.New("no content received from model")
)

// Fallback is placed instead of generated ideas when the model is unavailable.
var Fallback = []string{
	"User Research Findings",
	"Feature Prioritization",
	"Technical Architecture",
	"Design System Components",
}

const systemPrompt = "You are a creative project consultant specializing in software development, " +
	"design, and business strategy. Generate 5 specific, actionable, and innovative ideas for the " +
	"given project context. Each idea should be concise but detailed enough to be immediately actionable."

// Generator asks a chat model for ideas about a whiteboard session.
type Generator struct {
	model   llms.Model
	timeout time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New builds a generator from config. When AI is disabled or no API key is
// set the generator has no model and every request falls back.
func New(cfg config.AIConfig, logger *zap.Logger) (*Generator, error) {
	if !cfg.Enabled || cfg.APIKey == "" {
		return NewWithModel(nil, cfg.Timeout, logger), nil
	}
	llm, err := openai.New(
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithToken(cfg.APIKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating OpenAI client: %w", err)
	}
	return NewWithModel(llm, cfg.Timeout, logger), nil
}

// NewWithModel wraps an existing model. A nil model disables generation.
func NewWithModel(model llms.Model, timeout time.Duration, logger *zap.Logger) *Generator {
	return &Generator{
		model:   model,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Every(time.Second), 3),
		logger:  logging.OrNop(logger).Named("ai"),
	}
}

// Enabled reports whether a model is configured.
func (g *Generator) Enabled() bool { return g.model != nil }

// Generate asks the model for ideas about the session. It returns at most
// MaxIdeas strings or an error.
func (g *Generator) Generate(ctx context.Context, sessionID string) ([]string, error) {
	if g.model == nil {
		return nil, ErrDisabled
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	projectType := ProjectType(sessionID)
	prompt := fmt.Sprintf("Generate 5 creative and practical ideas for a %s project. "+
		"Context: Collaborative whiteboard session for %s project. "+
		"Focus on modern best practices, user experience, and technical feasibility.", projectType, projectType)

	resp, err := g.model.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}, llms.WithMaxTokens(500), llms.WithTemperature(0.7))
	if err != nil {
		return nil, fmt.Errorf("generating ideas: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		return nil, ErrNoContent
	}
	return ParseIdeas(resp.Choices[0].Content), nil
}

// Ideas returns generated ideas, or Fallback when generation fails. The
// returned error says why the fallback was used and is for logging only.
func (g *Generator) Ideas(ctx context.Context, sessionID string) ([]string, error) {
	ideas, err := g.Generate(ctx, sessionID)
	if err != nil {
		if !errors.Is(err, ErrDisabled) {
			g.logger.Warn("idea generation failed, using fallback", zap.String("session", sessionID), zap.Error(err))
		}
		return append([]string(nil), Fallback...), err
	}
	g.logger.Info("generated ideas", zap.String("session", sessionID), zap.Int("count", len(ideas)))
	return ideas, nil
}

// ProjectType guesses the kind of project from the session id.
func ProjectType(sessionID string) string {
	id := strings.ToLower(sessionID)
	switch {
	case strings.Contains(id, "website"):
		return "website"
	case strings.Contains(id, "mobile"):
		return "mobile"
	case strings.Contains(id, "marketing"):
		return "marketing"
	}
	return "default"
}

var (
	numbered = regexp.MustCompile(`^\d+\.\s*`)
	bulleted = regexp.MustCompile(`^[-*]\s*`)
)

// ParseIdeas extracts idea lines from model output: numbered, bulleted or
// capitalised lines with their markers stripped, longer than 10 characters.
// When no line qualifies the whole content is one idea.
func ParseIdeas(content string) []string {
	var ideas []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !numbered.MatchString(line) && !bulleted.MatchString(line) && !startsUpper(line) {
			continue
		}
		idea := strings.TrimSpace(bulleted.ReplaceAllString(numbered.ReplaceAllString(line, ""), ""))
		if len([]rune(idea)) <= 10 {
			continue
		}
		ideas = append(ideas, idea)
		if len(ideas) == MaxIdeas {
			break
		}
	}
	if len(ideas) == 0 {
		if trimmed := strings.TrimSpace(content); trimmed != "" {
			return []string{trimmed}
		}
	}
	return ideas
}

func startsUpper(s string) bool {
	return s != "" && s[0] >= 'A' && s[0] <= 'Z'
}

// Origin is where the i-th idea of a batch is placed.
func Origin(i int) state.Point {
	return state.Point{X: float64(100 + 20*i), Y: float64(100 + 40*i)}
}

// Style is the stroke style of idea labels.
func Style() state.Style {
	return state.Style{Color: IdeaColor, StrokeWidth: IdeaStrokeWidth}
}
