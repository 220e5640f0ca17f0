// Package fallback answers queries no dedicated domain handles, through an
// ordered strategy chain: web-style lookup, interaction memory reuse, then
// a static redirect message. Strategies run strictly in order with early
// exit; they are never raced.
package fallback

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/memory"
	"github.com/bebo-assistant/backend/internal/prompts"
	"github.com/bebo-assistant/backend/pkg/logger"
)

// Strategy names recorded in analytics and metrics.
const (
	StrategyWebLookup   = "web_lookup"
	StrategyMemoryReuse = "memory_reuse"
	StrategyStatic      = "static"
)

type WebLookup interface {
	Lookup(ctx context.Context, question string) (string, error)
}

type Generator interface {
	CompleteLight(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Memory interface {
	Nearest(ctx context.Context, question string, k int, userID string) ([]memory.Record, error)
}

type Resolver struct {
	web        WebLookup
	generator  Generator
	memory     Memory
	templates  *prompts.Templates
	reuseScore float64
}

func NewResolver(web WebLookup, generator Generator, mem Memory, templates *prompts.Templates, reuseScore float64) *Resolver {
	if reuseScore <= 0 {
		reuseScore = 0.85
	}
	return &Resolver{
		web:        web,
		generator:  generator,
		memory:     mem,
		templates:  templates,
		reuseScore: reuseScore,
	}
}

type Result struct {
	Answer   string
	Strategy string
}

// Resolve runs the strategy chain. contextType is the classified label of
// the question; it selects the persona template used to restyle lookup
// content. Resolve always produces an answer; the last strategy cannot
// fail.
func (r *Resolver) Resolve(ctx context.Context, question, contextType string) Result {
	if answer, ok := r.tryWebLookup(ctx, question, contextType); ok {
		return Result{Answer: answer, Strategy: StrategyWebLookup}
	}

	if answer, ok := r.tryMemoryReuse(ctx, question); ok {
		return Result{Answer: answer, Strategy: StrategyMemoryReuse}
	}

	logger.Info("Falling back to static message")
	return Result{Answer: r.templates.StaticFallback(), Strategy: StrategyStatic}
}

// tryWebLookup is the two-stage lookup: retrieve raw content, then restyle
// it into the assistant persona. A restyle failure does not fail the step;
// the raw content is wrapped in a fixed persona template instead.
func (r *Resolver) tryWebLookup(ctx context.Context, question, contextType string) (string, bool) {
	raw, err := r.web.Lookup(ctx, question)
	if err != nil || raw == "" {
		logger.Warn("Web lookup failed", zap.Error(err))
		return "", false
	}

	restyled, err := r.generator.CompleteLight(
		ctx,
		r.templates.ByContext(contextType),
		fmt.Sprintf("Đây là thông tin tìm được: %s\n\nHãy trả lời câu hỏi \"%s\" với phong cách thân thiện và dễ thương.", raw, question),
	)
	if err != nil {
		logger.Warn("Restyle failed, wrapping raw lookup content", zap.Error(err))
		return r.templates.WrapRawLookup(raw), true
	}

	return restyled, true
}

func (r *Resolver) tryMemoryReuse(ctx context.Context, question string) (string, bool) {
	records, err := r.memory.Nearest(ctx, question, 1, "")
	if err != nil {
		logger.Warn("Memory lookup failed", zap.Error(err))
		return "", false
	}

	if len(records) == 0 || float64(records[0].Score) <= r.reuseScore {
		return "", false
	}

	logger.Info("Reusing stored answer",
		zap.Float32("score", records[0].Score),
		zap.String("stored_question", records[0].Question),
	)
	return records[0].Answer, true
}
