// Package rag implements domain-scoped retrieval-augmented answering. One
// Domain template carries the shared pipeline; the per-domain constructors
// (restaurant, hotel, delivery, orders) supply collection, persona
// instructions and context formatting.
package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/vector"
	"github.com/bebo-assistant/backend/pkg/logger"
)

// parentPrefilterK is how many parents the child search draws from. Child
// results are a flattening of these parents' nested entities, not an
// independently ranked search.
const parentPrefilterK = 3

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Generator interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	CompleteLight(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Recorder is the interaction memory's append operation; domains configured
// with one record every answered question as a side effect.
type Recorder interface {
	Append(ctx context.Context, userID, question, answer, contextType, sessionID string) (string, error)
}

// Refresher is the boundary to the external ingestion pipeline that resyncs
// this domain's collection from the source-of-record.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Deps carries the collaborators shared by every domain constructor.
type Deps struct {
	Index     vector.Index
	Embedder  Embedder
	Generator Generator
	Recorder  Recorder
	Refresher Refresher
}

type Query struct {
	Text      string
	UserID    string
	SessionID string
}

type ParentMatch struct {
	Payload vector.Payload
	Score   float32
}

type ChildMatch struct {
	Payload    vector.Payload
	Score      float32
	ParentID   string
	ParentName string
}

type Answer struct {
	Text       string
	TopParents []ParentMatch
	TopChilds  []ChildMatch
}

type Domain struct {
	name        string
	contextType string
	index       vector.Index
	embedder    Embedder
	generator   Generator
	prompt      string
	childKey    string
	apology     string
	recorder    Recorder
	refresher   Refresher

	// buildContext renders retrieved entities into the textual context
	// block handed to the generator.
	buildContext func(parents []ParentMatch, childs []ChildMatch) string
	// extraInstructions optionally appends query-derived guidance to the
	// system prompt (e.g. hotel location awareness).
	extraInstructions func(ctx context.Context, q Query) string
	// extraContext optionally appends query-derived data to the context
	// block (e.g. the user's own order history).
	extraContext func(ctx context.Context, q Query) string
}

func (d *Domain) Name() string {
	return d.name
}

// SearchParents embeds the query and returns the top-k entities by cosine
// similarity. An unavailable index degrades to an empty result.
func (d *Domain) SearchParents(ctx context.Context, query string, k int) ([]ParentMatch, error) {
	embedding, err := d.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return d.searchParentsByVector(ctx, embedding, k), nil
}

func (d *Domain) searchParentsByVector(ctx context.Context, embedding []float32, k int) []ParentMatch {
	matches, err := d.index.Search(ctx, embedding, k, nil)
	if err != nil {
		logger.Warn("Index search failed, proceeding without results",
			zap.String("domain", d.name),
			zap.Error(err),
		)
		return nil
	}

	parents := make([]ParentMatch, 0, len(matches))
	for _, m := range matches {
		parents = append(parents, ParentMatch{Payload: m.Payload, Score: m.Score})
	}
	return parents
}

// SearchChildren flattens the nested child entities of the top parents into
// one pool and returns the first k. The pool inherits parent ranking;
// children are never ranked independently.
func (d *Domain) SearchChildren(ctx context.Context, query string, k int) ([]ChildMatch, error) {
	parents, err := d.SearchParents(ctx, query, parentPrefilterK)
	if err != nil {
		return nil, err
	}
	return d.flattenChildren(parents, k), nil
}

func (d *Domain) flattenChildren(parents []ParentMatch, k int) []ChildMatch {
	if k <= 0 {
		return nil
	}

	var childs []ChildMatch
	for _, parent := range parents {
		parentID := parent.Payload.String("id")
		parentName := parent.Payload.String("name")

		for _, child := range parent.Payload.Objects(d.childKey) {
			childs = append(childs, ChildMatch{
				Payload:    child,
				Score:      parent.Score,
				ParentID:   parentID,
				ParentName: parentName,
			})
			if len(childs) >= k {
				return childs
			}
		}
	}
	return childs
}

// AnswerQuery retrieves domain context and issues one generation call. Any
// embedding or generation failure yields the canned apology with empty
// result lists; nothing is raised past this component.
func (d *Domain) AnswerQuery(ctx context.Context, q Query) Answer {
	embedding, err := d.embedder.Embed(ctx, q.Text)
	if err != nil {
		logger.Error("Failed to embed query",
			zap.String("domain", d.name),
			zap.Error(err),
		)
		return Answer{Text: d.apology}
	}

	parents := d.searchParentsByVector(ctx, embedding, parentPrefilterK)
	childs := d.flattenChildren(parents, parentPrefilterK)

	contextBlock := d.buildContext(parents, childs)
	if d.extraContext != nil {
		if extra := d.extraContext(ctx, q); extra != "" {
			contextBlock += "\n" + extra
		}
	}

	systemPrompt := d.prompt
	if d.extraInstructions != nil {
		if extra := d.extraInstructions(ctx, q); extra != "" {
			systemPrompt += "\n\n" + extra
		}
	}

	userPrompt := fmt.Sprintf("Context: %s\n\nQuestion: %s\n\nAnswer:", contextBlock, q.Text)

	text, err := d.generator.Complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		logger.Error("Failed to generate answer",
			zap.String("domain", d.name),
			zap.Error(err),
		)
		return Answer{Text: d.apology}
	}

	if d.recorder != nil {
		if _, err := d.recorder.Append(ctx, q.UserID, q.Text, text, d.contextType, q.SessionID); err != nil {
			logger.Warn("Failed to record interaction",
				zap.String("domain", d.name),
				zap.Error(err),
			)
		}
	}

	logger.Info("Domain answer generated",
		zap.String("domain", d.name),
		zap.Int("parents", len(parents)),
		zap.Int("childs", len(childs)),
	)

	return Answer{
		Text:       text,
		TopParents: parents,
		TopChilds:  childs,
	}
}

// Refresh delegates to the injected ingestion boundary. Domains constructed
// without one log and report success so a refresh cycle never aborts.
func (d *Domain) Refresh(ctx context.Context) error {
	if d.refresher == nil {
		logger.Debug("No refresher configured, skipping", zap.String("domain", d.name))
		return nil
	}
	return d.refresher.Refresh(ctx)
}

func formatPrice(p vector.Payload) string {
	price := p.Float("price")
	if price == 0 {
		return "liên hệ"
	}
	return fmt.Sprintf("%.0f VND", price)
}

func writeLine(b *strings.Builder, format string, args ...interface{}) {
	fmt.Fprintf(b, format, args...)
	b.WriteString("\n")
}
