// Package orchestrator is the single entry point of the assistant. It
// classifies each question, routes it to the matching domain pipeline or
// the fallback chain, and records the analytics trail.
package orchestrator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bebo-assistant/backend/internal/classifier"
	"github.com/bebo-assistant/backend/internal/fallback"
	"github.com/bebo-assistant/backend/internal/metrics"
	"github.com/bebo-assistant/backend/internal/prompts"
	"github.com/bebo-assistant/backend/internal/rag"
	"github.com/bebo-assistant/backend/internal/storage/models"
	"github.com/bebo-assistant/backend/pkg/logger"
)

// ServiceWelcome is the pseudo-service name reported for empty questions,
// which short-circuit before classification.
const ServiceWelcome = "welcome"

const anonymousUser = "anonymous"

type Request struct {
	Question  string `json:"question"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

type EntityRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type ChildRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	ParentID string `json:"parentId"`
}

type Response struct {
	Answer      string      `json:"answer"`
	ServiceName string      `json:"service_name"`
	TopParents  []EntityRef `json:"top_parents"`
	TopChilds   []ChildRef  `json:"top_childs"`
}

type Classifier interface {
	Classify(ctx context.Context, text string) classifier.Classification
}

type Fallback interface {
	Resolve(ctx context.Context, question, contextType string) fallback.Result
}

// RequestLogger persists the analytics trail. A nil logger disables it.
type RequestLogger interface {
	InsertRequestLog(record *models.RequestLog) error
}

// ResponseCache is the optional short-lived answer cache keyed by question
// hash. A nil cache disables it.
type ResponseCache interface {
	GetResponse(ctx context.Context, questionHash string, response interface{}) (bool, error)
	SetResponse(ctx context.Context, questionHash string, response interface{}, ttl time.Duration) error
}

type Orchestrator struct {
	classifier Classifier
	domains    map[string]*rag.Domain
	fallback   Fallback
	templates  *prompts.Templates

	requestLog RequestLogger
	cache      ResponseCache
	cacheTTL   time.Duration

	// threshold is the minimum classification confidence required to route
	// to a dedicated domain; anything below it goes to the fallback chain.
	threshold float64
}

type Options struct {
	Classifier Classifier
	Fallback   Fallback
	Templates  *prompts.Templates
	RequestLog RequestLogger
	Cache      ResponseCache
	CacheTTL   time.Duration
	Threshold  float64
}

func New(opts Options) *Orchestrator {
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = 0.5
	}
	cacheTTL := opts.CacheTTL
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &Orchestrator{
		classifier: opts.Classifier,
		domains:    make(map[string]*rag.Domain),
		fallback:   opts.Fallback,
		templates:  opts.Templates,
		requestLog: opts.RequestLog,
		cache:      opts.Cache,
		cacheTTL:   cacheTTL,
		threshold:  threshold,
	}
}

// RegisterDomain binds a classification label to a domain pipeline.
// Unregistered labels resolve through the fallback chain.
func (o *Orchestrator) RegisterDomain(label string, domain *rag.Domain) {
	o.domains[label] = domain
	logger.Info("Domain registered",
		zap.String("label", label),
		zap.String("domain", domain.Name()),
	)
}

// Handle answers one question. It never returns an error: every failure
// mode inside the pipeline resolves to a well-formed response.
func (o *Orchestrator) Handle(ctx context.Context, req Request) Response {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Response{
			Answer:      o.templates.Welcome(),
			ServiceName: ServiceWelcome,
			TopParents:  []EntityRef{},
			TopChilds:   []ChildRef{},
		}
	}

	userID := req.UserID
	if userID == "" {
		userID = anonymousUser
	}

	questionHash := hashQuestion(question)
	if cached, ok := o.cachedResponse(ctx, questionHash); ok {
		return cached
	}

	started := time.Now()

	classification := o.classifier.Classify(ctx, question)
	metrics.ClassificationConfidence.Observe(classification.Confidence)

	var (
		resp     Response
		strategy string
	)

	domain, routed := o.domains[classification.PrimaryLabel]
	if routed && classification.Confidence >= o.threshold {
		answer := domain.AnswerQuery(ctx, rag.Query{
			Text:      question,
			UserID:    userID,
			SessionID: req.SessionID,
		})
		resp = Response{
			Answer:      answer.Text,
			ServiceName: domain.Name(),
			TopParents:  parentRefs(answer.TopParents),
			TopChilds:   childRefs(answer.TopChilds),
		}
		strategy = "domain"
	} else {
		result := o.fallback.Resolve(ctx, question, classification.PrimaryLabel)
		resp = Response{
			Answer:      result.Answer,
			ServiceName: classification.PrimaryLabel,
			TopParents:  []EntityRef{},
			TopChilds:   []ChildRef{},
		}
		strategy = result.Strategy
		metrics.FallbackTotal.WithLabelValues(result.Strategy).Inc()
	}

	elapsed := time.Since(started)
	metrics.QueryTotal.WithLabelValues(resp.ServiceName).Inc()
	metrics.QueryDuration.WithLabelValues(resp.ServiceName).Observe(elapsed.Seconds())

	o.logRequest(req, userID, question, resp, classification, strategy, elapsed)
	o.storeResponse(ctx, questionHash, resp)

	logger.Info("Query handled",
		zap.String("service", resp.ServiceName),
		zap.String("label", classification.PrimaryLabel),
		zap.Float64("confidence", classification.Confidence),
		zap.String("strategy", strategy),
		zap.Duration("elapsed", elapsed),
	)

	return resp
}

func (o *Orchestrator) cachedResponse(ctx context.Context, questionHash string) (Response, bool) {
	if o.cache == nil {
		return Response{}, false
	}

	var resp Response
	hit, err := o.cache.GetResponse(ctx, questionHash, &resp)
	if err != nil {
		logger.Warn("Response cache lookup failed", zap.Error(err))
		return Response{}, false
	}
	if !hit {
		metrics.CacheMisses.WithLabelValues("response").Inc()
		return Response{}, false
	}

	metrics.CacheHits.WithLabelValues("response").Inc()
	return resp, true
}

func (o *Orchestrator) storeResponse(ctx context.Context, questionHash string, resp Response) {
	if o.cache == nil {
		return
	}
	if err := o.cache.SetResponse(ctx, questionHash, &resp, o.cacheTTL); err != nil {
		logger.Warn("Response cache store failed", zap.Error(err))
	}
}

func (o *Orchestrator) logRequest(req Request, userID, question string, resp Response, cls classifier.Classification, strategy string, elapsed time.Duration) {
	if o.requestLog == nil {
		return
	}

	record := &models.RequestLog{
		ID:           uuid.New().String(),
		UserID:       userID,
		SessionID:    req.SessionID,
		Question:     question,
		Answer:       resp.Answer,
		ServiceName:  resp.ServiceName,
		ContextLabel: cls.PrimaryLabel,
		Confidence:   cls.Confidence,
		Strategy:     strategy,
		LatencyMS:    int(elapsed.Milliseconds()),
		CreatedAt:    time.Now().UTC(),
	}

	if err := o.requestLog.InsertRequestLog(record); err != nil {
		logger.Warn("Failed to write request log", zap.Error(err))
	}
}

func parentRefs(parents []rag.ParentMatch) []EntityRef {
	refs := make([]EntityRef, 0, len(parents))
	for _, p := range parents {
		refs = append(refs, EntityRef{
			ID:   p.Payload.String("id"),
			Name: p.Payload.String("name"),
		})
	}
	return refs
}

func childRefs(childs []rag.ChildMatch) []ChildRef {
	refs := make([]ChildRef, 0, len(childs))
	for _, c := range childs {
		refs = append(refs, ChildRef{
			ID:       c.Payload.String("id"),
			Name:     c.Payload.String("name"),
			ParentID: c.ParentID,
		})
	}
	return refs
}

func hashQuestion(question string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(question)))
	return hex.EncodeToString(sum[:])
}
