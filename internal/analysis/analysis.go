// Package analysis runs the fire-and-forget AI analysis task referenced by
// the Provider Webhook Ingress (§9 Design Notes): once a call completes
// with a transcript, it derives sentiment, topics, and a score, subject to
// the per-tenant AI-builder rate limits of §5.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/passthekeys/outbound-core/internal/apperr"
	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/ratelimit"
	"github.com/passthekeys/outbound-core/pkg/httpx"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"go.uber.org/zap"
)

// QueueDepth bounds how many analysis jobs can be pending before new
// enqueue calls are dropped; a full queue means analysis is falling behind
// call volume and backpressure should not block webhook acknowledgment.
const QueueDepth = 256

const anthropicModel = "claude-3-5-haiku-20241022"

type job struct {
	tenantID string
	callID   string
}

// Store is the persistence seam Queue needs.
type Store interface {
	GetCallByID(ctx context.Context, id string) (*domain.Call, error)
	UpdateCallAnalysis(ctx context.Context, callID string, sentiment *string, topics domain.JSONB, score *float64) error
}

// Queue implements webhook.AnalysisQueue with a single background worker
// draining a buffered channel, so Enqueue never blocks the HTTP response
// that triggered it.
type Queue struct {
	store   Store
	limiter *ratelimit.Limiter
	http    *resty.Client
	apiKey  string
	jobs    chan job
}

// New returns a Queue. If apiKey is empty, jobs are drained and dropped
// without calling out, so the core still functions with AI analysis
// disabled.
func New(store Store, limiter *ratelimit.Limiter, apiKey string) *Queue {
	q := &Queue{
		store:   store,
		limiter: limiter,
		http: httpx.New("https://api.anthropic.com", 20*time.Second,
			httpx.WithHeader("anthropic-version", "2023-06-01")),
		apiKey: apiKey,
		jobs:   make(chan job, QueueDepth),
	}
	go q.run()
	return q
}

// Enqueue satisfies webhook.AnalysisQueue.
func (q *Queue) Enqueue(tenantID, callID string) {
	select {
	case q.jobs <- job{tenantID: tenantID, callID: callID}:
	default:
		logger.Base().Warn("analysis queue full, dropping job", zap.String("call_id", callID))
	}
}

func (q *Queue) run() {
	for j := range q.jobs {
		q.process(context.Background(), j)
	}
}

func (q *Queue) process(ctx context.Context, j job) {
	if q.apiKey == "" {
		return
	}

	if q.limiter != nil {
		result, err := q.limiter.Allow(ctx, j.tenantID)
		if err != nil {
			logger.Base().Error("analysis rate limit check failed", zap.Error(err))
			return
		}
		if !result.Allowed {
			logger.Base().Info("analysis skipped by rate limit",
				zap.String("tenant_id", j.tenantID), zap.Bool("daily_exceeded", result.DailyExceeded))
			return
		}
	}

	call, err := q.store.GetCallByID(ctx, j.callID)
	if err != nil {
		logger.Base().Error("analysis failed to load call", zap.Error(err))
		return
	}
	if call.Transcript == "" {
		return
	}

	result, err := q.analyze(ctx, call.Transcript)
	if err != nil {
		logger.Base().Error("analysis request failed", zap.String("call_id", call.ID), zap.Error(err))
		return
	}

	if err := q.store.UpdateCallAnalysis(ctx, call.ID, &result.Sentiment, result.topicsJSONB(), &result.Score); err != nil {
		logger.Base().Error("analysis failed to persist result", zap.String("call_id", call.ID), zap.Error(err))
	}
}

// analysisResult is the structured shape the model is asked to return.
type analysisResult struct {
	Sentiment string   `json:"sentiment"`
	Topics    []string `json:"topics"`
	Score     float64  `json:"score"`
}

func (r analysisResult) topicsJSONB() domain.JSONB {
	return domain.JSONB{"topics": r.Topics}
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type anthropicResponse struct {
	Content []anthropicContentBlock `json:"content"`
}

func (q *Queue) analyze(ctx context.Context, transcript string) (*analysisResult, error) {
	prompt := "Analyze this call transcript and respond with only a JSON object " +
		`of the shape {"sentiment": "positive|neutral|negative", "topics": ["..."], "score": 0.0-1.0}.` +
		"\n\nTranscript:\n" + transcript

	var raw anthropicResponse
	resp, err := q.http.R().
		SetContext(ctx).
		SetHeader("x-api-key", q.apiKey).
		SetHeader("content-type", "application/json").
		SetBody(anthropicRequest{
			Model:     anthropicModel,
			MaxTokens: 256,
			Messages:  []anthropicMessage{{Role: "user", Content: prompt}},
		}).
		SetResult(&raw).
		Post("/v1/messages")
	if err != nil {
		return nil, apperr.UpstreamRetryableError("anthropic request failed", err)
	}
	if !resp.IsSuccess() {
		if resp.StatusCode() == 429 || resp.StatusCode() >= 500 {
			return nil, apperr.UpstreamRetryableError(fmt.Sprintf("anthropic request returned %d", resp.StatusCode()), nil)
		}
		return nil, apperr.UpstreamFatalError(fmt.Sprintf("anthropic request returned %d", resp.StatusCode()), nil)
	}
	if len(raw.Content) == 0 {
		return nil, apperr.UpstreamFatalError("anthropic response had no content blocks", nil)
	}

	var result analysisResult
	if err := json.Unmarshal([]byte(raw.Content[0].Text), &result); err != nil {
		return nil, apperr.UpstreamFatalError("anthropic response was not valid JSON", err)
	}
	return &result, nil
}
