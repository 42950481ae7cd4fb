package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Service defaults
const (
	DefaultMaxConcurrency = 4
	DefaultDeadline       = 30 * time.Second
	DefaultCacheTTL       = 24 * time.Hour
)

// DetectionService is the core service for attachment classification. One
// service may run any number of policies; the Stage-3 limiter is shared by
// every concurrent Run call.
type DetectionService struct {
	classifier   *Classifier
	extractor    TextExtractor
	cache        CacheRepository
	cacheEnabled bool
	cacheTTL     time.Duration
	limiter      *semaphore.Weighted
	deadline     time.Duration
	logger       *zap.Logger
}

// ServiceOption customizes a DetectionService
type ServiceOption func(*DetectionService)

// WithCache enables verdict caching
func WithCache(cache CacheRepository, ttl time.Duration) ServiceOption {
	return func(s *DetectionService) {
		if cache == nil {
			return
		}
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		s.cache = cache
		s.cacheEnabled = true
		s.cacheTTL = ttl
	}
}

// WithMaxConcurrency bounds the number of in-flight Stage-3 tasks
func WithMaxConcurrency(n int) ServiceOption {
	return func(s *DetectionService) {
		if n > 0 {
			s.limiter = semaphore.NewWeighted(int64(n))
		}
	}
}

// WithDeadline sets the per-email processing deadline. Zero disables it.
func WithDeadline(d time.Duration) ServiceOption {
	return func(s *DetectionService) {
		if d >= 0 {
			s.deadline = d
		}
	}
}

// NewDetectionService creates a new detection service
func NewDetectionService(classifier *Classifier, extractor TextExtractor, logger *zap.Logger, opts ...ServiceOption) *DetectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &DetectionService{
		classifier: classifier,
		extractor:  extractor,
		limiter:    semaphore.NewWeighted(DefaultMaxConcurrency),
		deadline:   DefaultDeadline,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run classifies the attachments of one email under policy. Per-attachment
// failures never surface as errors; only caller contract violations do.
func (s *DetectionService) Run(
	ctx context.Context,
	email EmailContext,
	attachments []AttachmentMetadata,
	loader ContentLoader,
	policy *Policy,
) (*ProcessingSummary, error) {
	if policy == nil {
		return nil, configError("policy", "policy is required")
	}
	if s.classifier == nil {
		return nil, configError("classifier", "detection service has no classifier")
	}

	start := time.Now()
	summary := &ProcessingSummary{
		ID:      uuid.NewString(),
		Policy:  policy.Name,
		Results: make([]DetectionResult, len(attachments)),
	}
	logger := s.logger.With(
		zap.String("processing_id", summary.ID),
		zap.String("policy", policy.Name))

	for i, att := range attachments {
		summary.Results[i] = DetectionResult{Attachment: att, State: StateNew}
	}

	decision := FilterMetadata(email, attachments, policy)
	summary.ShouldProcess = decision.ShouldProcess
	summary.FilterReason = decision.Reason

	if !decision.ShouldProcess {
		for i := range summary.Results {
			summary.Results[i].State = StateRejectedStage1
			summary.Results[i].Reason = decision.Reason
		}
		logger.Info("Email rejected by metadata filter",
			zap.String("sender", email.SenderAddress),
			zap.String("reason", decision.Reason))
		summary.ProcessingTime = time.Since(start)
		return summary, nil
	}

	var pending []int
	for i := range summary.Results {
		r := &summary.Results[i]
		if ok, reason := AdmitAttachment(r.Attachment, policy); !ok {
			r.State = StateRejectedStage1
			r.Reason = reason
			continue
		}

		r.Stage2 = ScoreAttachment(email, r.Attachment, policy)
		r.Band = policy.Band(r.Stage2.Total)
		r.State = StateScored

		switch r.Band {
		case BandHigh:
			r.State = StateAcceptedHigh
			r.FinalConfidence = float64(r.Stage2.Total)
			r.IsMatch = true
			r.Reason = fmt.Sprintf("stage 2 score %d at or above high threshold %d", r.Stage2.Total, policy.HighThreshold)
		case BandLow:
			r.State = StateRejectedLow
			r.FinalConfidence = float64(r.Stage2.Total)
			r.Reason = fmt.Sprintf("stage 2 score %d below low threshold %d", r.Stage2.Total, policy.LowThreshold)
		default:
			r.State = StatePendingAI
			pending = append(pending, i)
		}

		logger.Debug("Attachment scored",
			zap.String("attachment_id", r.Attachment.ID),
			zap.String("filename", r.Attachment.Filename),
			zap.Int("filename_score", r.Stage2.FilenameScore),
			zap.Int("subject_score", r.Stage2.SubjectScore),
			zap.Int("properties_score", r.Stage2.PropertiesScore),
			zap.Int("sender_score", r.Stage2.SenderScore),
			zap.Int("total", r.Stage2.Total),
			zap.String("band", string(r.Band)))
	}

	if len(pending) > 0 {
		verdicts := s.runStage3(ctx, summary.Results, pending, loader, policy, logger)
		for k, idx := range pending {
			r := &summary.Results[idx]
			verdict := verdicts[k]
			if verdict == nil {
				v := InsufficientTextVerdict()
				v.Reason = "processing deadline exceeded"
				verdict = &v
			}
			r.AIVerdict = verdict
			r.FinalConfidence = BlendConfidence(float64(r.Stage2.Total), *verdict, policy)
			r.IsMatch = r.FinalConfidence >= float64(policy.HighThreshold)
			r.State = StateClassified
			r.Reason = fmt.Sprintf("blended confidence %.2f (ai: %s)", r.FinalConfidence, verdict.Reason)
		}
	}

	for i := range summary.Results {
		r := &summary.Results[i]
		if !r.IsMatch {
			continue
		}
		summary.Detected = true
		if summary.BestResult == nil || r.FinalConfidence > summary.BestResult.FinalConfidence {
			summary.BestResult = r
		}
	}

	summary.ProcessingTime = time.Since(start)

	logger.Info("Email processed",
		zap.String("sender", email.SenderAddress),
		zap.Int("attachments", len(attachments)),
		zap.Int("stage3_tasks", len(pending)),
		zap.Bool("detected", summary.Detected),
		zap.Int64("processing_time_ms", summary.ProcessingTimeMs()))

	return summary, nil
}

type stage3Result struct {
	slot    int
	verdict AIVerdict
}

// runStage3 dispatches one task per pending attachment and collects verdicts
// by slot. Slots still empty when the deadline expires are left nil.
func (s *DetectionService) runStage3(
	ctx context.Context,
	results []DetectionResult,
	pending []int,
	loader ContentLoader,
	policy *Policy,
	logger *zap.Logger,
) []*AIVerdict {
	if s.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deadline)
		defer cancel()
	}

	verdicts := make([]*AIVerdict, len(pending))
	ch := make(chan stage3Result, len(pending))

	for slot, idx := range pending {
		att := results[idx].Attachment
		go func(slot int, att AttachmentMetadata) {
			taskLogger := logger.With(zap.String("attachment_id", att.ID))
			defer func() {
				if rec := recover(); rec != nil {
					taskLogger.Error("Stage 3 task panicked", zap.Any("panic", rec))
					ch <- stage3Result{slot: slot, verdict: FallbackVerdict()}
				}
			}()

			if err := s.limiter.Acquire(ctx, 1); err != nil {
				taskLogger.Warn("Stage 3 task not started", zap.Error(err))
				return
			}
			defer s.limiter.Release(1)

			ch <- stage3Result{slot: slot, verdict: s.classifyAttachment(ctx, att, loader, policy, taskLogger)}
		}(slot, att)
	}

	for received := 0; received < len(pending); {
		select {
		case r := <-ch:
			v := r.verdict
			verdicts[r.slot] = &v
			received++
		case <-ctx.Done():
			for {
				select {
				case r := <-ch:
					v := r.verdict
					verdicts[r.slot] = &v
				default:
					logger.Warn("Processing deadline reached, finalizing pending attachments",
						zap.Int("pending", len(pending)-received),
						zap.Error(ctx.Err()))
					return verdicts
				}
			}
		}
	}

	return verdicts
}

// classifyAttachment downloads, extracts and classifies one attachment
func (s *DetectionService) classifyAttachment(
	ctx context.Context,
	att AttachmentMetadata,
	loader ContentLoader,
	policy *Policy,
	logger *zap.Logger,
) AIVerdict {
	if loader == nil {
		logger.Warn("No content loader supplied", zap.Error(ErrDownload))
		return InsufficientTextVerdict()
	}

	data, err := loader.Load(ctx, att)
	if err != nil {
		logger.Warn("Attachment download failed", zap.Error(fmt.Errorf("%w: %w", ErrDownload, err)))
		return InsufficientTextVerdict()
	}

	text := string(data)
	if s.extractor != nil {
		text = s.extractor.Extract(data, att.MimeType)
	}

	page, ok := s.classifier.Prepare(text)
	if !ok {
		logger.Info("Not enough text to classify",
			zap.Int("size", len(data)),
			zap.Error(ErrExtraction))
		return InsufficientTextVerdict()
	}

	key := CacheKey(policy.Name, page)
	if s.cacheEnabled {
		if entry, err := s.cache.Get(ctx, key); err == nil && entry != nil {
			logger.Debug("Cache hit for attachment", zap.String("cache_key", key))
			return entry.Verdict()
		}
	}

	verdict := s.classifier.ClassifyPage(ctx, page, policy)

	if s.cacheEnabled && !IsFallback(verdict) {
		now := time.Now()
		entry := &CacheEntry{
			Key:        key,
			Policy:     policy.Name,
			IsMatch:    verdict.IsMatch,
			Confidence: verdict.Confidence,
			Reason:     verdict.Reason,
			LastSeen:   now,
			ExpiresAt:  now.Add(s.cacheTTL),
		}
		if err := s.cache.Set(ctx, entry); err != nil {
			logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	logger.Debug("Attachment classified",
		zap.Bool("is_match", verdict.IsMatch),
		zap.Float64("confidence", verdict.Confidence),
		zap.String("reason", verdict.Reason))

	return verdict
}

// CacheKey identifies a verdict by policy and prepared page text
func CacheKey(policy, page string) string {
	sum := sha256.Sum256([]byte(policy + "\x00" + page))
	return hex.EncodeToString(sum[:])
}
