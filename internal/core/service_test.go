package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// mediumEmail scores notes-*.pdf attachments at 63: 8 + 30 + 20 + 5.
var mediumEmail = EmailContext{SenderAddress: "hr@acme.io", Subject: "Applying", AttachmentCount: 1}

func pdf(id, filename string) AttachmentMetadata {
	return AttachmentMetadata{ID: id, Filename: filename, MimeType: "application/pdf", SizeBytes: 10 << 10}
}

func docLoader(loads *atomic.Int32) ContentLoader {
	return ContentLoaderFunc(func(_ context.Context, att AttachmentMetadata) ([]byte, error) {
		if loads != nil {
			loads.Add(1)
		}
		return []byte(longText("DOC-" + att.ID)), nil
	})
}

func newTestService(llm LLMClient, logger *zap.Logger, opts ...ServiceOption) *DetectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewDetectionService(newTestClassifier(llm, logger), nil, logger, opts...)
}

func TestRunPreservesOrderUnderOutOfOrderCompletion(t *testing.T) {
	delays := map[string]time.Duration{"DOC-a": 60 * time.Millisecond, "DOC-b": 30 * time.Millisecond}
	var (
		mu        sync.Mutex
		completed []string
	)
	llm := &fakeLLM{complete: func(_ context.Context, prompt string) (string, error) {
		for marker, d := range delays {
			if strings.Contains(prompt, marker) {
				time.Sleep(d)
			}
		}
		mu.Lock()
		for _, id := range []string{"a", "b", "c"} {
			if strings.Contains(prompt, "DOC-"+id+" ") {
				completed = append(completed, id)
			}
		}
		mu.Unlock()
		return matchJSON, nil
	}}
	svc := newTestService(llm, nil)
	p := newTestPolicy(t)

	attachments := []AttachmentMetadata{pdf("a", "notes-a.pdf"), pdf("b", "notes-b.pdf"), pdf("c", "notes-c.pdf")}
	summary, err := svc.Run(context.Background(), mediumEmail, attachments, docLoader(nil), p)
	require.NoError(t, err)

	require.Len(t, summary.Results, 3)
	for i, r := range summary.Results {
		assert.Equal(t, attachments[i].ID, r.Attachment.ID)
		assert.Equal(t, StateClassified, r.State)
		assert.Equal(t, BandMedium, r.Band)
		assert.Equal(t, 63, r.Stage2.Total)
		require.NotNil(t, r.AIVerdict)
		assert.InDelta(t, 90, r.FinalConfidence, 1e-9)
		assert.True(t, r.IsMatch)
	}
	assert.Equal(t, []string{"c", "b", "a"}, completed)

	assert.True(t, summary.Detected)
	require.NotNil(t, summary.BestResult)
	assert.Equal(t, "a", summary.BestResult.Attachment.ID)
	assert.Equal(t, "test", summary.Policy)
	assert.NotEmpty(t, summary.ID)
}

func TestRunPartitionsByBand(t *testing.T) {
	llm := &fakeLLM{complete: respond(`{"isMatch": false, "confidence": 0.2, "reason": "a report", "insufficientText": false}`)}
	var loads atomic.Int32
	svc := newTestService(llm, nil)
	p := newTestPolicy(t)

	email := EmailContext{SenderAddress: "hr@acme.io", Subject: "hello", AttachmentCount: 4}
	attachments := []AttachmentMetadata{
		pdf("high", "resume.pdf"),      // 40 + 5 + 20 + 5 = 70
		pdf("medium", "candidate.pdf"), // 25 + 5 + 20 + 5 = 55
		pdf("low", "notes.pdf"),        // 8 + 5 + 20 + 5 = 38
		{ID: "png", Filename: "photo.png", MimeType: "image/png", SizeBytes: 10 << 10},
	}

	summary, err := svc.Run(context.Background(), email, attachments, docLoader(&loads), p)
	require.NoError(t, err)
	require.True(t, summary.ShouldProcess)
	require.Len(t, summary.Results, 4)

	high, medium, low, png := summary.Results[0], summary.Results[1], summary.Results[2], summary.Results[3]

	assert.Equal(t, StateAcceptedHigh, high.State)
	assert.Equal(t, BandHigh, high.Band)
	assert.InDelta(t, 70, high.FinalConfidence, 1e-9)
	assert.True(t, high.IsMatch)
	assert.Nil(t, high.AIVerdict)

	assert.Equal(t, StateClassified, medium.State)
	assert.InDelta(t, 31, medium.FinalConfidence, 1e-9)
	assert.False(t, medium.IsMatch)
	require.NotNil(t, medium.AIVerdict)
	assert.Equal(t, "a report", medium.AIVerdict.Reason)

	assert.Equal(t, StateRejectedLow, low.State)
	assert.Equal(t, BandLow, low.Band)
	assert.InDelta(t, 38, low.FinalConfidence, 1e-9)
	assert.False(t, low.IsMatch)

	assert.Equal(t, StateRejectedStage1, png.State)
	assert.Contains(t, png.Reason, "mime type")

	for _, r := range summary.Results {
		assert.True(t, r.State.Terminal(), r.Attachment.ID)
	}

	assert.Len(t, llm.calls(), 1)
	assert.Equal(t, int32(1), loads.Load())
	assert.True(t, summary.Detected)
	require.NotNil(t, summary.BestResult)
	assert.Equal(t, "high", summary.BestResult.Attachment.ID)
}

func TestRunStage1Rejection(t *testing.T) {
	llm := &fakeLLM{complete: respond(matchJSON)}
	var loads atomic.Int32
	svc := newTestService(llm, nil)

	email := EmailContext{SenderAddress: "noreply@jobs.example.com", Subject: "Applying"}
	attachments := []AttachmentMetadata{pdf("a", "resume.pdf"), pdf("b", "notes.pdf")}

	summary, err := svc.Run(context.Background(), email, attachments, docLoader(&loads), newTestPolicy(t))
	require.NoError(t, err)

	assert.False(t, summary.ShouldProcess)
	assert.False(t, summary.Detected)
	assert.Nil(t, summary.BestResult)
	assert.Contains(t, summary.FilterReason, "automated sender")
	for _, r := range summary.Results {
		assert.Equal(t, StateRejectedStage1, r.State)
	}
	assert.Empty(t, llm.calls())
	assert.Zero(t, loads.Load())
}

func TestRunFaultIsolation(t *testing.T) {
	llm := &fakeLLM{complete: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "DOC-c ") {
			return "", errors.New("upstream 503")
		}
		return matchJSON, nil
	}}
	loader := ContentLoaderFunc(func(ctx context.Context, att AttachmentMetadata) ([]byte, error) {
		switch att.ID {
		case "b":
			return nil, errors.New("connection reset")
		case "d":
			panic("loader exploded")
		}
		return docLoader(nil).Load(ctx, att)
	})
	svc := newTestService(llm, nil)

	attachments := []AttachmentMetadata{
		pdf("a", "notes-a.pdf"), pdf("b", "notes-b.pdf"), pdf("c", "notes-c.pdf"), pdf("d", "notes-d.pdf"),
	}
	summary, err := svc.Run(context.Background(), mediumEmail, attachments, loader, newTestPolicy(t))
	require.NoError(t, err)
	require.Len(t, summary.Results, 4)

	a, b, c, d := summary.Results[0], summary.Results[1], summary.Results[2], summary.Results[3]

	assert.True(t, a.IsMatch)
	assert.InDelta(t, 90, a.FinalConfidence, 1e-9)

	require.NotNil(t, b.AIVerdict)
	assert.True(t, b.AIVerdict.InsufficientText)
	assert.InDelta(t, 31.5, b.FinalConfidence, 1e-9)

	require.NotNil(t, c.AIVerdict)
	assert.Equal(t, FallbackVerdict(), *c.AIVerdict)
	assert.InDelta(t, 33, c.FinalConfidence, 1e-9)

	require.NotNil(t, d.AIVerdict)
	assert.Equal(t, FallbackVerdict(), *d.AIVerdict)
	assert.Equal(t, StateClassified, d.State)

	assert.Equal(t, "a", summary.BestResult.Attachment.ID)
}

func TestRunDeadlineFinalizesPendingAttachments(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	llm := &fakeLLM{complete: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "DOC-slow ") {
			<-release
		}
		return matchJSON, nil
	}}
	svc := newTestService(llm, nil, WithDeadline(50*time.Millisecond))

	attachments := []AttachmentMetadata{pdf("fast", "notes-1.pdf"), pdf("slow", "notes-2.pdf")}
	start := time.Now()
	summary, err := svc.Run(context.Background(), mediumEmail, attachments, docLoader(nil), newTestPolicy(t))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)

	fast, slow := summary.Results[0], summary.Results[1]
	assert.InDelta(t, 90, fast.FinalConfidence, 1e-9)
	assert.True(t, fast.IsMatch)

	assert.Equal(t, StateClassified, slow.State)
	require.NotNil(t, slow.AIVerdict)
	assert.True(t, slow.AIVerdict.InsufficientText)
	assert.InDelta(t, 31.5, slow.FinalConfidence, 1e-9)
	assert.False(t, slow.IsMatch)
}

func TestRunBoundsConcurrencyAcrossCalls(t *testing.T) {
	var inFlight, peak atomic.Int32
	llm := &fakeLLM{complete: func(context.Context, string) (string, error) {
		n := inFlight.Add(1)
		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return matchJSON, nil
	}}
	svc := newTestService(llm, nil, WithMaxConcurrency(2))
	p := newTestPolicy(t)

	var attachments []AttachmentMetadata
	for i := 0; i < 6; i++ {
		attachments = append(attachments, pdf(fmt.Sprint(i), fmt.Sprintf("notes-%d.pdf", i)))
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			summary, err := svc.Run(context.Background(), mediumEmail, attachments, docLoader(nil), p)
			assert.NoError(t, err)
			for _, r := range summary.Results {
				assert.True(t, r.IsMatch)
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Greater(t, peak.Load(), int32(0))
	assert.Len(t, llm.calls(), 12)
}

func TestRunCachesVerdicts(t *testing.T) {
	llm := &fakeLLM{complete: respond(matchJSON)}
	cache := newMemoryCache()
	svc := newTestService(llm, nil, WithCache(cache, time.Hour))
	p := newTestPolicy(t)
	attachments := []AttachmentMetadata{pdf("a", "notes.pdf")}

	first, err := svc.Run(context.Background(), mediumEmail, attachments, docLoader(nil), p)
	require.NoError(t, err)
	second, err := svc.Run(context.Background(), mediumEmail, attachments, docLoader(nil), p)
	require.NoError(t, err)

	assert.Len(t, llm.calls(), 1)
	assert.Equal(t, 1, cache.setCount())
	assert.Equal(t, first.Results[0].FinalConfidence, second.Results[0].FinalConfidence)
	assert.Equal(t, first.Results[0].IsMatch, second.Results[0].IsMatch)
}

func TestRunLeadingBlankLinesKeepDistinctCacheKeys(t *testing.T) {
	llm := &fakeLLM{complete: func(_ context.Context, prompt string) (string, error) {
		if strings.Contains(prompt, "resume") {
			return matchJSON, nil
		}
		return `{"isMatch": false, "confidence": 0.95, "reason": "sales report", "insufficientText": false}`, nil
	}}
	cache := newMemoryCache()
	svc := newTestService(llm, nil, WithCache(cache, time.Hour))
	p := newTestPolicy(t)

	texts := map[string]string{
		"a": "\n\n\n" + longText("Jane Doe resume"),
		"b": "\n\n\n" + longText("Quarterly sales figures"),
	}
	loader := ContentLoaderFunc(func(_ context.Context, att AttachmentMetadata) ([]byte, error) {
		return []byte(texts[att.ID]), nil
	})

	docA, err := svc.Run(context.Background(), mediumEmail, []AttachmentMetadata{pdf("a", "notes-a.pdf")}, loader, p)
	require.NoError(t, err)
	docB, err := svc.Run(context.Background(), mediumEmail, []AttachmentMetadata{pdf("b", "notes-b.pdf")}, loader, p)
	require.NoError(t, err)

	assert.True(t, docA.Results[0].IsMatch)
	assert.False(t, docB.Results[0].IsMatch)
	assert.Equal(t, "sales report", docB.Results[0].AIVerdict.Reason)
	assert.Len(t, llm.calls(), 2)
	assert.Equal(t, 2, cache.setCount())
}

func TestRunDoesNotCacheFallbacks(t *testing.T) {
	llm := &fakeLLM{complete: respond("not json")}
	cache := newMemoryCache()
	svc := newTestService(llm, nil, WithCache(cache, time.Hour))

	_, err := svc.Run(context.Background(), mediumEmail, []AttachmentMetadata{pdf("a", "notes.pdf")}, docLoader(nil), newTestPolicy(t))
	require.NoError(t, err)

	assert.Zero(t, cache.setCount())
	assert.Len(t, llm.calls(), 2)
}

func TestRunNilLoaderIsDownloadFailure(t *testing.T) {
	llm := &fakeLLM{complete: respond(matchJSON)}
	svc := newTestService(llm, nil)

	summary, err := svc.Run(context.Background(), mediumEmail, []AttachmentMetadata{pdf("a", "notes.pdf")}, nil, newTestPolicy(t))
	require.NoError(t, err)

	assert.InDelta(t, 31.5, summary.Results[0].FinalConfidence, 1e-9)
	assert.Empty(t, llm.calls())
}

func TestRunRequiresPolicy(t *testing.T) {
	svc := newTestService(&fakeLLM{}, nil)

	summary, err := svc.Run(context.Background(), mediumEmail, nil, nil, nil)
	require.Error(t, err)
	assert.Nil(t, summary)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestRunLogsProcessingID(t *testing.T) {
	obsCore, logs := observer.New(zapcore.InfoLevel)
	llm := &fakeLLM{complete: respond(matchJSON)}
	svc := newTestService(llm, zap.New(obsCore))

	summary, err := svc.Run(context.Background(), mediumEmail, []AttachmentMetadata{pdf("a", "notes.pdf")}, docLoader(nil), newTestPolicy(t))
	require.NoError(t, err)

	entries := logs.FilterMessage("Email processed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, summary.ID, fields["processing_id"])
	assert.Equal(t, "test", fields["policy"])
	assert.Equal(t, true, fields["detected"])
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("resume", "text"), CacheKey("resume", "text"))
	assert.NotEqual(t, CacheKey("resume", "text"), CacheKey("job_description", "text"))
	assert.Len(t, CacheKey("resume", ""), 64)
}
