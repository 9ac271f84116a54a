package classify_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/classify"
	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/llm"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
)

type stubSource struct {
	entries []domain.ReasonTaxonomyEntry
}

func (s *stubSource) ListAll(ctx context.Context) ([]domain.ReasonTaxonomyEntry, error) {
	return s.entries, nil
}

type stubLLM struct {
	classifyResult *llm.ClassifyResult
	classifyErr    error
	script         string
	scriptErr      error
}

func (s *stubLLM) Classify(ctx context.Context, req llm.ClassifyRequest) (*llm.ClassifyResult, error) {
	return s.classifyResult, s.classifyErr
}

func (s *stubLLM) GenerateScript(ctx context.Context, req llm.ScriptRequest) (string, error) {
	return s.script, s.scriptErr
}

func testTaxonomy(t *testing.T) *taxonomy.Repository {
	t.Helper()
	repo := taxonomy.NewRepository(&stubSource{entries: []domain.ReasonTaxonomyEntry{
		{Code: "UW-01", Bucket: domain.BucketUnderwriting, DisplayName: "Policy application stalled"},
		{Code: "UW-06", Bucket: domain.BucketUnderwriting, DisplayName: "Endorsement not processed"},
		{Code: "FIN-01", Bucket: domain.BucketFinance, DisplayName: "Commission not paid"},
		{Code: "OPS-01", Bucket: domain.BucketOperations, DisplayName: "No response from agent"},
		{Code: "ENG-04", Bucket: domain.BucketEngagement, DisplayName: "Considering leaving the network"},
	}}, zap.NewNop())
	require.NoError(t, repo.Load(context.Background()))
	return repo
}

func TestClassifyExplicitCodes(t *testing.T) {
	c := classify.New(testTaxonomy(t), nil, zap.NewNop())
	ctx := context.Background()

	t.Run("single code is deterministic", func(t *testing.T) {
		cls := c.Classify(ctx, "", []string{"UW-01"}, "Feedback about agent-7")

		assert.Equal(t, domain.BucketUnderwriting, cls.Bucket)
		assert.Equal(t, "UW-01", cls.ReasonCode)
		assert.Empty(t, cls.SecondaryReasons)
		assert.Equal(t, 1.0, cls.Confidence)
		assert.Equal(t, domain.TicketPriorityMedium, cls.Priority)
		assert.False(t, cls.MultiBucket)
		assert.Contains(t, cls.Summary, "Policy application stalled")
	})

	t.Run("first code's bucket wins", func(t *testing.T) {
		cls := c.Classify(ctx, "", []string{"FIN-01", "UW-01"}, "")

		assert.Equal(t, domain.BucketFinance, cls.Bucket)
		assert.Equal(t, "FIN-01", cls.ReasonCode)
		assert.Equal(t, []string{"UW-01"}, cls.SecondaryReasons)
		assert.True(t, cls.MultiBucket)
	})

	t.Run("codes partition by bucket", func(t *testing.T) {
		cls := c.Classify(ctx, "", []string{"UW-01", "UW-06", "FIN-01"}, "")

		assert.True(t, cls.MultiBucket)
		assert.Equal(t, []string{"UW-01", "UW-06"}, cls.BucketCodes[domain.BucketUnderwriting])
		assert.Equal(t, []string{"FIN-01"}, cls.BucketCodes[domain.BucketFinance])
	})

	t.Run("three or more codes escalate priority", func(t *testing.T) {
		two := c.Classify(ctx, "", []string{"UW-01", "UW-06"}, "")
		three := c.Classify(ctx, "", []string{"UW-01", "UW-06", "FIN-01"}, "")

		assert.Equal(t, domain.TicketPriorityMedium, two.Priority)
		assert.Equal(t, domain.TicketPriorityHigh, three.Priority)
	})
}

func TestClassifyAI(t *testing.T) {
	ctx := context.Background()

	t.Run("valid answer is used", func(t *testing.T) {
		ai := &stubLLM{classifyResult: &llm.ClassifyResult{
			Bucket:       "finance",
			ReasonCode:   "FIN-01",
			Confidence:   0.9,
			Priority:     "high",
			UrgencyScore: 8,
			ChurnRisk:    "medium",
			Sentiment:    "frustrated",
			Summary:      "Commission missing for March",
		}}
		c := classify.New(testTaxonomy(t), ai, zap.NewNop())

		cls := c.Classify(ctx, "my commission for march never arrived", nil, "")
		assert.Equal(t, domain.BucketFinance, cls.Bucket)
		assert.Equal(t, "FIN-01", cls.ReasonCode)
		assert.Equal(t, domain.TicketPriorityHigh, cls.Priority)
		assert.Equal(t, domain.SentimentFrustrated, cls.Sentiment)
		assert.Equal(t, 0.9, cls.Confidence)
	})

	t.Run("failure falls back to keywords", func(t *testing.T) {
		ai := &stubLLM{classifyErr: errors.New("timeout")}
		c := classify.New(testTaxonomy(t), ai, zap.NewNop())

		cls := c.Classify(ctx, "my commission payout is missing", nil, "")
		assert.Equal(t, domain.BucketFinance, cls.Bucket)
		assert.Equal(t, 0.6, cls.Confidence)
	})

	t.Run("out-of-range code falls back to keywords", func(t *testing.T) {
		ai := &stubLLM{classifyResult: &llm.ClassifyResult{Bucket: "finance", ReasonCode: "UW-01"}}
		c := classify.New(testTaxonomy(t), ai, zap.NewNop())

		cls := c.Classify(ctx, "commission payment issue", nil, "")
		assert.Equal(t, domain.BucketFinance, cls.Bucket)
		assert.Equal(t, "FIN-01", cls.ReasonCode)
	})

	t.Run("unknown bucket falls back to keywords", func(t *testing.T) {
		ai := &stubLLM{classifyResult: &llm.ClassifyResult{Bucket: "legal", ReasonCode: "FIN-01"}}
		c := classify.New(testTaxonomy(t), ai, zap.NewNop())

		cls := c.Classify(ctx, "commission payment issue", nil, "")
		assert.Equal(t, domain.BucketFinance, cls.Bucket)
	})
}

func TestClassifyKeywords(t *testing.T) {
	c := classify.New(testTaxonomy(t), nil, zap.NewNop())
	ctx := context.Background()

	t.Run("keyword hits pick the bucket", func(t *testing.T) {
		cls := c.Classify(ctx, "the underwriting decision delay on my proposal is unacceptable", nil, "")
		assert.Equal(t, domain.BucketUnderwriting, cls.Bucket)
		assert.Equal(t, "UW-01", cls.ReasonCode)
		assert.Equal(t, 0.6, cls.Confidence)
	})

	t.Run("no hits land in the catch-all", func(t *testing.T) {
		cls := c.Classify(ctx, "something vague went wrong yesterday", nil, "")
		assert.Equal(t, domain.BucketCatchAll, cls.Bucket)
		assert.Equal(t, 0.4, cls.Confidence)
	})

	t.Run("negative affect flips sentiment", func(t *testing.T) {
		cls := c.Classify(ctx, "I am extremely frustrated with the commission statement", nil, "")
		assert.Equal(t, domain.SentimentFrustrated, cls.Sentiment)
	})

	t.Run("attrition wording escalates priority and churn risk", func(t *testing.T) {
		cls := c.Classify(ctx, "if this keeps up I will quit the network", nil, "")
		assert.Equal(t, domain.TicketPriorityHigh, cls.Priority)
		assert.Equal(t, "high", cls.ChurnRisk)
	})

	t.Run("long text is truncated into the summary", func(t *testing.T) {
		long := make([]byte, 300)
		for i := range long {
			long[i] = 'a'
		}
		cls := c.Classify(ctx, string(long), nil, "")
		assert.LessOrEqual(t, len(cls.Summary), 140)
	})

	t.Run("truncation keeps multi-byte text valid", func(t *testing.T) {
		long := strings.Repeat("ü", 300)
		cls := c.Classify(ctx, long, nil, "")
		assert.True(t, utf8.ValidString(cls.Summary))
		assert.LessOrEqual(t, utf8.RuneCountInString(cls.Summary), 140)
		assert.True(t, strings.HasSuffix(cls.Summary, "..."))
	})
}
