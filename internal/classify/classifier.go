package classify

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/llm"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
)

// Classifier turns raw text and/or explicit reason codes into a routing
// decision. Classify never returns an error: an unavailable or failing
// AI path always resolves to the deterministic keyword fallback.
type Classifier struct {
	taxonomy *taxonomy.Repository
	llm      llm.Client
	logger   *zap.Logger
}

// New builds a classifier.
func New(taxonomyRepo *taxonomy.Repository, llmClient llm.Client, logger *zap.Logger) *Classifier {
	return &Classifier{taxonomy: taxonomyRepo, llm: llmClient, logger: logger}
}

// Classify routes one submission. Explicit codes take precedence over
// free text; codes must already be validated against the taxonomy.
func (c *Classifier) Classify(ctx context.Context, rawText string, explicitCodes []string, subjectContext string) domain.Classification {
	if len(explicitCodes) > 0 {
		return c.classifyExplicit(explicitCodes, subjectContext)
	}
	if result := c.classifyAI(ctx, rawText, subjectContext); result != nil {
		return *result
	}
	return c.classifyKeywords(rawText)
}

// classifyExplicit is fully deterministic: the first code's bucket wins,
// remaining codes become secondary, and three or more selected codes
// escalate priority.
func (c *Classifier) classifyExplicit(codes []string, subjectContext string) domain.Classification {
	bucketCodes := map[domain.Bucket][]string{}
	for _, code := range codes {
		bucket, ok := c.taxonomy.BucketOf(code)
		if !ok {
			bucket = domain.BucketCatchAll
		}
		bucketCodes[bucket] = append(bucketCodes[bucket], code)
	}

	primaryBucket, _ := c.taxonomy.BucketOf(codes[0])
	if primaryBucket == "" {
		primaryBucket = domain.BucketCatchAll
	}

	priority := domain.TicketPriorityMedium
	if len(codes) >= 3 {
		priority = domain.TicketPriorityHigh
	}

	names := make([]string, 0, len(codes))
	for _, code := range codes {
		names = append(names, c.taxonomy.DisplayName(code))
	}
	summary := strings.TrimSpace(fmt.Sprintf("%s: %s", subjectContext, strings.Join(names, "; ")))
	if subjectContext == "" {
		summary = strings.Join(names, "; ")
	}

	return domain.Classification{
		Bucket:           primaryBucket,
		ReasonCode:       codes[0],
		SecondaryReasons: codes[1:],
		Confidence:       1.0,
		Priority:         priority,
		UrgencyScore:     urgencyFor(priority),
		ChurnRisk:        "unknown",
		Sentiment:        domain.SentimentNeutral,
		Summary:          summary,
		MultiBucket:      len(bucketCodes) > 1,
		BucketCodes:      bucketCodes,
	}
}

// classifyAI attempts the constrained AI classification. Returns nil on
// any failure or out-of-range answer so the caller falls back.
func (c *Classifier) classifyAI(ctx context.Context, rawText, subjectContext string) *domain.Classification {
	if c.llm == nil || strings.TrimSpace(rawText) == "" {
		return nil
	}

	codesByBucket := map[string][]string{}
	buckets := make([]string, 0, len(domain.BucketOrder()))
	for _, bucket := range domain.BucketOrder() {
		buckets = append(buckets, string(bucket))
		for _, entry := range c.taxonomy.CodesForBucket(bucket) {
			codesByBucket[string(bucket)] = append(codesByBucket[string(bucket)], entry.Code)
		}
	}

	result, err := c.llm.Classify(ctx, llm.ClassifyRequest{
		Text:           rawText,
		SubjectContext: subjectContext,
		Buckets:        buckets,
		CodesByBucket:  codesByBucket,
	})
	if err != nil {
		c.logger.Warn("ai classification failed; using keyword fallback", zap.Error(err))
		return nil
	}

	bucket := domain.Bucket(result.Bucket)
	if !bucket.IsValid() {
		c.logger.Warn("ai returned unknown bucket; using keyword fallback", zap.String("bucket", result.Bucket))
		return nil
	}
	codeBucket, known := c.taxonomy.BucketOf(result.ReasonCode)
	if !known || codeBucket != bucket {
		c.logger.Warn("ai returned out-of-range reason code; using keyword fallback",
			zap.String("code", result.ReasonCode))
		return nil
	}

	priority := domain.TicketPriority(result.Priority)
	switch priority {
	case domain.TicketPriorityLow, domain.TicketPriorityMedium, domain.TicketPriorityHigh, domain.TicketPriorityCritical:
	default:
		priority = domain.TicketPriorityMedium
	}
	sentiment := domain.Sentiment(result.Sentiment)
	switch sentiment {
	case domain.SentimentNeutral, domain.SentimentFrustrated, domain.SentimentPositive:
	default:
		sentiment = domain.SentimentNeutral
	}
	urgency := result.UrgencyScore
	if urgency < 0 || urgency > 10 {
		urgency = urgencyFor(priority)
	}
	confidence := result.Confidence
	if confidence < 0 || confidence > 1 {
		confidence = 0.5
	}

	return &domain.Classification{
		Bucket:       bucket,
		ReasonCode:   result.ReasonCode,
		Confidence:   confidence,
		Priority:     priority,
		UrgencyScore: urgency,
		ChurnRisk:    result.ChurnRisk,
		Sentiment:    sentiment,
		Summary:      result.Summary,
	}
}

// classifyKeywords is the deterministic fallback scorer.
func (c *Classifier) classifyKeywords(rawText string) domain.Classification {
	text := strings.ToLower(rawText)

	best := domain.BucketCatchAll
	bestScore := 0
	for _, bucket := range domain.BucketOrder() {
		score := 0
		for _, keyword := range bucketKeywords[bucket] {
			score += strings.Count(text, keyword)
		}
		if score > bestScore {
			best = bucket
			bestScore = score
		}
	}

	sentiment := domain.SentimentNeutral
	for _, keyword := range negativeAffectKeywords {
		if strings.Contains(text, keyword) {
			sentiment = domain.SentimentFrustrated
			break
		}
	}

	priority := domain.TicketPriorityMedium
	churnRisk := "low"
	for _, keyword := range attritionKeywords {
		if strings.Contains(text, keyword) {
			priority = domain.TicketPriorityHigh
			churnRisk = "high"
			break
		}
	}

	reasonCode := ""
	if entries := c.taxonomy.CodesForBucket(best); len(entries) > 0 {
		reasonCode = entries[0].Code
	}

	summary := truncateSummary(strings.TrimSpace(rawText), 140)

	confidence := 0.4
	if bestScore > 0 {
		confidence = 0.6
	}

	return domain.Classification{
		Bucket:       best,
		ReasonCode:   reasonCode,
		Confidence:   confidence,
		Priority:     priority,
		UrgencyScore: urgencyFor(priority),
		ChurnRisk:    churnRisk,
		Sentiment:    sentiment,
		Summary:      summary,
	}
}

// truncateSummary caps a summary at max runes, cutting on a rune
// boundary so multi-byte text stays valid UTF-8.
func truncateSummary(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func urgencyFor(priority domain.TicketPriority) int {
	switch priority {
	case domain.TicketPriorityCritical:
		return 9
	case domain.TicketPriorityHigh:
		return 7
	case domain.TicketPriorityMedium:
		return 5
	default:
		return 3
	}
}
