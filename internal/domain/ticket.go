package domain

import "time"

// Bucket identifies the department category that owns a ticket.
type Bucket string

const (
	BucketUnderwriting Bucket = "underwriting"
	BucketFinance      Bucket = "finance"
	BucketOperations   Bucket = "operations"
	BucketProduct      Bucket = "product"
	BucketEngagement   Bucket = "engagement"
)

// BucketCatchAll receives submissions that match no keyword or code.
const BucketCatchAll = BucketOperations

// BucketOrder is the fixed bucket order used for keyword-score tie-breaks.
func BucketOrder() []Bucket {
	return []Bucket{
		BucketUnderwriting,
		BucketFinance,
		BucketOperations,
		BucketProduct,
		BucketEngagement,
	}
}

// DisplayName returns the human-readable bucket label.
func (b Bucket) DisplayName() string {
	switch b {
	case BucketUnderwriting:
		return "Underwriting"
	case BucketFinance:
		return "Finance & Commissions"
	case BucketOperations:
		return "Operations"
	case BucketProduct:
		return "Product"
	case BucketEngagement:
		return "Agent Engagement"
	default:
		return string(b)
	}
}

// IsValid reports whether b is a known bucket.
func (b Bucket) IsValid() bool {
	switch b {
	case BucketUnderwriting, BucketFinance, BucketOperations, BucketProduct, BucketEngagement:
		return true
	}
	return false
}

// TicketPriority enumerates SLA urgency tiers.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "low"
	TicketPriorityMedium   TicketPriority = "medium"
	TicketPriorityHigh     TicketPriority = "high"
	TicketPriorityCritical TicketPriority = "critical"
)

// Sentiment tags the emotional tone detected in a submission.
type Sentiment string

const (
	SentimentNeutral    Sentiment = "neutral"
	SentimentFrustrated Sentiment = "frustrated"
	SentimentPositive   Sentiment = "positive"
)

// Channel records how a submission reached the platform.
type Channel string

const (
	ChannelChat  Channel = "chat"
	ChannelVoice Channel = "voice"
	ChannelWeb   Channel = "web"
	ChannelAPI   Channel = "api"
)

// TicketStatus enumerates lifecycle states for feedback tickets.
type TicketStatus string

const (
	TicketStatusReceived        TicketStatus = "received"
	TicketStatusRouted          TicketStatus = "routed"
	TicketStatusPendingAdm      TicketStatus = "pending_adm"
	TicketStatusResponded       TicketStatus = "responded"
	TicketStatusScriptGenerated TicketStatus = "script_generated"
	TicketStatusScriptSent      TicketStatus = "script_sent"
	TicketStatusClosed          TicketStatus = "closed"
)

// Ticket is the aggregate for one routed piece of field feedback.
type Ticket struct {
	ID               string
	TicketNumber     string
	SubmitterID      string
	SubjectID        string
	Channel          Channel
	Bucket           Bucket
	ReasonCode       string
	SecondaryReasons []string
	Confidence       float64
	Summary          string
	RawText          string
	Priority         TicketPriority
	UrgencyScore     int
	ChurnRisk        string
	Sentiment        Sentiment
	SLAHours         int
	SLADeadline      time.Time
	Status           TicketStatus
	ResponseText     *string
	ResponseBy       *string
	RespondedAt      *time.Time
	ScriptText       *string
	ScriptSentAt     *time.Time
	ParentTicketID   *string
	RelatedTicketIDs []string
	MergedCount      int
	VoiceNoteRef     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AllReasonCodes returns the primary plus secondary codes, primary first.
func (t *Ticket) AllReasonCodes() []string {
	codes := make([]string, 0, len(t.SecondaryReasons)+1)
	if t.ReasonCode != "" {
		codes = append(codes, t.ReasonCode)
	}
	codes = append(codes, t.SecondaryReasons...)
	return codes
}

// IsOpen reports whether the ticket is in any non-closed state.
func (t *Ticket) IsOpen() bool {
	return t.Status != TicketStatusClosed
}
