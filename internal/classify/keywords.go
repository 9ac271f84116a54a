package classify

import "github.com/fieldlink/feedback-engine/internal/domain"

// bucketKeywords drives the deterministic fallback scorer. Hits are
// counted per bucket over the lower-cased submission text.
var bucketKeywords = map[domain.Bucket][]string{
	domain.BucketUnderwriting: {
		"underwriting", "proposal", "medical", "policy issuance", "issuance",
		"rejection", "rejected", "counter offer", "loading", "pending requirement",
		"requirement", "decision delay", "tele-medical",
	},
	domain.BucketFinance: {
		"commission", "payout", "payment", "incentive", "clawback", "tds",
		"statement", "reconciliation", "bonus", "remuneration", "settlement",
	},
	domain.BucketOperations: {
		"login", "portal", "app", "otp", "onboarding", "document", "kyc",
		"branch", "service request", "system", "error", "technical",
	},
	domain.BucketProduct: {
		"product", "premium", "rider", "benefit", "illustration", "plan",
		"brochure", "feature", "maturity", "surrender",
	},
	domain.BucketEngagement: {
		"training", "support", "contest", "recognition", "communication",
		"relationship", "meeting", "motivation", "engagement",
	},
}

// negativeAffectKeywords flip sentiment to frustrated.
var negativeAffectKeywords = []string{
	"frustrated", "angry", "upset", "disappointed", "fed up", "annoyed",
	"worst", "pathetic", "unacceptable", "terrible",
}

// attritionKeywords escalate priority: the submitter hints at leaving
// or moving business to a competitor.
var attritionKeywords = []string{
	"competitor", "switch", "quit", "leave", "leaving", "other company",
	"better elsewhere", "stop working", "resign",
}
