package domain

// ReasonTaxonomyEntry is externally owned reference data mapping a
// reason code to its bucket, display name and default SLA budget.
// Read-only from this service's perspective.
type ReasonTaxonomyEntry struct {
	Code            string
	Bucket          Bucket
	DisplayName     string
	DefaultSLAHours int
}
