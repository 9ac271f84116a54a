package domain

// Classification is the routing outcome of one submission.
type Classification struct {
	Bucket           Bucket
	ReasonCode       string
	SecondaryReasons []string
	Confidence       float64
	Priority         TicketPriority
	UrgencyScore     int
	ChurnRisk        string
	Sentiment        Sentiment
	Summary          string
	MultiBucket      bool
	// BucketCodes partitions explicit codes by their owning bucket when
	// MultiBucket is true. Empty for single-bucket classifications.
	BucketCodes map[Bucket][]string
}
