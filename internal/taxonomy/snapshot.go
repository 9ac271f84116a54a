package taxonomy

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/fieldlink/feedback-engine/internal/domain"
	"github.com/fieldlink/feedback-engine/internal/repository"
)

// Repository serves the reason-code taxonomy from an in-memory snapshot
// that is reloaded on a schedule. It replaces a module-level cache with
// an injected object so the reload policy is explicit.
type Repository struct {
	source repository.TaxonomyRepository
	logger *zap.Logger

	mu       sync.RWMutex
	byCode   map[string]domain.ReasonTaxonomyEntry
	byBucket map[domain.Bucket][]domain.ReasonTaxonomyEntry

	cron *cron.Cron
}

// NewRepository builds the snapshot repository. Call Load before use.
func NewRepository(source repository.TaxonomyRepository, logger *zap.Logger) *Repository {
	return &Repository{
		source:   source,
		logger:   logger,
		byCode:   map[string]domain.ReasonTaxonomyEntry{},
		byBucket: map[domain.Bucket][]domain.ReasonTaxonomyEntry{},
	}
}

// Load replaces the snapshot with fresh reference data.
func (r *Repository) Load(ctx context.Context) error {
	entries, err := r.source.ListAll(ctx)
	if err != nil {
		return err
	}

	byCode := make(map[string]domain.ReasonTaxonomyEntry, len(entries))
	byBucket := make(map[domain.Bucket][]domain.ReasonTaxonomyEntry)
	for _, entry := range entries {
		byCode[entry.Code] = entry
		byBucket[entry.Bucket] = append(byBucket[entry.Bucket], entry)
	}

	r.mu.Lock()
	r.byCode = byCode
	r.byBucket = byBucket
	r.mu.Unlock()

	r.logger.Info("taxonomy snapshot loaded", zap.Int("codes", len(entries)))
	return nil
}

// StartAutoReload schedules periodic reloads using a cron spec.
func (r *Repository) StartAutoReload(spec string) error {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := r.Load(ctx); err != nil {
			r.logger.Error("taxonomy reload failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	c.Start()
	r.cron = c
	return nil
}

// Stop halts the reload schedule.
func (r *Repository) Stop() {
	if r.cron != nil {
		r.cron.Stop()
	}
}

// Lookup returns the taxonomy entry for a code.
func (r *Repository) Lookup(code string) (domain.ReasonTaxonomyEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.byCode[code]
	return entry, ok
}

// BucketOf returns the owning bucket of a code.
func (r *Repository) BucketOf(code string) (domain.Bucket, bool) {
	entry, ok := r.Lookup(code)
	if !ok {
		return "", false
	}
	return entry.Bucket, true
}

// DisplayName returns the human label for a code, falling back to the code itself.
func (r *Repository) DisplayName(code string) string {
	if entry, ok := r.Lookup(code); ok {
		return entry.DisplayName
	}
	return code
}

// CodesForBucket lists the known codes owned by a bucket.
func (r *Repository) CodesForBucket(bucket domain.Bucket) []domain.ReasonTaxonomyEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]domain.ReasonTaxonomyEntry{}, r.byBucket[bucket]...)
}
