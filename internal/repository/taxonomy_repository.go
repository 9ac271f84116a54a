package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fieldlink/feedback-engine/internal/domain"
)

// TaxonomyRepository reads the externally owned reason-code taxonomy.
type TaxonomyRepository interface {
	ListAll(ctx context.Context) ([]domain.ReasonTaxonomyEntry, error)
}

type taxonomyRepository struct {
	pool *pgxpool.Pool
}

// NewTaxonomyRepository builds the repository.
func NewTaxonomyRepository(pool *pgxpool.Pool) TaxonomyRepository {
	return &taxonomyRepository{pool: pool}
}

func (r *taxonomyRepository) ListAll(ctx context.Context) ([]domain.ReasonTaxonomyEntry, error) {
	const query = `
        SELECT code, bucket, display_name, default_sla_hours
        FROM reason_taxonomy ORDER BY code ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.ReasonTaxonomyEntry
	for rows.Next() {
		var entry domain.ReasonTaxonomyEntry
		if err := rows.Scan(&entry.Code, &entry.Bucket, &entry.DisplayName, &entry.DefaultSLAHours); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
