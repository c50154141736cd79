package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/ax5-sect/server/internal/agent/model"
	errx "github.com/ax5-sect/server/internal/core/error"
)

// PostgresBusinessRepository implements model.BusinessReader over the hub schema.
type PostgresBusinessRepository struct {
	db *sql.DB
}

var _ model.BusinessReader = (*PostgresBusinessRepository)(nil)

func NewPostgresBusinessRepository(db *sql.DB) *PostgresBusinessRepository {
	return &PostgresBusinessRepository{db: db}
}

// GetSupplier retrieves a supplier by id
func (r *PostgresBusinessRepository) GetSupplier(ctx context.Context, id int64) (*model.Supplier, error) {
	query := `
		SELECT id, external_id, name, parent_group, country_code, region,
			supplier_type, supply_chain_level, main_part_families, updated_at
		FROM suppliers
		WHERE id = $1`

	s := &model.Supplier{}
	var externalID, parentGroup, country, region, supplierType, level sql.NullString
	var families pq.StringArray

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &externalID, &s.Name, &parentGroup, &country, &region,
		&supplierType, &level, &families, &s.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("supplier %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get supplier: %w", errx.WrapDatabase(err))
	}

	s.ExternalID = externalID.String
	s.ParentGroup = parentGroup.String
	s.CountryCode = country.String
	s.Region = region.String
	s.SupplierType = supplierType.String
	s.SupplyChainLevel = level.String
	s.MainPartFamilies = []string(families)
	return s, nil
}

// GetCampaign retrieves a campaign by id
func (r *PostgresBusinessRepository) GetCampaign(ctx context.Context, id int64) (*model.Campaign, error) {
	query := `
		SELECT id, name, type, objective, status, start_date, end_date, target_part_families
		FROM campaigns
		WHERE id = $1`

	c := &model.Campaign{}
	var objective, status sql.NullString
	var start, end sql.NullTime
	var families pq.StringArray

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.Name, &c.Type, &objective, &status, &start, &end, &families,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("campaign %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", errx.WrapDatabase(err))
	}

	c.Objective = objective.String
	c.Status = status.String
	if c.Status == "" {
		c.Status = "draft"
	}
	if start.Valid {
		c.StartDate = &start.Time
	}
	if end.Valid {
		c.EndDate = &end.Time
	}
	c.TargetPartFamilies = []string(families)
	return c, nil
}

// SearchKnowledgeByTags returns documents sharing at least one tag, newest first
func (r *PostgresBusinessRepository) SearchKnowledgeByTags(ctx context.Context, tags []string, limit int) ([]model.KnowledgeDocument, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	query := `
		SELECT id, source_type, title, url, description, tags
		FROM knowledge_documents
		WHERE tags && $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(tags), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", errx.WrapDatabase(err))
	}
	defer rows.Close()

	var docs []model.KnowledgeDocument
	for rows.Next() {
		var d model.KnowledgeDocument
		var sourceType, title, url, description sql.NullString
		var docTags pq.StringArray
		if err := rows.Scan(&d.ID, &sourceType, &title, &url, &description, &docTags); err != nil {
			return nil, fmt.Errorf("failed to scan knowledge document: %w", err)
		}
		d.SourceType = sourceType.String
		d.Title = title.String
		d.URL = url.String
		d.Description = description.String
		d.Tags = []string(docTags)
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate knowledge documents: %w", errx.WrapDatabase(err))
	}
	return docs, nil
}

// NoopBusinessReader answers every lookup with no data. Used when no
// database is configured.
type NoopBusinessReader struct{}

var _ model.BusinessReader = NoopBusinessReader{}

func (NoopBusinessReader) GetSupplier(_ context.Context, id int64) (*model.Supplier, error) {
	return nil, fmt.Errorf("supplier %d: %w", id, model.ErrNotFound)
}

func (NoopBusinessReader) GetCampaign(_ context.Context, id int64) (*model.Campaign, error) {
	return nil, fmt.Errorf("campaign %d: %w", id, model.ErrNotFound)
}

func (NoopBusinessReader) SearchKnowledgeByTags(context.Context, []string, int) ([]model.KnowledgeDocument, error) {
	return nil, nil
}
