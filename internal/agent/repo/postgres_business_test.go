package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ax5-sect/server/internal/agent/model"
)

func newMockRepo(t *testing.T) (*PostgresBusinessRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresBusinessRepository(db), mock
}

func TestGetSupplier(t *testing.T) {
	repo, mock := newMockRepo(t)
	updated := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "external_id", "name", "parent_group", "country_code", "region",
		"supplier_type", "supply_chain_level", "main_part_families", "updated_at",
	}).AddRow(7, "SUP-007", "Valeo Lighting", nil, "FR", "EMEA", "tier1", "T1", "{lighting,electronics}", updated)
	mock.ExpectQuery("FROM suppliers").WithArgs(int64(7)).WillReturnRows(rows)

	s, err := repo.GetSupplier(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "Valeo Lighting", s.Name)
	assert.Equal(t, "FR", s.CountryCode)
	assert.Empty(t, s.ParentGroup)
	assert.Equal(t, []string{"lighting", "electronics"}, s.MainPartFamilies)
	assert.Equal(t, updated, s.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSupplierNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("FROM suppliers").WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetSupplier(context.Background(), 404)
	assert.ErrorIs(t, err, model.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCampaign(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "name", "type", "objective", "status", "start_date", "end_date", "target_part_families",
	}).AddRow(3, "Campagne PCF Tier-1", "PCF", "Collecter 50 PCF", nil, start, nil, "{}")
	mock.ExpectQuery("FROM campaigns").WithArgs(int64(3)).WillReturnRows(rows)

	c, err := repo.GetCampaign(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "PCF", c.Type)
	assert.Equal(t, "draft", c.Status)
	require.NotNil(t, c.StartDate)
	assert.Equal(t, start, *c.StartDate)
	assert.Nil(t, c.EndDate)
	assert.Empty(t, c.TargetPartFamilies)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCampaignDatabaseError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("connection reset")
	mock.ExpectQuery("FROM campaigns").WillReturnError(boom)

	_, err := repo.GetCampaign(context.Background(), 3)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, model.ErrNotFound)
}

func TestSearchKnowledgeByTags(t *testing.T) {
	repo, mock := newMockRepo(t)

	rows := sqlmock.NewRows([]string{"id", "source_type", "title", "url", "description", "tags"}).
		AddRow(1, "guide", "IMDS Recommendation 027", "https://example.org/027", "Règles PCF dans IMDS", "{imds,pcf}").
		AddRow(2, nil, "Catena-X PCF Rulebook", nil, nil, "{pcf}")
	mock.ExpectQuery("FROM knowledge_documents").
		WithArgs(sqlmock.AnyArg(), 5).
		WillReturnRows(rows)

	docs, err := repo.SearchKnowledgeByTags(context.Background(), []string{"pcf", "imds"}, 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, []string{"imds", "pcf"}, docs[0].Tags)
	assert.Empty(t, docs[1].URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchKnowledgeWithoutTags(t *testing.T) {
	repo, mock := newMockRepo(t)
	docs, err := repo.SearchKnowledgeByTags(context.Background(), nil, 5)
	require.NoError(t, err)
	assert.Nil(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNoopBusinessReader(t *testing.T) {
	var r NoopBusinessReader
	_, err := r.GetSupplier(context.Background(), 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
	docs, err := r.SearchKnowledgeByTags(context.Background(), []string{"pcf"}, 5)
	assert.NoError(t, err)
	assert.Empty(t, docs)
}
