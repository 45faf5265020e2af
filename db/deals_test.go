// ABOUTME: Tests for deal collection operations
// ABOUTME: Covers add, client foreign key checks, stage moves and removal
package db

import (
	"context"
	"testing"

	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addAcme(t *testing.T, s *Store) *models.Client {
	t.Helper()
	c, err := s.AddClient(context.Background(), models.ClientInput{
		Name: "Acme", Email: "a@acme.com", Company: "AcmeCo", Status: models.StatusProspect,
	})
	require.NoError(t, err)
	return c
}

func TestAddDealAndMove(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)
	acme := addAcme(t, s)

	closeDate, err := models.ParseDate("2026-05-01")
	require.NoError(t, err)

	deal, err := s.AddDeal(ctx, models.DealInput{
		Title:             "Cloud migration",
		ClientID:          acme.ID,
		Value:             5000,
		Stage:             models.StageLead,
		Probability:       30,
		ExpectedCloseDate: closeDate,
		Owner:             "Mike Johnson",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, deal.ID)
	assert.Equal(t, "2026-01-22", deal.CreatedAt.String())

	moved, err := s.MoveDeal(ctx, deal.ID, models.StageQualified)
	require.NoError(t, err)
	require.NotNil(t, moved)

	deals, err := s.ListDeals(ctx)
	require.NoError(t, err)
	require.Len(t, deals, 1)

	want := *deal
	want.Stage = models.StageQualified
	if diff := cmp.Diff(want, deals[0]); diff != "" {
		t.Errorf("move changed more than the stage (-want +got):\n%s", diff)
	}
}

func TestAddDealDefaultsToLead(t *testing.T) {
	s, _ := setupTestStore(t)
	acme := addAcme(t, s)

	deal, err := s.AddDeal(context.Background(), models.DealInput{Title: "Audit", ClientID: acme.ID, Value: 1})
	require.NoError(t, err)
	assert.Equal(t, models.StageLead, deal.Stage)
}

func TestAddDealUnknownClient(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)

	_, err := s.AddDeal(ctx, models.DealInput{Title: "Orphan", ClientID: "ghost", Value: 1})
	assert.ErrorIs(t, err, ErrClientNotFound)

	deals, err := s.ListDeals(ctx)
	require.NoError(t, err)
	assert.Empty(t, deals)
}

func TestUpdateDealChecksClient(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)
	_, err := s.Initialize(ctx)
	require.NoError(t, err)

	_, err = s.UpdateDeal(ctx, "1", models.DealPatch{ClientID: models.Ptr("ghost")})
	assert.ErrorIs(t, err, ErrClientNotFound)

	updated, err := s.UpdateDeal(ctx, "1", models.DealPatch{ClientID: models.Ptr("2")})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, "2", updated.ClientID)
}

func TestUpdateMissingDealIsNotFoundBeforeClientCheck(t *testing.T) {
	ctx := context.Background()
	s, mem := setupTestStore(t)
	_, err := s.Initialize(ctx)
	require.NoError(t, err)
	before, err := mem.Get(ctx, KeyDeals)
	require.NoError(t, err)

	deal, err := s.UpdateDeal(ctx, "nonexistent-id", models.DealPatch{ClientID: models.Ptr("nope")})
	require.NoError(t, err)
	assert.Nil(t, deal)

	after, err := mem.Get(ctx, KeyDeals)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestMoveDealAnyDirection(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)
	_, err := s.Initialize(ctx)
	require.NoError(t, err)

	// Closed back to lead is allowed: the board is freely reorderable.
	moved, err := s.MoveDeal(ctx, "6", models.StageLead)
	require.NoError(t, err)
	require.NotNil(t, moved)
	assert.Equal(t, models.StageLead, moved.Stage)

	missing, err := s.MoveDeal(ctx, "nope", models.StageClosed)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDealsByStage(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)
	_, err := s.Initialize(ctx)
	require.NoError(t, err)

	counts := map[models.Stage]int{}
	for _, st := range models.Stages {
		deals, err := s.DealsByStage(ctx, st)
		require.NoError(t, err)
		counts[st] = len(deals)
	}
	assert.Equal(t, map[models.Stage]int{
		models.StageLead:      2,
		models.StageQualified: 2,
		models.StageProposal:  1,
		models.StageClosed:    1,
	}, counts)
}

func TestRemoveDeal(t *testing.T) {
	ctx := context.Background()
	s, _ := setupTestStore(t)
	_, err := s.Initialize(ctx)
	require.NoError(t, err)

	removed, err := s.RemoveDeal(ctx, "3")
	require.NoError(t, err)
	assert.True(t, removed)

	deals, err := s.ListDeals(ctx)
	require.NoError(t, err)
	assert.Len(t, deals, 5)
	for _, d := range deals {
		assert.NotEqual(t, "3", d.ID)
	}

	removed, err = s.RemoveDeal(ctx, "3")
	require.NoError(t, err)
	assert.False(t, removed)
	again, _ := s.ListDeals(ctx)
	assert.Len(t, again, 5)
}
