// ABOUTME: Deal collection operations
// ABOUTME: Handles list, lookup, add, partial update, stage moves and removal
package db

import (
	"context"
	"fmt"

	"github.com/LautaroSnchz/kion-crm/models"
)

func (s *Store) ListDeals(ctx context.Context) ([]models.Deal, error) {
	return dealsCollection.load(ctx, s.kv)
}

// GetDeal returns nil, nil when no deal has id.
func (s *Store) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	deals, err := s.ListDeals(ctx)
	if err != nil {
		return nil, err
	}
	if i := dealsCollection.find(deals, id); i >= 0 {
		return &deals[i], nil
	}
	return nil, nil
}

// DealsByStage returns the deals in stage, in stored order.
func (s *Store) DealsByStage(ctx context.Context, stage models.Stage) ([]models.Deal, error) {
	deals, err := s.ListDeals(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Deal
	for _, d := range deals {
		if d.Stage == stage {
			out = append(out, d)
		}
	}
	return out, nil
}

// DealsForClient returns the deals that reference clientID.
func (s *Store) DealsForClient(ctx context.Context, clientID string) ([]models.Deal, error) {
	deals, err := s.ListDeals(ctx)
	if err != nil {
		return nil, err
	}
	var out []models.Deal
	for _, d := range deals {
		if d.ClientID == clientID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Store) requireClient(ctx context.Context, id string) error {
	client, err := s.GetClient(ctx, id)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	return nil
}

func (s *Store) AddDeal(ctx context.Context, in models.DealInput) (*models.Deal, error) {
	if err := s.requireClient(ctx, in.ClientID); err != nil {
		return nil, err
	}
	deals, err := s.ListDeals(ctx)
	if err != nil {
		return nil, err
	}

	stage := in.Stage
	if stage == "" {
		stage = models.StageLead
	}
	deal := models.Deal{
		ID:                s.newID(),
		Title:             in.Title,
		ClientID:          in.ClientID,
		Value:             in.Value,
		Stage:             stage,
		Probability:       in.Probability,
		ExpectedCloseDate: in.ExpectedCloseDate,
		Owner:             in.Owner,
		Notes:             in.Notes,
		CreatedAt:         s.today(),
	}

	deals = append(deals, deal)
	if err := dealsCollection.save(ctx, s.kv, deals); err != nil {
		return nil, err
	}
	return &deal, nil
}

// UpdateDeal merges patch into the deal. Returns nil, nil when absent.
func (s *Store) UpdateDeal(ctx context.Context, id string, patch models.DealPatch) (*models.Deal, error) {
	return dealsCollection.update(ctx, s.kv, id, func(d *models.Deal) error {
		// Only an existing deal gets its client reference checked.
		if patch.ClientID != nil {
			if err := s.requireClient(ctx, *patch.ClientID); err != nil {
				return err
			}
		}
		patch.Apply(d)
		return nil
	})
}

// MoveDeal changes only the stage. Any stage may move to any other.
func (s *Store) MoveDeal(ctx context.Context, id string, stage models.Stage) (*models.Deal, error) {
	return s.UpdateDeal(ctx, id, models.DealPatch{Stage: &stage})
}

func (s *Store) RemoveDeal(ctx context.Context, id string) (bool, error) {
	return dealsCollection.remove(ctx, s.kv, id)
}
