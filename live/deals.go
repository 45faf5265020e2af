// ABOUTME: Live deal list for a view
// ABOUTME: Mirrors the repository deal collection with optimistic local merges
package live

import (
	"context"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/models"
)

type DealRepository interface {
	Subscriber
	Initialize(ctx context.Context) error
	ListDeals(ctx context.Context) ([]models.Deal, error)
	AddDeal(ctx context.Context, in models.DealInput) (*models.Deal, error)
	UpdateDeal(ctx context.Context, id string, patch models.DealPatch) (*models.Deal, error)
	MoveDeal(ctx context.Context, id string, stage models.Stage) (*models.Deal, error)
	RemoveDeal(ctx context.Context, id string) (bool, error)
}

type Deals struct {
	repo DealRepository
	cfg  config
	st   state[models.Deal]
}

func NewDeals(repo DealRepository, opts ...Option) *Deals {
	return &Deals{
		repo: repo,
		cfg:  newConfig(opts),
		st:   state[models.Deal]{id: func(d *models.Deal) string { return d.ID }},
	}
}

func (d *Deals) Load(ctx context.Context) error {
	d.st.setLoading()
	if err := d.repo.Initialize(ctx); err != nil {
		d.st.finish(nil, err)
		return err
	}
	if err := wait(ctx, d.cfg.delay); err != nil {
		d.st.finish(nil, err)
		return err
	}
	return d.reload(ctx)
}

func (d *Deals) Refresh(ctx context.Context) error {
	return d.Load(ctx)
}

func (d *Deals) reload(ctx context.Context) error {
	items, err := d.repo.ListDeals(ctx)
	d.st.finish(items, err)
	return err
}

func (d *Deals) Follow(ctx context.Context, notify func(error)) (cancel func()) {
	return follow(d.repo, db.CollectionDeals, func() error { return d.reload(ctx) }, notify)
}

func (d *Deals) Items() []models.Deal { return d.st.snapshot() }
func (d *Deals) Loading() bool        { return d.st.isLoading() }
func (d *Deals) Err() error           { return d.st.lastErr() }

func (d *Deals) Add(ctx context.Context, in models.DealInput) (*models.Deal, error) {
	deal, err := d.repo.AddDeal(ctx, in)
	if err != nil {
		return nil, err
	}
	d.st.upsert(*deal)
	return deal, nil
}

func (d *Deals) Update(ctx context.Context, id string, patch models.DealPatch) (*models.Deal, error) {
	deal, err := d.repo.UpdateDeal(ctx, id, patch)
	if err != nil || deal == nil {
		return deal, err
	}
	d.st.upsert(*deal)
	return deal, nil
}

func (d *Deals) Move(ctx context.Context, id string, stage models.Stage) (*models.Deal, error) {
	deal, err := d.repo.MoveDeal(ctx, id, stage)
	if err != nil || deal == nil {
		return deal, err
	}
	d.st.upsert(*deal)
	return deal, nil
}

func (d *Deals) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := d.repo.RemoveDeal(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	d.st.drop(id)
	return true, nil
}

func (d *Deals) ByID(id string) *models.Deal {
	found := d.st.filter(func(dl *models.Deal) bool { return dl.ID == id })
	if len(found) == 0 {
		return nil
	}
	return &found[0]
}

// ByStage returns the local deals in stage, in stored order.
func (d *Deals) ByStage(stage models.Stage) []models.Deal {
	return d.st.filter(func(dl *models.Deal) bool { return dl.Stage == stage })
}
