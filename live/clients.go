// ABOUTME: Live client list for a view
// ABOUTME: Mirrors the repository client collection with optimistic local merges
package live

import (
	"context"
	"strings"

	"github.com/LautaroSnchz/kion-crm/db"
	"github.com/LautaroSnchz/kion-crm/models"
)

type ClientRepository interface {
	Subscriber
	Initialize(ctx context.Context) error
	ListClients(ctx context.Context) ([]models.Client, error)
	AddClient(ctx context.Context, in models.ClientInput) (*models.Client, error)
	UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error)
	RemoveClient(ctx context.Context, id string) (bool, error)
}

type Clients struct {
	repo ClientRepository
	cfg  config
	st   state[models.Client]
}

func NewClients(repo ClientRepository, opts ...Option) *Clients {
	return &Clients{
		repo: repo,
		cfg:  newConfig(opts),
		st:   state[models.Client]{id: func(c *models.Client) string { return c.ID }},
	}
}

// Load seeds the store if needed, then lists after the load delay.
func (c *Clients) Load(ctx context.Context) error {
	c.st.setLoading()
	if err := c.repo.Initialize(ctx); err != nil {
		c.st.finish(nil, err)
		return err
	}
	if err := wait(ctx, c.cfg.delay); err != nil {
		c.st.finish(nil, err)
		return err
	}
	return c.reload(ctx)
}

// Refresh re-runs Load.
func (c *Clients) Refresh(ctx context.Context) error {
	return c.Load(ctx)
}

func (c *Clients) reload(ctx context.Context) error {
	items, err := c.repo.ListClients(ctx)
	c.st.finish(items, err)
	return err
}

// Follow keeps the list in sync with repository events until cancelled.
// notify runs after each reload.
func (c *Clients) Follow(ctx context.Context, notify func(error)) (cancel func()) {
	return follow(c.repo, db.CollectionClients, func() error { return c.reload(ctx) }, notify)
}

func (c *Clients) Items() []models.Client { return c.st.snapshot() }
func (c *Clients) Loading() bool          { return c.st.isLoading() }
func (c *Clients) Err() error             { return c.st.lastErr() }

func (c *Clients) Add(ctx context.Context, in models.ClientInput) (*models.Client, error) {
	client, err := c.repo.AddClient(ctx, in)
	if err != nil {
		return nil, err
	}
	c.st.upsert(*client)
	return client, nil
}

// Update returns nil, nil when the client no longer exists.
func (c *Clients) Update(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error) {
	client, err := c.repo.UpdateClient(ctx, id, patch)
	if err != nil || client == nil {
		return client, err
	}
	c.st.upsert(*client)
	return client, nil
}

func (c *Clients) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := c.repo.RemoveClient(ctx, id)
	if err != nil || !ok {
		return ok, err
	}
	c.st.drop(id)
	return true, nil
}

// ByID looks up a client in local state.
func (c *Clients) ByID(id string) *models.Client {
	found := c.st.filter(func(cl *models.Client) bool { return cl.ID == id })
	if len(found) == 0 {
		return nil
	}
	return &found[0]
}

// ByName looks up a client in local state, ignoring case.
func (c *Clients) ByName(name string) *models.Client {
	name = strings.TrimSpace(name)
	found := c.st.filter(func(cl *models.Client) bool { return strings.EqualFold(cl.Name, name) })
	if len(found) == 0 {
		return nil
	}
	return &found[0]
}
