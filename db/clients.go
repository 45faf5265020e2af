// ABOUTME: Client collection operations
// ABOUTME: Handles list, lookup, add, partial update and guarded removal
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/LautaroSnchz/kion-crm/models"
)

func (s *Store) ListClients(ctx context.Context) ([]models.Client, error) {
	return clientsCollection.load(ctx, s.kv)
}

// GetClient returns nil, nil when no client has id.
func (s *Store) GetClient(ctx context.Context, id string) (*models.Client, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	if i := clientsCollection.find(clients, id); i >= 0 {
		return &clients[i], nil
	}
	return nil, nil
}

// FindClientByName returns the first client whose name matches, ignoring case.
func (s *Store) FindClientByName(ctx context.Context, name string) (*models.Client, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	for i := range clients {
		if strings.EqualFold(clients[i].Name, strings.TrimSpace(name)) {
			return &clients[i], nil
		}
	}
	return nil, nil
}

func (s *Store) AddClient(ctx context.Context, in models.ClientInput) (*models.Client, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = models.StatusActive
	}
	client := models.Client{
		ID:          s.newID(),
		Name:        in.Name,
		Email:       in.Email,
		Phone:       in.Phone,
		Company:     in.Company,
		Status:      status,
		Value:       in.Value,
		CreatedAt:   s.today(),
		LastContact: in.LastContact,
	}

	clients = append(clients, client)
	if err := clientsCollection.save(ctx, s.kv, clients); err != nil {
		return nil, err
	}
	return &client, nil
}

// UpdateClient merges patch into the client. Returns nil, nil when absent.
func (s *Store) UpdateClient(ctx context.Context, id string, patch models.ClientPatch) (*models.Client, error) {
	return clientsCollection.update(ctx, s.kv, id, func(c *models.Client) error {
		patch.Apply(c)
		return nil
	})
}

// RemoveClient deletes the client. Clients still referenced by a deal are
// kept and ErrClientInUse is returned.
func (s *Store) RemoveClient(ctx context.Context, id string) (bool, error) {
	deals, err := s.ListDeals(ctx)
	if err != nil {
		return false, err
	}
	var refs int
	for _, d := range deals {
		if d.ClientID == id {
			refs++
		}
	}
	if refs > 0 {
		return false, fmt.Errorf("%w: %d deal(s) reference client %s", ErrClientInUse, refs, id)
	}
	return clientsCollection.remove(ctx, s.kv, id)
}
