// ABOUTME: Client reference resolution for the command surfaces
// ABOUTME: Accepts an id or a name and suggests near matches by edit distance
package db

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/agnivade/levenshtein"
)

// ClientLookup is the read side needed to resolve a client reference.
type ClientLookup interface {
	GetClient(ctx context.Context, id string) (*models.Client, error)
	FindClientByName(ctx context.Context, name string) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
}

// UnknownClientError is returned by ResolveClient when nothing matches.
type UnknownClientError struct {
	Ref         string
	Suggestions []string
}

func (e *UnknownClientError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("client not found: %s", e.Ref)
	}
	return fmt.Sprintf("client not found: %s (did you mean %s?)", e.Ref, strings.Join(e.Suggestions, ", "))
}

func (e *UnknownClientError) Unwrap() error { return ErrClientNotFound }

// ResolveClient finds a client by id, then by case-insensitive name.
func ResolveClient(ctx context.Context, src ClientLookup, ref string) (*models.Client, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("client is required")
	}

	client, err := src.GetClient(ctx, ref)
	if err != nil {
		return nil, err
	}
	if client != nil {
		return client, nil
	}

	client, err = src.FindClientByName(ctx, ref)
	if err != nil {
		return nil, err
	}
	if client != nil {
		return client, nil
	}

	clients, err := src.ListClients(ctx)
	if err != nil {
		return nil, err
	}
	return nil, &UnknownClientError{Ref: ref, Suggestions: SuggestClientNames(clients, ref, 3)}
}

// SuggestClientNames returns up to limit client names closest to name.
// Names further than half their length away are not suggested.
func SuggestClientNames(clients []models.Client, name string, limit int) []string {
	type candidate struct {
		name string
		dist int
	}
	target := strings.ToLower(name)

	var candidates []candidate
	for _, c := range clients {
		lower := strings.ToLower(c.Name)
		dist := levenshtein.ComputeDistance(target, lower)
		if strings.HasPrefix(lower, target) || strings.Contains(lower, target) {
			dist = 0
		}
		if dist > max(len(lower), len(target))/2 {
			continue
		}
		candidates = append(candidates, candidate{name: c.Name, dist: dist})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].dist != candidates[j].dist {
			return candidates[i].dist < candidates[j].dist
		}
		return candidates[i].name < candidates[j].name
	})

	out := make([]string, 0, limit)
	for _, c := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, c.name)
	}
	return out
}
