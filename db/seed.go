// ABOUTME: Embedded fixture data used to seed an empty store
// ABOUTME: Fixtures are parsed from YAML and validated against the deal/client foreign key
package db

import (
	_ "embed"
	"fmt"

	"github.com/LautaroSnchz/kion-crm/models"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures.yaml
var fixturesYAML []byte

type fixtureSet struct {
	Clients []models.Client `yaml:"clients"`
	Deals   []models.Deal   `yaml:"deals"`
}

// Fixtures returns a fresh copy of the seed clients and deals.
func Fixtures() ([]models.Client, []models.Deal, error) {
	var set fixtureSet
	if err := yaml.Unmarshal(fixturesYAML, &set); err != nil {
		return nil, nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	ids := make(map[string]bool, len(set.Clients))
	for _, c := range set.Clients {
		ids[c.ID] = true
	}
	for _, d := range set.Deals {
		if !ids[d.ClientID] {
			return nil, nil, fmt.Errorf("fixture deal %s: %w: %s", d.ID, ErrClientNotFound, d.ClientID)
		}
		if !d.Stage.Valid() {
			return nil, nil, fmt.Errorf("fixture deal %s: invalid stage %q", d.ID, d.Stage)
		}
	}
	return set.Clients, set.Deals, nil
}
