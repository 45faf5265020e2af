// ABOUTME: Graphviz rendering of the deal pipeline
// ABOUTME: Clients link to their deals, which are grouped into one cluster per stage
package viz

import (
	"bytes"
	"context"
	"fmt"

	"github.com/LautaroSnchz/kion-crm/models"
	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
)

var stageColors = map[models.Stage]string{
	models.StageLead:      "lightgrey",
	models.StageQualified: "lightblue",
	models.StageProposal:  "lightyellow",
	models.StageClosed:    "palegreen",
}

type GraphGenerator struct {
	src Source
}

func NewGraphGenerator(src Source) *GraphGenerator {
	return &GraphGenerator{src: src}
}

// GeneratePipelineGraph renders DOT for the whole pipeline. When clientID is
// non-empty only that client and its deals are drawn.
func (g *GraphGenerator) GeneratePipelineGraph(ctx context.Context, clientID string) (string, error) {
	clients, err := g.src.ListClients(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch clients: %w", err)
	}
	deals, err := g.src.ListDeals(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch deals: %w", err)
	}

	if clientID != "" {
		var found bool
		for _, c := range clients {
			if c.ID == clientID {
				clients = []models.Client{c}
				found = true
				break
			}
		}
		if !found {
			return "", fmt.Errorf("client not found: %s", clientID)
		}
		var own []models.Deal
		for _, d := range deals {
			if d.ClientID == clientID {
				own = append(own, d)
			}
		}
		deals = own
	}

	gv, err := graphviz.New(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create graphviz: %w", err)
	}
	defer gv.Close()

	graph, err := gv.Graph()
	if err != nil {
		return "", fmt.Errorf("failed to create graph: %w", err)
	}
	defer graph.Close()

	graph.SetLabel("Deal Pipeline")
	graph.SetRankDir(cgraph.LRRank)

	clientNodes := make(map[string]*cgraph.Node)
	for _, c := range clients {
		node, err := graph.CreateNodeByName("client_" + c.ID)
		if err != nil {
			return "", fmt.Errorf("failed to create client node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%s", c.Name, c.Company))
		node.SetShape("box")
		node.SetStyle("filled")
		node.SetFillColor("white")
		clientNodes[c.ID] = node
	}

	clusters := make(map[models.Stage]*cgraph.Graph)
	for _, st := range models.Stages {
		sub, err := graph.CreateSubGraphByName("cluster_" + string(st))
		if err != nil {
			return "", fmt.Errorf("failed to create stage cluster: %w", err)
		}
		sub.SetLabel(st.Label())
		clusters[st] = sub
	}

	for _, d := range deals {
		parent := graph
		if sub, ok := clusters[d.Stage]; ok {
			parent = sub
		}
		node, err := parent.CreateNodeByName("deal_" + d.ID)
		if err != nil {
			return "", fmt.Errorf("failed to create deal node: %w", err)
		}
		node.SetLabel(fmt.Sprintf("%s\n%s (%d%%)", d.Title, FormatMoney(d.Value), d.Probability))
		node.SetShape("ellipse")
		node.SetStyle("filled")
		node.SetFillColor(stageColors[d.Stage])

		if clientNode, ok := clientNodes[d.ClientID]; ok {
			edge, err := graph.CreateEdgeByName("deal_"+d.ID, clientNode, node)
			if err != nil {
				return "", fmt.Errorf("failed to create edge: %w", err)
			}
			edge.SetLabel(d.Owner)
		}
	}

	var buf bytes.Buffer
	if err := gv.Render(ctx, graph, graphviz.XDOT, &buf); err != nil {
		return "", fmt.Errorf("failed to render graph: %w", err)
	}
	return buf.String(), nil
}
