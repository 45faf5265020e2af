// ABOUTME: Deal pipeline stage enumeration and its display labels
// ABOUTME: The label table is the only place stage tokens and human labels meet
package models

import (
	"fmt"
	"strings"
)

// Stage is the pipeline phase of a deal. The lowercase token is the only
// encoding that is ever persisted.
type Stage string

const (
	StageLead      Stage = "lead"
	StageQualified Stage = "qualified"
	StageProposal  Stage = "proposal"
	StageClosed    Stage = "closed"
)

// Stages lists the pipeline in board order.
var Stages = []Stage{StageLead, StageQualified, StageProposal, StageClosed}

var stageLabels = map[Stage]string{
	StageLead:      "Lead",
	StageQualified: "Qualified",
	StageProposal:  "Proposal",
	StageClosed:    "Closed Won",
}

// aliases accepted from people typing at a prompt
var stageAliases = map[string]Stage{
	"closed won": StageClosed,
	"won":        StageClosed,
}

func (s Stage) Valid() bool {
	_, ok := stageLabels[s]
	return ok
}

// Label returns the display label for s, or the raw token if s is unknown.
func (s Stage) Label() string {
	if label, ok := stageLabels[s]; ok {
		return label
	}
	return string(s)
}

// Index returns the board column of s, or -1.
func (s Stage) Index() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// ParseStage translates user input into a Stage. It accepts the token or the
// display label in any case; "_" and "-" are treated as spaces.
func ParseStage(input string) (Stage, error) {
	norm := strings.ToLower(strings.TrimSpace(input))
	norm = strings.NewReplacer("_", " ", "-", " ").Replace(norm)
	norm = strings.Join(strings.Fields(norm), " ")

	if st := Stage(norm); st.Valid() {
		return st, nil
	}
	for st, label := range stageLabels {
		if strings.ToLower(label) == norm {
			return st, nil
		}
	}
	if st, ok := stageAliases[norm]; ok {
		return st, nil
	}
	return "", fmt.Errorf("invalid stage: %q (valid: lead, qualified, proposal, closed)", input)
}

// ParseClientStatus validates a status token.
func ParseClientStatus(input string) (ClientStatus, error) {
	st := ClientStatus(strings.ToLower(strings.TrimSpace(input)))
	if !st.Valid() {
		return "", fmt.Errorf("invalid status: %q (valid: active, inactive, prospect)", input)
	}
	return st, nil
}
