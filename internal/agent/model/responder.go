package model

import (
	"fmt"
	"strings"
)

// ResponderID identifies one unit of work in a turn. The set is closed.
type ResponderID string

const (
	Coordinator      ResponderID = "orchestrator"
	KnowledgeMiner   ResponderID = "knowledge_miner"
	DataModeler      ResponderID = "data_modeler"
	CampaignManager  ResponderID = "campaign_manager"
	ContentGenerator ResponderID = "content_generator"
	Synthesizer      ResponderID = "synthesizer"
)

// TaskKind labels what a TaskResult contains.
type TaskKind string

const (
	TaskKnowledgeResearch TaskKind = "knowledge_research"
	TaskDataModeling      TaskKind = "data_modeling"
	TaskCampaignDesign    TaskKind = "campaign_design"
	TaskContentGeneration TaskKind = "content_generation"
)

// ResponderInfo describes a responder for catalogs and diagnostics.
type ResponderInfo struct {
	ID          ResponderID `json:"name"`
	Kind        TaskKind    `json:"task_kind,omitempty"`
	Description string      `json:"description"`
	Specialist  bool        `json:"specialist"`
}

var catalog = []ResponderInfo{
	{ID: Coordinator, Description: "Analyse la demande et décide quels agents appeler"},
	{ID: KnowledgeMiner, Kind: TaskKnowledgeResearch, Specialist: true, Description: "Veille réglementaire et technique IMDS/PCF"},
	{ID: DataModeler, Kind: TaskDataModeling, Specialist: true, Description: "Modélisation des entités et workflows du Hub"},
	{ID: CampaignManager, Kind: TaskCampaignDesign, Specialist: true, Description: "Conception de campagnes fournisseurs, KPIs et playbooks"},
	{ID: ContentGenerator, Kind: TaskContentGeneration, Specialist: true, Description: "Rédaction d'emails, scripts et supports"},
	{ID: Synthesizer, Description: "Compile les résultats en une réponse finale"},
}

// Catalog returns all responders in invocation-table order.
func Catalog() []ResponderInfo {
	out := make([]ResponderInfo, len(catalog))
	copy(out, catalog)
	return out
}

// Specialists returns the ids a coordinator may queue.
func Specialists() []ResponderID {
	ids := make([]ResponderID, 0, 4)
	for _, info := range catalog {
		if info.Specialist {
			ids = append(ids, info.ID)
		}
	}
	return ids
}

// Info returns the catalog entry for id.
func (id ResponderID) Info() (ResponderInfo, bool) {
	for _, info := range catalog {
		if info.ID == id {
			return info, true
		}
	}
	return ResponderInfo{}, false
}

// IsSpecialist reports whether id can appear in a pending queue.
func (id ResponderID) IsSpecialist() bool {
	info, ok := id.Info()
	return ok && info.Specialist
}

func (id ResponderID) String() string {
	return string(id)
}

// ParseResponderID accepts a known identifier, ignoring case and surrounding spaces.
func ParseResponderID(s string) (ResponderID, error) {
	id := ResponderID(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := id.Info(); !ok {
		return "", fmt.Errorf("unknown responder %q", s)
	}
	return id, nil
}
