package model

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by business readers when a record does not exist.
var ErrNotFound = errors.New("record not found")

type Supplier struct {
	ID               int64     `json:"id"`
	ExternalID       string    `json:"external_id,omitempty"`
	Name             string    `json:"name"`
	ParentGroup      string    `json:"parent_group,omitempty"`
	CountryCode      string    `json:"country_code,omitempty"`
	Region           string    `json:"region,omitempty"`
	SupplierType     string    `json:"supplier_type,omitempty"`
	SupplyChainLevel string    `json:"supply_chain_level,omitempty"`
	MainPartFamilies []string  `json:"main_part_families,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type Campaign struct {
	ID                 int64      `json:"id"`
	Name               string     `json:"name"`
	Type               string     `json:"type"`
	Objective          string     `json:"objective,omitempty"`
	Status             string     `json:"status"`
	StartDate          *time.Time `json:"start_date,omitempty"`
	EndDate            *time.Time `json:"end_date,omitempty"`
	TargetPartFamilies []string   `json:"target_part_families,omitempty"`
}

type KnowledgeDocument struct {
	ID          int64    `json:"id"`
	SourceType  string   `json:"source_type,omitempty"`
	Title       string   `json:"title"`
	URL         string   `json:"url,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// BusinessContext is auxiliary data read by responders. The router never mutates it.
type BusinessContext struct {
	CurrentSupplierID int64               `json:"current_supplier_id,omitempty"`
	CurrentCampaignID int64               `json:"current_campaign_id,omitempty"`
	ActiveFilters     map[string]string   `json:"active_filters,omitempty"`
	LoadedSupplier    *Supplier           `json:"loaded_supplier,omitempty"`
	LoadedCampaign    *Campaign           `json:"loaded_campaign,omitempty"`
	RAGResults        []KnowledgeDocument `json:"rag_results,omitempty"`
}

// BusinessReader exposes the read paths of the relational store.
type BusinessReader interface {
	GetSupplier(ctx context.Context, id int64) (*Supplier, error)
	GetCampaign(ctx context.Context, id int64) (*Campaign, error)
	SearchKnowledgeByTags(ctx context.Context, tags []string, limit int) ([]KnowledgeDocument, error)
}
