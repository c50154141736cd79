package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL          string `envconfig:"CONVERSATION_TTL" default:"24h"`
	LockTTL      string `envconfig:"CONVERSATION_LOCK_TTL" default:"5m"`
	HistoryTurns int    `envconfig:"CONVERSATION_HISTORY_TURNS" default:"10"`
}

// Durations parses the TTL settings.
func (c ConversationConfig) Durations() (ttl, lockTTL time.Duration, err error) {
	if ttl, err = time.ParseDuration(c.TTL); err != nil {
		return 0, 0, err
	}
	if lockTTL, err = time.ParseDuration(c.LockTTL); err != nil {
		return 0, 0, err
	}
	return ttl, lockTTL, nil
}

type OrchestrationConfig struct {
	MaxIterations int `envconfig:"ORCHESTRATION_MAX_ITERATIONS" default:"10"`
	RAGLimit      int `envconfig:"ORCHESTRATION_RAG_LIMIT" default:"5"`
}

const (
	GenerationCanned     = "canned"
	GenerationGenerative = "generative"
)

type GenerationConfig struct {
	Mode    string `envconfig:"GENERATION_MODE" default:"canned"`
	Timeout string `envconfig:"GENERATION_TIMEOUT" default:"60s"`
}

type CoordinatorModelConfig struct {
	Model       string  `envconfig:"COORDINATOR_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"COORDINATOR_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"COORDINATOR_TEMPERATURE" default:"0.1"`
}

type ResponderModelConfig struct {
	Model       string  `envconfig:"RESPONDER_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONDER_MAX_TOKENS" default:"4096"`
	Temperature float32 `envconfig:"RESPONDER_TEMPERATURE" default:"0.7"`
}

type SynthesisModelConfig struct {
	Model       string  `envconfig:"SYNTHESIS_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"SYNTHESIS_MAX_TOKENS" default:"4096"`
	Temperature float32 `envconfig:"SYNTHESIS_TEMPERATURE" default:"0.5"`
}

type PromptConfig struct {
	HubName  string `envconfig:"PROMPT_HUB_NAME" default:"AX5-SECT"`
	Language string `envconfig:"PROMPT_LANGUAGE" default:"français"`
}
