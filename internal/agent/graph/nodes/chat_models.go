package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	"github.com/ax5-sect/server/internal/agent/graph/responders"
	"github.com/ax5-sect/server/internal/agent/model"
	logx "github.com/ax5-sect/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey      string
	BaseURL     string
	Coordinator *model.CoordinatorModelConfig
	Responder   *model.ResponderModelConfig
	Synthesis   *model.SynthesisModelConfig
}

// ChatModels holds one Gemini model per responder family.
type ChatModels struct {
	Coordinator     *gemini.ChatModel
	Responder       *gemini.ChatModel
	Synthesis       *gemini.ChatModel
	CoordinatorName string
	ResponderName   string
	SynthesisName   string
}

// NewChatModels creates the three chat models over one Gemini client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	if config.Coordinator == nil || config.Responder == nil || config.Synthesis == nil {
		return nil, fmt.Errorf("chat model configs are incomplete")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	coordinator, err := newGeminiModel(ctx, client, config.Coordinator.Model, config.Coordinator.Temperature, config.Coordinator.MaxTokens)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating coordinator model")
		return nil, fmt.Errorf("error creating coordinator model: %w", err)
	}

	responder, err := newGeminiModel(ctx, client, config.Responder.Model, config.Responder.Temperature, config.Responder.MaxTokens)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating responder model")
		return nil, fmt.Errorf("error creating responder model: %w", err)
	}

	synthesis, err := newGeminiModel(ctx, client, config.Synthesis.Model, config.Synthesis.Temperature, config.Synthesis.MaxTokens)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating synthesis model")
		return nil, fmt.Errorf("error creating synthesis model: %w", err)
	}

	return &ChatModels{
		Coordinator:     coordinator,
		Responder:       responder,
		Synthesis:       synthesis,
		CoordinatorName: config.Coordinator.Model,
		ResponderName:   config.Responder.Model,
		SynthesisName:   config.Synthesis.Model,
	}, nil
}

func newGeminiModel(ctx context.Context, client *genai.Client, name string, temperature float32, maxTokens int) (*gemini.ChatModel, error) {
	return gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       name,
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(1024)),
		},
	})
}

// Generator binds the models to the generative strategy used by responders.
func (cm *ChatModels) Generator(timeout time.Duration) *responders.ChatModelGenerator {
	return responders.NewChatModelGenerator(
		responders.BoundModel{Model: cm.Coordinator, Name: cm.CoordinatorName},
		responders.BoundModel{Model: cm.Responder, Name: cm.ResponderName},
		responders.BoundModel{Model: cm.Synthesis, Name: cm.SynthesisName},
		timeout,
	)
}
