package script

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	log "github.com/sirupsen/logrus"

	"shortform-pipeline/config"
	"shortform-pipeline/types"
)

// generateSchema builds a strict JSON schema for structured outputs.
func generateSchema[T any]() interface{} {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

var scriptSchema = generateSchema[types.Script]()

// OpenAIGenerator generates scripts via the OpenAI chat API with JSON schema
// enforcement, so the response parses directly into a types.Script.
type OpenAIGenerator struct {
	client openai.Client
	cfg    *config.ScriptConfig
}

// NewOpenAIGenerator reads OPENAI_API_KEY from the environment.
func NewOpenAIGenerator(cfg *config.ScriptConfig) (*OpenAIGenerator, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	return &OpenAIGenerator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		cfg:    cfg,
	}, nil
}

// Generate produces a validated script for the topic, retrying when the
// model returns JSON that fails the script invariants.
func (g *OpenAIGenerator) Generate(ctx context.Context, topic string) (*types.Script, error) {
	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "video_script",
		Description: openai.String("A complete short-form video script"),
		Schema:      scriptSchema,
		Strict:      openai.Bool(true),
	}

	var lastErr error
	for attempt := 1; attempt <= g.cfg.MaxRetries; attempt++ {
		chatCompletion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt(topic)),
			},
			Model:       openai.ChatModel(g.cfg.OpenAIModel),
			Temperature: openai.Float(g.cfg.Temperature),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
					JSONSchema: schemaParam,
				},
			},
		})
		if err != nil {
			return nil, fmt.Errorf("openai request: %w", err)
		}
		if len(chatCompletion.Choices) == 0 {
			return nil, fmt.Errorf("openai returned no choices")
		}

		var s types.Script
		raw := chatCompletion.Choices[0].Message.Content
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			lastErr = fmt.Errorf("parse script JSON: %w", err)
		} else if err := finalize(&s, topic); err != nil {
			lastErr = err
		} else {
			return &s, nil
		}

		log.Warnf("[script] Attempt %d produced an invalid script: %v", attempt, lastErr)
	}

	return nil, fmt.Errorf("openai failed after %d attempts: %w", g.cfg.MaxRetries, lastErr)
}
