package oracle

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// BedrockClient runs completions through the AWS Bedrock Converse API.
// Selected with ROWGUARD_BACKEND=bedrock; credentials resolve through the
// standard AWS chain (env, shared config, instance role).
type BedrockClient struct {
	ModelID   string
	MaxTokens int32
	client    *bedrockruntime.Client
}

// NewBedrockClient loads AWS configuration and returns a Converse-backed
// oracle for the given model ID.
func NewBedrockClient(ctx context.Context, region, modelID string) (*BedrockClient, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &BedrockClient{
		ModelID:   modelID,
		MaxTokens: 500,
		client:    bedrockruntime.NewFromConfig(cfg),
	}, nil
}

// Complete sends a system+user pair through Converse and returns the
// first text block of the reply.
func (c *BedrockClient) Complete(ctx context.Context, system, user string) (string, error) {
	out, err := c.client.Converse(ctx, &bedrockruntime.ConverseInput{
		ModelId: aws.String(c.ModelID),
		System: []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: system},
		},
		Messages: []brtypes.Message{
			{
				Role: brtypes.ConversationRoleUser,
				Content: []brtypes.ContentBlock{
					&brtypes.ContentBlockMemberText{Value: user},
				},
			},
		},
		InferenceConfig: &brtypes.InferenceConfiguration{
			MaxTokens:   aws.Int32(c.MaxTokens),
			Temperature: aws.Float32(0),
		},
	})
	if err != nil {
		return "", &CallError{Backend: "bedrock", Err: err}
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok || len(msg.Value.Content) == 0 {
		return "", &CallError{Backend: "bedrock", Err: fmt.Errorf("empty response")}
	}

	text, ok := msg.Value.Content[0].(*brtypes.ContentBlockMemberText)
	if !ok {
		return "", &CallError{Backend: "bedrock", Err: fmt.Errorf("non-text content block")}
	}

	return strings.TrimSpace(text.Value), nil
}
