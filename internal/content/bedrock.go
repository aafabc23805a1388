package content

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/ignite/outreach-tracker/internal/domain"
)

const (
	DefaultBedrockModel = "anthropic.claude-3-sonnet-20240229-v1:0"
	anthropicVersion    = "bedrock-2023-05-31"

	systemPrompt = "You are an expert email writer specializing in professional outreach. " +
		"When a company description is provided, use it to explain how the sender's offerings align " +
		"with the recipient's needs. Start with a line \"Subject: ...\". " +
		"Do not use any markdown formatting (like ** or *) in the email content."
)

// ModelInvoker is the subset of the Bedrock runtime client used here.
type ModelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

type bedrockMessage struct {
	Role    string         `json:"role"`
	Content []bedrockBlock `json:"content"`
}

type bedrockBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type bedrockRequest struct {
	AnthropicVersion string           `json:"anthropic_version"`
	MaxTokens        int              `json:"max_tokens"`
	System           string           `json:"system,omitempty"`
	Messages         []bedrockMessage `json:"messages"`
	Temperature      float64          `json:"temperature,omitempty"`
}

type bedrockResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// BedrockProvider drafts emails with a Claude model on AWS Bedrock.
type BedrockProvider struct {
	client      ModelInvoker
	modelID     string
	maxTokens   int
	temperature float64
}

// NewBedrockProvider loads the default AWS credential chain for region.
func NewBedrockProvider(ctx context.Context, region, modelID string, maxTokens int, temperature float64) (*BedrockProvider, error) {
	if region == "" {
		region = "us-east-1"
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	p := NewBedrockProviderWithClient(bedrockruntime.NewFromConfig(cfg), modelID, maxTokens, temperature)
	log.Printf("[BedrockProvider] Initialized with model=%s, region=%s", p.modelID, region)
	return p, nil
}

// NewBedrockProviderWithClient builds a provider over an existing client.
func NewBedrockProviderWithClient(client ModelInvoker, modelID string, maxTokens int, temperature float64) *BedrockProvider {
	if modelID == "" {
		modelID = DefaultBedrockModel
	}
	if maxTokens <= 0 {
		maxTokens = 1000
	}
	return &BedrockProvider{client: client, modelID: modelID, maxTokens: maxTokens, temperature: temperature}
}

func (p *BedrockProvider) Generate(ctx context.Context, req domain.DraftRequest) (domain.Content, error) {
	body, err := json.Marshal(bedrockRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        p.maxTokens,
		System:           systemPrompt,
		Messages: []bedrockMessage{{
			Role:    "user",
			Content: []bedrockBlock{{Type: "text", Text: buildPrompt(req)}},
		}},
		Temperature: p.temperature,
	})
	if err != nil {
		return domain.Content{}, fmt.Errorf("failed to marshal request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return domain.Content{}, fmt.Errorf("bedrock invoke: %w", err)
	}

	var resp bedrockResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return domain.Content{}, fmt.Errorf("failed to parse response: %w", err)
	}
	var text strings.Builder
	for _, c := range resp.Content {
		if c.Type == "text" {
			text.WriteString(c.Text)
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return domain.Content{}, fmt.Errorf("bedrock returned no text (stop_reason=%s)", resp.StopReason)
	}
	return Finish(text.String(), req), nil
}

func buildPrompt(req domain.DraftRequest) string {
	var b strings.Builder
	switch req.Stage {
	case domain.StageFollowup:
		b.WriteString("Write a short, polite follow-up to an outreach email that got no reply.\n")
	case domain.StageLastchance:
		b.WriteString("Write a brief final follow-up email. Make clear this is the last message on the topic.\n")
	default:
		b.WriteString("Create a personalized outreach email in English.\n")
	}

	fmt.Fprintf(&b, "\nRecipient:\nName: %s\nTitle: %s\nCompany: %s\nWebsite: %s\n",
		req.Recipient.Name, req.Recipient.Title, req.Recipient.Company, req.Recipient.Website)

	desc := req.Owner.CompanyDescription
	if desc == "" {
		desc = "[brief description of company]"
	}
	fmt.Fprintf(&b, "\nSender Information:\nName: [Your Name]\nPosition: [Your Position]\nCompany: [Your Company]\nCompany Description: %s\n", desc)

	if req.Previous != nil {
		fmt.Fprintf(&b, "\nPrevious email:\nSubject: %s\n%s\n", req.Previous.Subject, req.Previous.Body)
	}
	if req.Template != nil && req.Template.Content != "" {
		fmt.Fprintf(&b, "\nFollow the structure and tone of this template:\n%s\n", req.Template.Content)
	}

	b.WriteString(`
Keep it professional and concise (3-4 short paragraphs at most), reference the
recipient's company specifically, and end with a clear call to action.`)
	return b.String()
}
