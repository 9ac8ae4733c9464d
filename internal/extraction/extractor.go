package extraction

import (
	"context"
	"encoding/base64"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/certwatch/coi-compliance/internal/models"
	"github.com/certwatch/coi-compliance/internal/retry"
)

// COIExtractor sends COI page images to the vision model and parses the
// structured coverage payload. All remote calls run through the retry
// invoker; a missing API key is a permanent configuration error the invoker
// will not retry.
type COIExtractor struct {
	client   *openai.Client
	renderer *PDFRenderer
	invoker  *retry.Invoker
	model    string
	temp     float32
	logger   *zap.Logger
}

// NewCOIExtractor creates a new COI extractor
func NewCOIExtractor(apiKey, model string, temperature float32, invoker *retry.Invoker, logger *zap.Logger) (*COIExtractor, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("extraction service not configured: missing API key")
	}
	return &COIExtractor{
		client:   openai.NewClient(apiKey),
		renderer: NewPDFRenderer(logger),
		invoker:  invoker,
		model:    model,
		temp:     temperature,
		logger:   logger,
	}, nil
}

// ExtractCOI renders the document and extracts its coverage data.
func (e *COIExtractor) ExtractCOI(ctx context.Context, path string) (*models.ExtractedCOIData, error) {
	e.logger.Info("Extracting COI coverage data", zap.String("path", path))

	images, err := e.renderer.RenderPages(path, maxCOIPages)
	if err != nil {
		return nil, err
	}

	content, err := retry.Call(ctx, e.invoker, "coi-extraction", func(ctx context.Context) (string, error) {
		return e.complete(ctx, coiSystemPrompt, coiExtractionPrompt, images)
	})
	if err != nil {
		e.logger.Error("COI extraction failed", zap.Error(err))
		return nil, fmt.Errorf("COI extraction failed: %w", err)
	}

	var data models.ExtractedCOIData
	if err := decodeModelJSON(content, &data); err != nil {
		e.logger.Error("Failed to parse extraction response",
			zap.Error(err),
			zap.String("content", truncate(content, 500)))
		return nil, err
	}

	e.logger.Info("COI extraction completed",
		zap.String("insured", data.InsuredName),
		zap.Int("issues", len(data.Issues)))
	return &data, nil
}

// ExtractRequirements extracts the insurance requirements from a lease's
// insurance clause. Every extracted value is stamped with its provenance.
func (e *COIExtractor) ExtractRequirements(ctx context.Context, path string) (*models.RequirementProfile, error) {
	e.logger.Info("Extracting lease insurance requirements", zap.String("path", path))

	images, err := e.renderer.RenderPages(path, maxLeasePages)
	if err != nil {
		return nil, err
	}

	content, err := retry.Call(ctx, e.invoker, "lease-extraction", func(ctx context.Context) (string, error) {
		return e.complete(ctx, leaseSystemPrompt, leaseExtractionPrompt, images)
	})
	if err != nil {
		e.logger.Error("Lease extraction failed", zap.Error(err))
		return nil, fmt.Errorf("lease extraction failed: %w", err)
	}

	var profile models.RequirementProfile
	if err := decodeModelJSON(content, &profile); err != nil {
		e.logger.Error("Failed to parse lease extraction response",
			zap.Error(err),
			zap.String("content", truncate(content, 500)))
		return nil, err
	}

	stampLeaseProvenance(&profile)
	return &profile, nil
}

// complete runs one multi-modal chat completion and returns the raw content.
func (e *COIExtractor) complete(ctx context.Context, system, prompt string, images [][]byte) (string, error) {
	parts := []openai.ChatMessagePart{{
		Type: openai.ChatMessagePartTypeText,
		Text: prompt,
	}}
	for _, img := range images {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    fmt.Sprintf("data:image/jpeg;base64,%s", base64.StdEncoding.EncodeToString(img)),
				Detail: openai.ImageURLDetailHigh,
			},
		})
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       e.model,
		Temperature: e.temp,
		MaxTokens:   4096,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from extraction model")
	}
	return resp.Choices[0].Message.Content, nil
}

// stampLeaseProvenance marks every extracted requirement as lease-derived.
// The model already filled in confidence; the source is ours to set.
func stampLeaseProvenance(p *models.RequirementProfile) {
	for _, v := range []*models.RequirementValue{
		p.GLPerOccurrence, p.GLAggregate, p.AutoLiability, p.EmployersLiability,
		p.PropertyContents, p.Umbrella, p.ProfessionalLiability,
	} {
		if v != nil {
			v.Source = models.SourceLeaseExtracted
		}
	}
	for _, f := range []*models.RequirementFlag{
		p.WorkersCompStatutory, p.AdditionalInsuredRequired, p.WaiverOfSubrogationRequired,
	} {
		if f != nil {
			f.Source = models.SourceLeaseExtracted
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
