package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/realmall/storefront/internal/providers"
	"google.golang.org/api/option"
)

// DefaultModel is the Gemini model with image output.
const DefaultModel = "gemini-2.5-flash-image"

// Gemini is an image-editing provider for Google Gemini
type Gemini struct {
	apiKey string
	model  string
}

// New returns a new Gemini provider
func New(apiKey, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{apiKey: apiKey, model: model}
}

// EditImage sends the source image and instruction to Gemini and returns the
// first image in the response.
func (g *Gemini) EditImage(ctx context.Context, req providers.EditRequest) (*providers.EditedImage, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: req.MediaType, Data: req.Image},
		genai.Text(providers.BuildInstruction(req.Prompt)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	return firstImage(resp, req.MediaType)
}

// firstImage pulls the first inline image out of a response. When the model
// omits a media type the source image's type is assumed.
func firstImage(resp *genai.GenerateContentResponse, fallbackMediaType string) (*providers.EditedImage, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini: %w", providers.ErrNoImage)
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return nil, fmt.Errorf("empty content returned from Gemini: %w", providers.ErrNoImage)
	}

	for _, part := range candidate.Content.Parts {
		blob, ok := part.(genai.Blob)
		if !ok || len(blob.Data) == 0 {
			continue
		}
		mediaType := blob.MIMEType
		if mediaType == "" {
			mediaType = fallbackMediaType
		}
		return &providers.EditedImage{Data: blob.Data, MediaType: mediaType}, nil
	}

	return nil, providers.ErrNoImage
}
