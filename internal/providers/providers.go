package providers

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoImage is returned when a provider answers without an image.
var ErrNoImage = errors.New("no image returned by provider")

// EditRequest is a source image plus the instruction to apply to it
type EditRequest struct {
	Image     []byte
	MediaType string
	Prompt    string
}

// EditedImage is the image produced by a provider
type EditedImage struct {
	Data      []byte
	MediaType string
}

// ImageEditor defines the interface for a generative image-editing provider
type ImageEditor interface {
	EditImage(ctx context.Context, req EditRequest) (*EditedImage, error)
}

// InstructionTemplate wraps the user's prompt before it is sent to a model.
const InstructionTemplate = `Carefully edit this product image based on the following instruction: "%s". Maintain high quality and realistic lighting. Return only the edited image.`

// BuildInstruction returns the full instruction sent with the source image.
func BuildInstruction(prompt string) string {
	return fmt.Sprintf(InstructionTemplate, prompt)
}
