// Package googleai implements the Google provider tester with the genai SDK
// instead of the built-in HTTP tester: fetching model metadata is the
// cheapest authenticated call the Gemini API offers.
package googleai

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/hengadev/byok"
)

// DefaultModel is the model whose metadata is fetched during testing.
const DefaultModel = "gemini-2.0-flash"

// Tester performs one minimal live call against the Gemini API.
type Tester struct {
	// Model overrides DefaultModel.
	Model string
}

func (t *Tester) Test(ctx context.Context, apiKey string) error {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", byok.ErrUpstreamTestFailed, err)
	}

	model := t.Model
	if model == "" {
		model = DefaultModel
	}
	if _, err := client.Models.Get(ctx, model, nil); err != nil {
		return fmt.Errorf("%w: %v", byok.ErrUpstreamTestFailed, err)
	}
	return nil
}

var _ byok.ProviderTester = (*Tester)(nil)
