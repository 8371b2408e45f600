// Package anthropicai implements the Anthropic provider tester with the
// official SDK instead of the built-in HTTP tester: one minimal single-token
// message request exercises the same code path real traffic uses.
package anthropicai

import (
	"context"
	"fmt"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/hengadev/byok"
)

// DefaultModel is the cheapest model used for credential testing.
const DefaultModel = anthropic.ModelClaude3_5HaikuLatest

// Tester performs one minimal live call against the Anthropic API.
type Tester struct {
	// Model overrides DefaultModel.
	Model anthropic.Model
	// BaseURL overrides the API endpoint. Test hook.
	BaseURL string
}

func (t *Tester) Test(ctx context.Context, apiKey string) error {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if t.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(t.BaseURL))
	}
	client := anthropic.NewClient(opts...)

	model := t.Model
	if model == "" {
		model = DefaultModel
	}

	_, err := client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     model,
		MaxTokens: 1,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock("ping")),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: %v", byok.ErrUpstreamTestFailed, err)
	}
	return nil
}

var _ byok.ProviderTester = (*Tester)(nil)
