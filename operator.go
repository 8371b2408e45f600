package byok

import (
	"context"
	"os"
)

// Environment variable names for operator-provisioned credentials, one per
// provider. These are the process-level fallback consulted after the user
// store and guest headers.
var operatorEnvVars = map[Provider]string{
	ProviderOpenAI:     "OPENAI_API_KEY",
	ProviderAnthropic:  "ANTHROPIC_API_KEY",
	ProviderGoogle:     "GOOGLE_API_KEY",
	ProviderMistral:    "MISTRAL_API_KEY",
	ProviderOpenRouter: "OPENROUTER_API_KEY",
}

// EnvOperatorSource reads operator credentials from process environment
// variables. This branch never fails: absence of configuration simply yields
// an empty value and the resolver reports Source None downstream.
type EnvOperatorSource struct{}

func (EnvOperatorSource) OperatorCredential(ctx context.Context, provider Provider) string {
	name, ok := operatorEnvVars[provider]
	if !ok {
		return ""
	}
	return os.Getenv(name)
}

// StaticOperatorSource serves operator credentials from a fixed map. Useful
// for tests and for configuration-file-provisioned deployments.
type StaticOperatorSource map[Provider]string

func (s StaticOperatorSource) OperatorCredential(ctx context.Context, provider Provider) string {
	return s[provider]
}
