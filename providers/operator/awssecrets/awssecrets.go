// Package awssecrets sources operator-provisioned credentials from AWS
// Secrets Manager, as an alternative to plain environment variables for the
// resolution engine's environment fallback branch.
package awssecrets

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"

	"github.com/hengadev/byok"
)

// NameTemplate is the secret name holding the operator credential for a
// provider.
const NameTemplate = "byok/operator/%s"

// client covers the Secrets Manager operations the source needs. Allows
// mocking in tests.
type client interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// Config configures the source.
type Config struct {
	// Region overrides the default AWS region.
	Region string
	// AWSConfig supplies a pre-built AWS configuration, taking precedence
	// over Region.
	AWSConfig *aws.Config
}

// Source implements byok.OperatorSource against AWS Secrets Manager.
type Source struct {
	client client
}

// New creates a Source using the default AWS credential chain.
func New(ctx context.Context, cfg Config) (*Source, error) {
	var awsCfg aws.Config
	var err error
	if cfg.AWSConfig != nil {
		awsCfg = *cfg.AWSConfig
	} else {
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
	}
	return &Source{client: secretsmanager.NewFromConfig(awsCfg)}, nil
}

// NewWithClient creates a Source with a caller-supplied client. Test hook.
func NewWithClient(c client) *Source {
	return &Source{client: c}
}

// OperatorCredential reads the secret string at the provider's name. The
// environment fallback branch never fails: any retrieval error or missing
// secret yields an empty value.
func (s *Source) OperatorCredential(ctx context.Context, provider byok.Provider) string {
	name := fmt.Sprintf(NameTemplate, provider)
	out, err := s.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(name),
	})
	if err != nil || out.SecretString == nil {
		return ""
	}
	return *out.SecretString
}

var _ byok.OperatorSource = (*Source)(nil)
