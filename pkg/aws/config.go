package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/younsl/lifecycled/internal/version"
)

// regionResolver is the subset of the IMDS client used for region fallback
type regionResolver interface {
	GetRegion(ctx context.Context, params *imds.GetRegionInput, optFns ...func(*imds.Options)) (*imds.GetRegionOutput, error)
}

// LoadConfig loads the shared AWS config. An empty region is resolved from
// the environment and then from the instance metadata service.
func LoadConfig(ctx context.Context, region string) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRetryMode(aws.RetryModeStandard),
		config.WithEC2IMDSClientEnableState(imds.ClientEnabled),
		config.WithAppID(version.Get().AppID()),
	}
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("error loading AWS config: %w", err)
	}

	if cfg.Region == "" {
		region, err := resolveRegion(ctx, imds.NewFromConfig(cfg))
		if err != nil {
			return aws.Config{}, err
		}
		cfg.Region = region
	}
	return cfg, nil
}

func resolveRegion(ctx context.Context, client regionResolver) (string, error) {
	out, err := client.GetRegion(ctx, &imds.GetRegionInput{})
	if err != nil {
		return "", fmt.Errorf("error resolving region from instance metadata: %w", err)
	}
	if out.Region == "" {
		return "", fmt.Errorf("instance metadata returned an empty region")
	}
	return out.Region, nil
}
