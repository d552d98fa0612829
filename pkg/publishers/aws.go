package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// defaultMessageGroup is the FIFO group for events without a host.
const defaultMessageGroup = "fetchbridge"

// loadAWSConfig resolves the shared AWS config for a region. Static
// credentials are used only when both halves are set.
func loadAWSConfig(ctx context.Context, region string, access AWSAccess) (aws.Config, error) {
	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if access.AccessKeyID != "" && access.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(access.AccessKeyID, access.SecretAccessKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// endpointOverride returns nil when no endpoint is configured.
func endpointOverride(access AWSAccess) *string {
	if access.Endpoint == "" {
		return nil
	}
	return aws.String(access.Endpoint)
}

// fifoKeys returns the group and deduplication ids for FIFO queues and
// topics, or nils when target is not FIFO.
func fifoKeys(target string, evt ExchangeEvent) (group, dedup *string) {
	if !strings.HasSuffix(target, ".fifo") {
		return nil, nil
	}
	g := evt.Host
	if g == "" {
		g = defaultMessageGroup
	}
	return aws.String(g), aws.String(evt.InvocationID)
}

// messageAttributes converts routing attributes into the SQS/SNS shape.
func messageAttributes[T any](evt ExchangeEvent, build func(dataType, value *string) T) map[string]T {
	attrs := evt.attributes()
	out := make(map[string]T, len(attrs))
	for k, v := range attrs {
		out[k] = build(aws.String("String"), aws.String(v))
	}
	return out
}
