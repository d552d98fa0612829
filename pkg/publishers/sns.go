package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/recipeui/fetchbridge/internal/logger"
)

// SNS rejects subjects longer than this.
const maxSNSSubject = 100

type snsAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type snsPublisher struct {
	id       string
	topicARN string
	client   snsAPI
	log      logger.Logger
}

func newSNSPublisher(ctx context.Context, cfg SinkConfig, log logger.Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("sns block is missing")
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.AWSAccess)
	if err != nil {
		return nil, err
	}
	endpoint := endpointOverride(cfg.SNS.AWSAccess)

	return &snsPublisher{
		id:       cfg.ID,
		topicARN: cfg.SNS.TopicARN,
		client: sns.NewFromConfig(awsCfg, func(o *sns.Options) {
			o.BaseEndpoint = endpoint
		}),
		log: logger.Ensure(log),
	}, nil
}

func (s *snsPublisher) ID() string   { return s.id }
func (s *snsPublisher) Type() string { return TypeSNS }

func (s *snsPublisher) Publish(ctx context.Context, evt ExchangeEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	group, dedup := fifoKeys(s.topicARN, evt)
	out, err := s.client.Publish(ctx, &sns.PublishInput{
		TopicArn:               aws.String(s.topicARN),
		Message:                aws.String(string(body)),
		Subject:                aws.String(snsSubject(evt)),
		MessageGroupId:         group,
		MessageDeduplicationId: dedup,
		MessageAttributes: messageAttributes(evt, func(dataType, value *string) types.MessageAttributeValue {
			return types.MessageAttributeValue{DataType: dataType, StringValue: value}
		}),
	})
	if err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}

	s.log.DebugObj("sns delivered exchange", "sink_delivery", map[string]any{
		"sink_id":       s.id,
		"invocation_id": evt.InvocationID,
		"message_id":    aws.ToString(out.MessageId),
	})
	return nil
}

// snsSubject reads like "GET example.com 200" or "POST example.com error".
func snsSubject(evt ExchangeEvent) string {
	result := evt.Outcome()
	if evt.Status != 0 {
		result = fmt.Sprint(evt.Status)
	}
	subject := strings.Join(strings.Fields(evt.Method+" "+evt.Host+" "+result), " ")
	// Subjects must be printable ASCII.
	subject = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, subject)
	if len(subject) > maxSNSSubject {
		subject = subject[:maxSNSSubject]
	}
	return subject
}
