package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/recipeui/fetchbridge/internal/logger"
)

type fakeSQS struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("m-1")}, nil
}

type fakeSNS struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-2")}, nil
}

var okEvent = ExchangeEvent{
	InvocationID: "inv-1",
	Method:       "GET",
	Host:         "api.example.com",
	Status:       404,
	Title:        "Not Found",
}

func TestSQSPublisherSendsEventWithRoutingAttributes(t *testing.T) {
	client := &fakeSQS{}
	pub := &sqsPublisher{id: "q", queueURL: "https://sqs.local/1/exchanges", client: client, log: logger.NopLogger{}}

	if err := pub.Publish(context.Background(), okEvent); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	in := client.input
	if aws.ToString(in.QueueUrl) != "https://sqs.local/1/exchanges" {
		t.Fatalf("QueueUrl = %s", aws.ToString(in.QueueUrl))
	}
	if in.MessageGroupId != nil || in.MessageDeduplicationId != nil {
		t.Fatalf("standard queue got FIFO keys")
	}
	want := map[string]string{
		"invocation_id": "inv-1",
		"method":        "GET",
		"host":          "api.example.com",
		"outcome":       "ok",
		"status_class":  "4xx",
	}
	if len(in.MessageAttributes) != len(want) {
		t.Fatalf("attributes = %#v", in.MessageAttributes)
	}
	for k, v := range want {
		attr := in.MessageAttributes[k]
		if aws.ToString(attr.StringValue) != v || aws.ToString(attr.DataType) != "String" {
			t.Fatalf("attribute %s = %#v", k, attr)
		}
	}
	if !strings.Contains(aws.ToString(in.MessageBody), `"title":"Not Found"`) {
		t.Fatalf("body missing title: %s", aws.ToString(in.MessageBody))
	}
}

func TestSQSPublisherFIFOQueueKeys(t *testing.T) {
	client := &fakeSQS{}
	pub := &sqsPublisher{id: "q", queueURL: "https://sqs.local/1/exchanges.fifo", client: client, log: logger.NopLogger{}}

	if err := pub.Publish(context.Background(), okEvent); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if aws.ToString(client.input.MessageGroupId) != "api.example.com" {
		t.Fatalf("group = %v", aws.ToString(client.input.MessageGroupId))
	}
	if aws.ToString(client.input.MessageDeduplicationId) != "inv-1" {
		t.Fatalf("dedup = %v", aws.ToString(client.input.MessageDeduplicationId))
	}

	failed := ExchangeEvent{InvocationID: "inv-2", Method: "GET", Error: "parse url"}
	if err := pub.Publish(context.Background(), failed); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if aws.ToString(client.input.MessageGroupId) != defaultMessageGroup {
		t.Fatalf("hostless event group = %v", aws.ToString(client.input.MessageGroupId))
	}
	if _, ok := client.input.MessageAttributes["status_class"]; ok {
		t.Fatalf("failed event should carry no status_class")
	}
	if got := aws.ToString(client.input.MessageAttributes["outcome"].StringValue); got != "error" {
		t.Fatalf("outcome = %s", got)
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{id: "q", queueURL: "u", client: &fakeSQS{err: errors.New("throttled")}, log: logger.NopLogger{}}
	if err := pub.Publish(context.Background(), okEvent); err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("err = %v", err)
	}
}

func TestSNSPublisherSubjectAndFIFO(t *testing.T) {
	client := &fakeSNS{}
	pub := &snsPublisher{id: "t", topicARN: "arn:aws:sns:us-east-1:1:exchanges.fifo", client: client, log: logger.NopLogger{}}

	if err := pub.Publish(context.Background(), okEvent); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	in := client.input
	if aws.ToString(in.Subject) != "GET api.example.com 404" {
		t.Fatalf("Subject = %q", aws.ToString(in.Subject))
	}
	if aws.ToString(in.MessageDeduplicationId) != "inv-1" || aws.ToString(in.MessageGroupId) != "api.example.com" {
		t.Fatalf("fifo keys = %v/%v", aws.ToString(in.MessageGroupId), aws.ToString(in.MessageDeduplicationId))
	}
	if !strings.Contains(aws.ToString(in.Message), `"invocation_id":"inv-1"`) {
		t.Fatalf("Message = %s", aws.ToString(in.Message))
	}
}

func TestSNSSubjectForFailuresIsBoundedASCII(t *testing.T) {
	evt := ExchangeEvent{Method: "POST", Host: "bücher.example" + strings.Repeat("x", 200), Error: "dial tcp"}
	subject := snsSubject(evt)
	if len(subject) > maxSNSSubject {
		t.Fatalf("subject length %d", len(subject))
	}
	if !strings.HasPrefix(subject, "POST b?cher.example") {
		t.Fatalf("subject = %q", subject)
	}
	if got := snsSubject(ExchangeEvent{Method: "GET", Host: "h", Error: "x"}); got != "GET h error" {
		t.Fatalf("subject = %q", got)
	}
}

func TestSNSPublisherSendError(t *testing.T) {
	pub := &snsPublisher{id: "t", topicARN: "arn", client: &fakeSNS{err: errors.New("denied")}, log: logger.NopLogger{}}
	if err := pub.Publish(context.Background(), okEvent); err == nil {
		t.Fatalf("expected error from Publish")
	}
}
