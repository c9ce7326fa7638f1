package publishers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/samvad-hq/reqwatch/internal/domain"
)

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("sns-1")}, nil
}

func TestSNSPublisherPublishesToTopic(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{
		id:       "topic",
		typ:      TypeSNS,
		topicARN: "arn:aws:sns:us-east-1:123456789012:settlements",
		client:   client,
		log:      noopLogger{},
	}

	err := pub.Publish(context.Background(), NewEvent(domain.Settlement{
		TargetID: "api",
		Outcome:  domain.OutcomeFailure,
		Error:    "status 503",
	}))
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != pub.topicARN {
		t.Fatalf("TopicArn = %s", got)
	}
	if got := aws.ToString(client.input.MessageAttributes["outcome"].StringValue); got != "failure" {
		t.Fatalf("outcome attribute = %q", got)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"error":"status 503"`) {
		t.Fatalf("message missing error: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherError(t *testing.T) {
	pub := &snsPublisher{id: "topic", client: &fakeSNSClient{err: errors.New("denied")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), Event{}); err == nil {
		t.Fatalf("expected error")
	}
}
