package rabbit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"quiz-assessment-service/internal/domain"
)

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.declared = append(c.declared, name+":"+kind)
	return nil
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.keys = append(c.keys, exchange+"/"+key)
	c.published = append(c.published, msg)
	return nil
}

func (c *fakeChannel) Close() error { return nil }

func TestPublisherSendsSubmissionJSON(t *testing.T) {
	ch := &fakeChannel{}
	pub, err := NewPublisher(ch, "quiz.events")
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	if len(ch.declared) != 1 || ch.declared[0] != "quiz.events:topic" {
		t.Fatalf("expected topic exchange declared, got %v", ch.declared)
	}

	result := domain.SubmissionResult{
		SubmissionID: "sub-1",
		QuizID:       "quiz-1",
		UserID:       "u1",
		TotalScore:   -1,
		SubmittedAt:  time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
	}
	if err := pub.PublishSubmission(context.Background(), result); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(ch.published) != 1 || ch.keys[0] != "quiz.events/"+SubmittedRoutingKey {
		t.Fatalf("unexpected publish %v", ch.keys)
	}
	msg := ch.published[0]
	if msg.MessageId != "sub-1" || msg.DeliveryMode != amqp.Persistent {
		t.Fatalf("unexpected message headers %+v", msg)
	}
	var decoded domain.SubmissionResult
	if err := json.Unmarshal(msg.Body, &decoded); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded != result {
		t.Fatalf("expected %+v, got %+v", result, decoded)
	}
}
