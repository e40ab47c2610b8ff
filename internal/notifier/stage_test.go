package notifier_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"darkroom/internal/event"
	"darkroom/internal/lineage"
	"darkroom/internal/logging"
	"darkroom/internal/notifier"
	"darkroom/internal/services"
	"darkroom/internal/testsupport"
)

type fakeMailer struct {
	to       []string
	subject  string
	body     string
	failWith error
}

func (f *fakeMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	if f.failWith != nil {
		return f.failWith
	}
	f.to = append(f.to, to)
	f.subject = subject
	f.body = htmlBody
	return nil
}

func hasEventType(events []lineage.Event, eventType string) bool {
	for _, e := range events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

func TestStageMailsAndRecordsTerminalEvent(t *testing.T) {
	mailer := &fakeMailer{}
	store := testsupport.NewMemoryLineage()
	handler := notifier.NewStage(mailer, store, logging.NewNop())

	if err := store.CreateWorkflow(context.Background(), "wf-1", "owner@example.com"); err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	stored := event.New(event.TypeImageStored, "wf-1", event.Payload{
		"presignedUrl": "https://cdn.example.com/annotated/wf-1.jpg?sig=abc",
	})
	if _, err := store.RecordEvent(context.Background(), stored, event.TypeImageAnnotated); err != nil {
		t.Fatalf("record image.stored: %v", err)
	}

	out, err := handler.Handle(context.Background(), stored)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out == nil || out.EventType != event.TypeNotificationSent {
		t.Fatalf("out = %+v, want notification.sent envelope", out)
	}
	if len(mailer.to) != 1 || mailer.to[0] != "owner@example.com" {
		t.Errorf("mailed %v, want owner@example.com", mailer.to)
	}
	if mailer.subject != "Image Analysis Complete - wf-1" {
		t.Errorf("subject = %q, want Image Analysis Complete - wf-1", mailer.subject)
	}
	if !strings.Contains(mailer.body, "wf-1") ||
		!strings.Contains(mailer.body, "https://cdn.example.com/annotated/wf-1.jpg?sig=abc") {
		t.Errorf("mail body missing workflow id or link:\n%s", mailer.body)
	}
	if !hasEventType(store.Events("wf-1"), event.TypeNotificationSent) {
		t.Error("notification.sent not recorded in lineage")
	}
	if prev, ok := store.Predecessor(out.EventID); !ok || prev != stored.EventID {
		t.Errorf("predecessor = %q ok=%v, want %q", prev, ok, stored.EventID)
	}
}

func TestStageSilentWhenNoAddress(t *testing.T) {
	mailer := &fakeMailer{}
	store := testsupport.NewMemoryLineage()
	handler := notifier.NewStage(mailer, store, logging.NewNop())

	if err := store.CreateWorkflow(context.Background(), "wf-2", ""); err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	stored := event.New(event.TypeImageStored, "wf-2", event.Payload{
		"presignedUrl": "https://cdn.example.com/annotated/wf-2.jpg",
	})

	out, err := handler.Handle(context.Background(), stored)
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if out != nil {
		t.Fatalf("out = %+v, want nil for silent terminal outcome", out)
	}
	if len(mailer.to) != 0 {
		t.Errorf("mailed %v, want no mail", mailer.to)
	}
	if hasEventType(store.Events("wf-2"), event.TypeNotificationSent) {
		t.Error("notification.sent recorded for workflow without an address")
	}
}

func TestStageMailFailurePropagates(t *testing.T) {
	mailer := &fakeMailer{failWith: services.Wrap(services.ErrTransient, "notifier", "send", "relay down", nil)}
	store := testsupport.NewMemoryLineage()
	handler := notifier.NewStage(mailer, store, logging.NewNop())

	if err := store.CreateWorkflow(context.Background(), "wf-3", "owner@example.com"); err != nil {
		t.Fatalf("create workflow: %v", err)
	}
	stored := event.New(event.TypeImageStored, "wf-3", event.Payload{
		"presignedUrl": "https://cdn.example.com/annotated/wf-3.jpg",
	})

	if _, err := handler.Handle(context.Background(), stored); !errors.Is(err, services.ErrTransient) {
		t.Fatalf("error = %v, want ErrTransient", err)
	}
	if hasEventType(store.Events("wf-3"), event.TypeNotificationSent) {
		t.Error("notification.sent recorded despite mail failure")
	}
}

func TestStageRequiresPresignedURL(t *testing.T) {
	handler := notifier.NewStage(&fakeMailer{}, testsupport.NewMemoryLineage(), logging.NewNop())
	env := event.New(event.TypeImageStored, "wf-4", event.Payload{})
	if _, err := handler.Handle(context.Background(), env); !errors.Is(err, services.ErrMalformed) {
		t.Fatalf("error = %v, want ErrMalformed", err)
	}
}
