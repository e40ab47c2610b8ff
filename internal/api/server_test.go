package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"darkroom/internal/api"
	"darkroom/internal/event"
	"darkroom/internal/imagecheck"
	"darkroom/internal/lineage"
	"darkroom/internal/logging"
	"darkroom/internal/testsupport"
)

type testIntake struct {
	server *httptest.Server
	pub    *testsupport.CapturePublisher
	store  *testsupport.MemoryLineage
}

func newTestIntake(t *testing.T) *testIntake {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	pub := testsupport.NewCapturePublisher()
	store := testsupport.NewMemoryLineage()
	service := api.NewWorkflowService(imagecheck.New(cfg.Validation), store, pub, logging.NewNop())
	server := httptest.NewServer(api.NewServer(cfg.Paths.APIBind, service, logging.NewNop()).Handler())
	t.Cleanup(server.Close)
	return &testIntake{server: server, pub: pub, store: store}
}

func imageEndpoint(t *testing.T) string {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
	}))
	t.Cleanup(server.Close)
	return server.URL
}

func postWorkflow(t *testing.T, intake *testIntake, body any) *http.Response {
	t.Helper()
	encoded, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(intake.server.URL+"/workflows", "application/json", bytes.NewReader(encoded))
	if err != nil {
		t.Fatalf("POST /workflows: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestStartWorkflowPublishesAndRecords(t *testing.T) {
	intake := newTestIntake(t)
	resp := postWorkflow(t, intake, map[string]string{
		"imageUrl": imageEndpoint(t),
		"email":    "owner@example.com",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}

	var result api.StartResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if result.WorkflowID == "" || result.Status != "started" {
		t.Fatalf("result = %+v, want non-empty workflowId with status started", result)
	}

	env, ok := intake.pub.LastEnvelope()
	if !ok || env.EventType != event.TypeWorkflowStarted {
		t.Fatalf("published envelope = %+v, want workflow.started", env)
	}
	if env.WorkflowID != result.WorkflowID {
		t.Errorf("published workflow id = %q, want %q", env.WorkflowID, result.WorkflowID)
	}
	if got, _ := env.PayloadString("email"); got != "owner@example.com" {
		t.Errorf("payload email = %q, want owner@example.com", got)
	}

	if intake.store.Email(result.WorkflowID) != "owner@example.com" {
		t.Errorf("stored email = %q, want owner@example.com", intake.store.Email(result.WorkflowID))
	}
	events := intake.store.Events(result.WorkflowID)
	if len(events) != 1 || events[0].Type != event.TypeWorkflowStarted {
		t.Fatalf("recorded events = %+v, want one workflow.started", events)
	}
	if _, ok := intake.store.Predecessor(events[0].ID); ok {
		t.Error("workflow.started has a causal predecessor, want none")
	}
}

func TestStartWorkflowRequiresFields(t *testing.T) {
	intake := newTestIntake(t)
	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing both", map[string]string{}},
		{"missing email", map[string]string{"imageUrl": "https://example.com/a.jpg"}},
		{"missing imageUrl", map[string]string{"email": "owner@example.com"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := postWorkflow(t, intake, tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if len(intake.pub.Published()) != 0 {
				t.Fatalf("published %d messages for rejected intake, want 0", len(intake.pub.Published()))
			}
		})
	}
}

func TestStartWorkflowRejectsNonImageURL(t *testing.T) {
	intake := newTestIntake(t)
	pageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
	}))
	t.Cleanup(pageServer.Close)

	resp := postWorkflow(t, intake, map[string]string{
		"imageUrl": pageServer.URL,
		"email":    "owner@example.com",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if len(intake.pub.Published()) != 0 {
		t.Error("workflow published despite rejected URL")
	}
}

func TestGetWorkflowReturnsOrderedEvents(t *testing.T) {
	intake := newTestIntake(t)

	started := event.New(event.TypeWorkflowStarted, "wf-1", nil)
	fetched := event.New(event.TypeImageFetched, "wf-1", nil)
	if _, err := intake.store.RecordEvent(context.Background(), started, ""); err != nil {
		t.Fatalf("record: %v", err)
	}
	if _, err := intake.store.RecordEvent(context.Background(), fetched, event.TypeWorkflowStarted); err != nil {
		t.Fatalf("record: %v", err)
	}

	resp, err := http.Get(intake.server.URL + "/workflows/wf-1")
	if err != nil {
		t.Fatalf("GET /workflows/wf-1: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var view struct {
		WorkflowID string          `json:"workflowId"`
		Events     []lineage.Event `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if view.WorkflowID != "wf-1" || len(view.Events) != 2 {
		t.Fatalf("view = %+v, want wf-1 with 2 events", view)
	}
	if view.Events[0].Type != event.TypeWorkflowStarted || view.Events[1].Type != event.TypeImageFetched {
		t.Errorf("event order = %s, %s; want workflow.started then image.fetched",
			view.Events[0].Type, view.Events[1].Type)
	}
}

func TestGetUnknownWorkflow(t *testing.T) {
	intake := newTestIntake(t)
	resp, err := http.Get(intake.server.URL + "/workflows/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	intake := newTestIntake(t)
	resp, err := http.Get(intake.server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %q, want ok", body["status"])
	}
}

func TestMethodNotAllowed(t *testing.T) {
	intake := newTestIntake(t)
	resp, err := http.Get(intake.server.URL + "/workflows")
	if err != nil {
		t.Fatalf("GET /workflows: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", resp.StatusCode)
	}
}
