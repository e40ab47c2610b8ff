package api

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"darkroom/internal/bus"
	"darkroom/internal/event"
	"darkroom/internal/lineage"
	"darkroom/internal/logging"
	"darkroom/internal/services"
	"darkroom/internal/stage"
)

// URLValidator is the capability the intake service needs to vet a source
// image URL before admitting a workflow.
type URLValidator interface {
	Validate(ctx context.Context, imageURL string) error
}

// StartResult is the response body for an admitted workflow.
type StartResult struct {
	WorkflowID string `json:"workflowId"`
	Status     string `json:"status"`
}

// WorkflowView is the response body for a status query.
type WorkflowView struct {
	WorkflowID string          `json:"workflowId"`
	Events     []lineage.Event `json:"events"`
}

// WorkflowService admits new workflows and answers status queries. It is
// the only producer of workflow.started.
type WorkflowService struct {
	validator URLValidator
	store     lineage.Store
	pub       bus.Publisher
	logger    *slog.Logger
}

// NewWorkflowService wires the intake service.
func NewWorkflowService(validator URLValidator, store lineage.Store, pub bus.Publisher, logger *slog.Logger) *WorkflowService {
	return &WorkflowService{
		validator: validator,
		store:     store,
		pub:       pub,
		logger:    logging.NewComponentLogger(logger, "api"),
	}
}

// Start validates the request, creates the workflow root, and publishes
// workflow.started. Rejected input never creates a workflow.
func (s *WorkflowService) Start(ctx context.Context, imageURL, email string) (StartResult, error) {
	imageURL = strings.TrimSpace(imageURL)
	email = strings.TrimSpace(email)
	if imageURL == "" || email == "" {
		return StartResult{}, services.Wrap(services.ErrValidation, "api", "start",
			"imageUrl and email are required", nil)
	}
	if err := s.validator.Validate(ctx, imageURL); err != nil {
		return StartResult{}, err
	}

	workflowID := uuid.NewString()
	if err := s.store.CreateWorkflow(ctx, workflowID, email); err != nil {
		return StartResult{}, err
	}

	env := event.New(event.TypeWorkflowStarted, workflowID, event.Payload{
		"imageUrl": imageURL,
		"email":    email,
	})
	if err := stage.Emit(ctx, s.pub, s.store, env, ""); err != nil {
		return StartResult{}, err
	}
	s.logger.Info("workflow started",
		logging.String(logging.FieldWorkflowID, workflowID),
		logging.String("image_url", imageURL),
	)

	return StartResult{WorkflowID: workflowID, Status: "started"}, nil
}

// Get returns the workflow's recorded events ordered by timestamp.
func (s *WorkflowService) Get(ctx context.Context, workflowID string) (WorkflowView, error) {
	events, err := s.store.WorkflowEvents(ctx, workflowID)
	if err != nil {
		return WorkflowView{}, err
	}
	if len(events) == 0 {
		return WorkflowView{}, services.Wrap(services.ErrNotFound, "api", "get",
			"workflow "+workflowID, nil)
	}
	return WorkflowView{WorkflowID: workflowID, Events: events}, nil
}
