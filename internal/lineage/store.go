package lineage

import (
	"context"
	"log/slog"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"darkroom/internal/config"
	"darkroom/internal/event"
	"darkroom/internal/logging"
	"darkroom/internal/services"
)

// timestampLayout keeps a fixed millisecond width so string ordering in the
// graph matches chronological ordering.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Event is one recorded lineage fact, as returned to status queries.
type Event struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// Store is the capability stage handlers and the intake API use to persist
// and query workflow lineage.
type Store interface {
	// CreateWorkflow upserts the workflow root. The notification address is
	// set only when the node is first created and never mutated afterwards.
	CreateWorkflow(ctx context.Context, workflowID, email string) error
	// RecordEvent upserts the workflow, creates the event node with its
	// BELONGS_TO edge, and, when causedBy names a predecessor event type,
	// attempts the TRIGGERS edge. A missing predecessor is not an error;
	// edgeCreated reports whether the causal edge was written.
	RecordEvent(ctx context.Context, env event.Envelope, causedBy string) (edgeCreated bool, err error)
	// WorkflowEmail resolves the workflow's notification address. A missing
	// workflow or absent address yields ok=false with no error.
	WorkflowEmail(ctx context.Context, workflowID string) (email string, ok bool, err error)
	// WorkflowEvents lists recorded events for a workflow ordered by timestamp.
	WorkflowEvents(ctx context.Context, workflowID string) ([]Event, error)
}

const (
	upsertWorkflowQuery = `MERGE (w:Workflow {id: $wid})
ON CREATE SET w.email = $email`

	createEventQuery = `MERGE (w:Workflow {id: $wid})
CREATE (e:Event {id: $eid, type: $type, timestamp: $ts})
CREATE (e)-[:BELONGS_TO]->(w)`

	triggersQuery = `MATCH (w:Workflow {id: $wid})<-[:BELONGS_TO]-(prev:Event {type: $prevType})
WITH prev ORDER BY prev.timestamp DESC LIMIT 1
MATCH (cur:Event {id: $curId})
CREATE (prev)-[:TRIGGERS]->(cur)`

	workflowEmailQuery = `MATCH (w:Workflow {id: $wid})
RETURN w.email AS email`

	workflowEventsQuery = `MATCH (w:Workflow {id: $wid})<-[:BELONGS_TO]-(e:Event)
RETURN e.id AS id, e.type AS type, e.timestamp AS timestamp
ORDER BY e.timestamp`
)

// runResult is the narrow view of a query outcome the store needs.
type runResult struct {
	records              []map[string]any
	relationshipsCreated int
}

// graphSession abstracts one graph-store session so tests can substitute the
// driver. Every logical operation acquires its own session and closes it on
// every exit path.
type graphSession interface {
	Run(ctx context.Context, cypher string, params map[string]any) (runResult, error)
	Close(ctx context.Context) error
}

// Graph implements Store over a long-lived neo4j driver.
type Graph struct {
	driver     neo4j.DriverWithContext
	logger     *slog.Logger
	newSession func(ctx context.Context) graphSession
}

// Open connects to the graph store and verifies connectivity.
func Open(ctx context.Context, cfg config.Neo4j, logger *slog.Logger) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "lineage", "open driver", "", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, services.Wrap(services.ErrTransient, "lineage", "verify connectivity", "", err)
	}

	graph := &Graph{
		driver: driver,
		logger: logging.NewComponentLogger(logger, "lineage"),
	}
	graph.newSession = func(ctx context.Context) graphSession {
		return driverSession{sess: driver.NewSession(ctx, neo4j.SessionConfig{})}
	}
	return graph, nil
}

// Close releases the underlying driver.
func (g *Graph) Close(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}

func (g *Graph) CreateWorkflow(ctx context.Context, workflowID, email string) error {
	sess := g.newSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx, upsertWorkflowQuery, map[string]any{
		"wid":   workflowID,
		"email": email,
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "lineage", "upsert workflow", "", err)
	}
	return nil
}

func (g *Graph) RecordEvent(ctx context.Context, env event.Envelope, causedBy string) (bool, error) {
	sess := g.newSession(ctx)
	defer sess.Close(ctx)

	_, err := sess.Run(ctx, createEventQuery, map[string]any{
		"wid":  env.WorkflowID,
		"eid":  env.EventID,
		"type": env.EventType,
		"ts":   env.Timestamp.UTC().Format(timestampLayout),
	})
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "lineage", "record event", "", err)
	}

	if causedBy == "" {
		return false, nil
	}

	res, err := sess.Run(ctx, triggersQuery, map[string]any{
		"wid":      env.WorkflowID,
		"prevType": causedBy,
		"curId":    env.EventID,
	})
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "lineage", "link trigger", "", err)
	}
	if res.relationshipsCreated == 0 {
		// No matching predecessor yet; tolerate the disconnected fragment.
		logging.WithContext(ctx, g.logger).Debug("causal edge skipped",
			logging.String(logging.FieldEventID, env.EventID),
			logging.String("caused_by", causedBy),
		)
		return false, nil
	}
	return true, nil
}

func (g *Graph) WorkflowEmail(ctx context.Context, workflowID string) (string, bool, error) {
	sess := g.newSession(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, workflowEmailQuery, map[string]any{"wid": workflowID})
	if err != nil {
		return "", false, services.Wrap(services.ErrTransient, "lineage", "resolve email", "", err)
	}
	if len(res.records) == 0 {
		return "", false, nil
	}
	email, _ := res.records[0]["email"].(string)
	if email == "" {
		return "", false, nil
	}
	return email, true, nil
}

func (g *Graph) WorkflowEvents(ctx context.Context, workflowID string) ([]Event, error) {
	sess := g.newSession(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, workflowEventsQuery, map[string]any{"wid": workflowID})
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "lineage", "list events", "", err)
	}

	events := make([]Event, 0, len(res.records))
	for _, record := range res.records {
		evt := Event{}
		evt.ID, _ = record["id"].(string)
		evt.Type, _ = record["type"].(string)
		switch ts := record["timestamp"].(type) {
		case string:
			evt.Timestamp = ts
		case time.Time:
			evt.Timestamp = ts.UTC().Format(timestampLayout)
		}
		events = append(events, evt)
	}
	return events, nil
}

// driverSession adapts a neo4j session to the graphSession seam.
type driverSession struct {
	sess neo4j.SessionWithContext
}

func (d driverSession) Run(ctx context.Context, cypher string, params map[string]any) (runResult, error) {
	result, err := d.sess.Run(ctx, cypher, params)
	if err != nil {
		return runResult{}, err
	}

	var records []map[string]any
	for result.Next(ctx) {
		records = append(records, result.Record().AsMap())
	}
	if err := result.Err(); err != nil {
		return runResult{}, err
	}

	summary, err := result.Consume(ctx)
	if err != nil {
		return runResult{}, err
	}
	return runResult{
		records:              records,
		relationshipsCreated: summary.Counters().RelationshipsCreated(),
	}, nil
}

func (d driverSession) Close(ctx context.Context) error {
	return d.sess.Close(ctx)
}
