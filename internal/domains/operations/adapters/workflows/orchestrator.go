package workflows

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	oteltrace "go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	opapp "github.com/Apurer/book-distribution-api/internal/domains/operations/application"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/domain"
	"github.com/Apurer/book-distribution-api/internal/domains/operations/ports"
	orderactivities "github.com/Apurer/book-distribution-api/internal/platform/temporal/activities/orders"
	orderworkflows "github.com/Apurer/book-distribution-api/internal/platform/temporal/workflows/orders"
)

var (
	_ ports.WorkflowOrchestrator = (*TemporalOrderWorkflows)(nil)
	_ ports.WorkflowOrchestrator = (*InlineOrderWorkflows)(nil)
)

// Option customises an order orchestrator.
type Option func(*keyGuard)

// WithIdempotencyStore remembers Idempotency-Key submissions in store.
func WithIdempotencyStore(store ports.IdempotencyStore) Option {
	return func(g *keyGuard) { g.keys = store }
}

// keyGuard replays or rejects repeated Idempotency-Key submissions through an IdempotencyStore.
type keyGuard struct {
	service ports.Service
	keys    ports.IdempotencyStore
}

func newKeyGuard(service ports.Service, opts []Option) keyGuard {
	g := keyGuard{service: service}
	for _, opt := range opts {
		if opt != nil {
			opt(&g)
		}
	}
	return g
}

// submit runs fn at most once per scoped key. A known key with the same order replays the stored
// operation; with a different order it is a conflict.
func (g keyGuard) submit(ctx context.Context, input ports.SubmitOrderInput, fn func(context.Context) (*domain.Operation, error)) (*domain.Operation, error) {
	if g.keys == nil || strings.TrimSpace(input.IdempotencyKey) == "" {
		return fn(ctx)
	}

	key := opapp.ScopedIdempotencyKey(input.CustomerID, input.IdempotencyKey)
	hash, err := opapp.FingerprintOrder(input.CustomerID, input.Lines)
	if err != nil {
		return nil, err
	}
	existing, err := g.keys.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return g.replay(ctx, existing, hash)
	}

	op, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	stored, err := g.keys.Save(ctx, ports.IdempotencyRecord{Key: key, RequestHash: hash, OperationID: op.ID})
	if errors.Is(err, ports.ErrIdempotencyConflict) {
		return g.replay(ctx, stored, hash)
	}
	if err != nil {
		return nil, err
	}
	return op, nil
}

func (g keyGuard) replay(ctx context.Context, record *ports.IdempotencyRecord, hash string) (*domain.Operation, error) {
	if record == nil || record.RequestHash != hash {
		return nil, &domain.ConflictError{Reason: domain.ReasonKeyReused}
	}
	return g.service.GetOperation(ctx, record.OperationID)
}

// TemporalOrderWorkflows starts order workflows on a Temporal cluster.
type TemporalOrderWorkflows struct {
	client    client.Client
	taskQueue string
	guard     keyGuard
}

// NewTemporalOrderWorkflows wires a Temporal client into the orchestrator. service resolves
// replayed submissions recorded in the idempotency store.
func NewTemporalOrderWorkflows(c client.Client, service ports.Service, opts ...Option) *TemporalOrderWorkflows {
	return &TemporalOrderWorkflows{
		client:    c,
		taskQueue: orderworkflows.OrderSubmissionTaskQueue,
		guard:     newKeyGuard(service, opts),
	}
}

// SubmitOrder runs the submission workflow and waits for its result. A repeated idempotency key
// returns the result of the first run when the order lines match, and a conflict otherwise.
func (o *TemporalOrderWorkflows) SubmitOrder(ctx context.Context, input ports.SubmitOrderInput) (*domain.Operation, error) {
	if o == nil || o.client == nil {
		return nil, errors.New("temporal order workflows not configured")
	}
	return o.guard.submit(ctx, input, func(ctx context.Context) (*domain.Operation, error) {
		return o.execute(ctx, input)
	})
}

func (o *TemporalOrderWorkflows) execute(ctx context.Context, input ports.SubmitOrderInput) (*domain.Operation, error) {
	traceComponent := workflowTraceComponent(ctx)
	workflowID := buildOrderSubmissionWorkflowID(input, traceComponent)
	options := client.StartWorkflowOptions{
		ID:        workflowID,
		TaskQueue: o.taskQueue,
		// A completed submission keeps its id; a failed one (gate conflict, outage) may be retried.
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	run, err := o.client.ExecuteWorkflow(
		ctx,
		options,
		orderworkflows.OrderSubmissionWorkflowName,
		orderworkflows.OrderSubmissionWorkflowInput{Command: input, TraceID: traceComponent},
	)
	replayed := false
	if err != nil {
		var alreadyStarted *serviceerror.WorkflowExecutionAlreadyStarted
		if !errors.As(err, &alreadyStarted) || strings.TrimSpace(input.IdempotencyKey) == "" {
			return nil, err
		}
		run = o.client.GetWorkflow(ctx, workflowID, alreadyStarted.RunId)
		replayed = true
	}
	var op domain.Operation
	if err := run.Get(ctx, &op); err != nil {
		return nil, orderactivities.DecodeError(err)
	}
	if replayed {
		if err := sameOrder(input, &op); err != nil {
			return nil, err
		}
	}
	return &op, nil
}

// sameOrder rejects a replayed run whose order differs from the resubmitted one.
func sameOrder(input ports.SubmitOrderInput, op *domain.Operation) error {
	want, err := opapp.FingerprintOrder(input.CustomerID, input.Lines)
	if err != nil {
		return err
	}
	lines := make([]domain.Line, 0, len(op.Items))
	for _, item := range op.Items {
		lines = append(lines, domain.Line{BookID: item.BookID, Quantity: item.Quantity})
	}
	got, err := opapp.FingerprintOrder(op.CustomerID, lines)
	if err != nil {
		return err
	}
	if got != want {
		return &domain.ConflictError{Reason: domain.ReasonKeyReused}
	}
	return nil
}

// InlineOrderWorkflows executes the service directly without Temporal, useful for tests or dev fallbacks.
// With an idempotency store, a repeated key replays the stored order instead of submitting again.
type InlineOrderWorkflows struct {
	service ports.Service
	guard   keyGuard
}

// NewInlineOrderWorkflows wraps the operations service for synchronous execution.
func NewInlineOrderWorkflows(service ports.Service, opts ...Option) *InlineOrderWorkflows {
	return &InlineOrderWorkflows{service: service, guard: newKeyGuard(service, opts)}
}

// SubmitOrder delegates to the application service without durable orchestration.
func (o *InlineOrderWorkflows) SubmitOrder(ctx context.Context, input ports.SubmitOrderInput) (*domain.Operation, error) {
	if o == nil || o.service == nil {
		return nil, errors.New("inline order workflows not configured")
	}
	return o.guard.submit(ctx, input, func(ctx context.Context) (*domain.Operation, error) {
		return o.service.SubmitOrder(ctx, input.CustomerID, input.Lines)
	})
}

func buildOrderSubmissionWorkflowID(input ports.SubmitOrderInput, traceComponent string) string {
	if key := strings.TrimSpace(input.IdempotencyKey); key != "" {
		// Scoped by customer so two customers cannot collide on the same key.
		return fmt.Sprintf("order-submission-%d-idem-%s", input.CustomerID, hashIdempotencyKey(key))
	}
	return fmt.Sprintf("order-submission-%d-%s", input.CustomerID, traceComponent)
}

func hashIdempotencyKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:8])
}

func workflowTraceComponent(ctx context.Context) string {
	if traceComponent := workflowTraceID(ctx); traceComponent != "" {
		return traceComponent
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}

func workflowTraceID(ctx context.Context) string {
	spanCtx := oteltrace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}
