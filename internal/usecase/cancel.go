package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/entity"
	"github.com/fiapx/fiapx-cutdetect-service/internal/domain/port"
	"github.com/fiapx/fiapx-cutdetect-service/internal/infra/metrics"
	"github.com/fiapx/fiapx-cutdetect-service/internal/scan"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultPendingCancelTTL = 30 * time.Minute

// CancelRegistry tracks the cancel flags of scans running in this process. A cancel for a
// job that is not running yet is remembered for ttl and applied when the job registers.
type CancelRegistry struct {
	mu      sync.Mutex
	running map[uuid.UUID]*scan.CancelFlag
	pending map[uuid.UUID]time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewCancelRegistry(ttl time.Duration) *CancelRegistry {
	if ttl <= 0 {
		ttl = DefaultPendingCancelTTL
	}
	return &CancelRegistry{
		running: make(map[uuid.UUID]*scan.CancelFlag),
		pending: make(map[uuid.UUID]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Register returns the flag a scan of jobID should observe. The flag is already cancelled
// when a cancel arrived before the job started.
func (r *CancelRegistry) Register(jobID uuid.UUID) *scan.CancelFlag {
	r.mu.Lock()
	defer r.mu.Unlock()

	flag := &scan.CancelFlag{}
	if at, ok := r.pending[jobID]; ok {
		delete(r.pending, jobID)
		if r.now().Sub(at) <= r.ttl {
			flag.Cancel()
		}
	}
	r.running[jobID] = flag
	return flag
}

func (r *CancelRegistry) Unregister(jobID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.running, jobID)
}

// Cancel requests cancellation of jobID and reports whether a scan of it was running.
func (r *CancelRegistry) Cancel(jobID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, at := range r.pending {
		if now.Sub(at) > r.ttl {
			delete(r.pending, id)
		}
	}

	if flag, ok := r.running[jobID]; ok {
		flag.Cancel()
		return true
	}
	r.pending[jobID] = now
	return false
}

func (r *CancelRegistry) pendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// CancelJobUseCase handles messages from the cancel queue.
type CancelJobUseCase struct {
	registry *CancelRegistry
	dlq      port.DLQPublisher
	logger   *zap.Logger
}

func NewCancelJobUseCase(registry *CancelRegistry, dlq port.DLQPublisher, logger *zap.Logger) *CancelJobUseCase {
	return &CancelJobUseCase{registry: registry, dlq: dlq, logger: logger}
}

func (uc *CancelJobUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	var msg entity.CancelMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil || msg.JobID == uuid.Nil {
		reason := "missing job_id"
		if err != nil {
			reason = "unmarshal_error: " + err.Error()
		}
		uc.logger.Error("invalid cancel message", zap.String("reason", reason), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, reason)
		return nil
	}

	state := "pending"
	if uc.registry.Cancel(msg.JobID) {
		state = "running"
	}
	metrics.CancelRequestsTotal.WithLabelValues(state).Inc()
	uc.logger.Info("cancel requested", zap.String("job_id", msg.JobID.String()), zap.String("state", state))
	return nil
}
