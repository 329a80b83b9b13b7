package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestCancelRegistry_Running(t *testing.T) {
	r := NewCancelRegistry(time.Minute)
	id := uuid.New()

	flag := r.Register(id)
	assert.False(t, flag.CancelRequested())
	assert.True(t, r.Cancel(id))
	assert.True(t, flag.CancelRequested())

	r.Unregister(id)
	assert.False(t, r.Cancel(id))
}

func TestCancelRegistry_PendingAppliedOnRegister(t *testing.T) {
	r := NewCancelRegistry(time.Minute)
	id := uuid.New()

	assert.False(t, r.Cancel(id))
	assert.Equal(t, 1, r.pendingCount())

	assert.True(t, r.Register(id).CancelRequested())
	assert.Equal(t, 0, r.pendingCount())
	assert.False(t, r.Register(uuid.New()).CancelRequested())
}

func TestCancelRegistry_PendingExpires(t *testing.T) {
	r := NewCancelRegistry(time.Minute)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	stale, fresh := uuid.New(), uuid.New()
	r.Cancel(stale)
	now = now.Add(2 * time.Minute)
	assert.False(t, r.Register(stale).CancelRequested())

	r.Cancel(uuid.New())
	now = now.Add(2 * time.Minute)
	r.Cancel(fresh)
	assert.Equal(t, 1, r.pendingCount(), "expired entries are purged on Cancel")
	assert.True(t, r.Register(fresh).CancelRequested())
}

func TestCancelJobUseCase(t *testing.T) {
	r := NewCancelRegistry(time.Minute)
	dlq := &fakeDLQ{}
	uc := NewCancelJobUseCase(r, dlq, zap.NewNop())

	id := uuid.New()
	flag := r.Register(id)
	require.NoError(t, uc.Execute(context.Background(), []byte(`{"job_id":"`+id.String()+`"}`)))
	assert.True(t, flag.CancelRequested())

	require.NoError(t, uc.Execute(context.Background(), []byte(`{"job_id":"`+uuid.New().String()+`"}`)))
	assert.Equal(t, 1, r.pendingCount())

	require.NoError(t, uc.Execute(context.Background(), []byte(`garbage`)))
	require.NoError(t, uc.Execute(context.Background(), []byte(`{}`)))
	require.Len(t, dlq.reasons, 2)
	assert.Contains(t, dlq.reasons[0], "unmarshal_error")
	assert.Equal(t, "missing job_id", dlq.reasons[1])
}
