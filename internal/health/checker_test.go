package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/bulletin-api/internal/domain"
	"github.com/phrazzld/bulletin-api/internal/store/storetest"
)

type fakeDB struct {
	err error
}

func (f *fakeDB) PingContext(_ context.Context) error {
	return f.err
}

// fakeRedis answers the commands the checker issues from an in-memory map.
type fakeRedis struct {
	values  map[string]string
	failSet bool
	failGet bool
	pingErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (f *fakeRedis) Ping(ctx context.Context) *redis.StatusCmd {
	if f.pingErr != nil {
		return redis.NewStatusResult("", f.pingErr)
	}
	return redis.NewStatusResult("PONG", nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	if f.failSet {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	f.values[key] = value.(string)
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failGet {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	val, ok := f.values[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(val, nil)
}

func (f *fakeRedis) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	for _, key := range keys {
		delete(f.values, key)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

type fakeInspector struct {
	servers []*asynq.ServerInfo
	err     error
}

func (f *fakeInspector) Servers() ([]*asynq.ServerInfo, error) {
	return f.servers, f.err
}

func healthyChecker(t *testing.T) *Checker {
	t.Helper()
	messages := storetest.NewMessageStore()
	msg, err := domain.NewMessage("a message")
	require.NoError(t, err)
	msg.MarkProcessed(time.Now().UTC(), "task-1")
	messages.Seed(msg)

	inspector := &fakeInspector{servers: []*asynq.ServerInfo{
		{Queues: map[string]int{"default": 1}},
	}}

	return NewChecker(&fakeDB{}, newFakeRedis(), inspector,
		messages, storetest.NewTaskLogStore(), nil)
}

func TestCheckAllHealthy(t *testing.T) {
	report := healthyChecker(t).Check(context.Background())

	assert.Equal(t, StatusHealthy, report.Status)
	assert.True(t, report.Healthy())
	assert.Equal(t, 4, report.Summary.TotalChecks)
	assert.Equal(t, 4, report.Summary.Passed)
	assert.Equal(t, 0, report.Summary.Failed)
	assert.Contains(t, report.Checks, "database")
	assert.Contains(t, report.Checks, "redis")
	assert.Contains(t, report.Checks, "worker")
	assert.Contains(t, report.Checks, "application")
}

func TestCheckDatabase(t *testing.T) {
	t.Run("ping failure", func(t *testing.T) {
		checker := NewChecker(&fakeDB{err: errors.New("dial tcp: refused")},
			newFakeRedis(), &fakeInspector{},
			storetest.NewMessageStore(), storetest.NewTaskLogStore(), nil)

		result := checker.CheckDatabase(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
	})

	t.Run("includes message count", func(t *testing.T) {
		result := healthyChecker(t).CheckDatabase(context.Background())
		require.Equal(t, StatusHealthy, result.Status)
		assert.Equal(t, int64(1), result.Details["message_count"])
	})
}

func TestCheckRedis(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		rdb := newFakeRedis()
		checker := NewChecker(&fakeDB{}, rdb, &fakeInspector{},
			storetest.NewMessageStore(), storetest.NewTaskLogStore(), nil)

		result := checker.CheckRedis(context.Background())
		assert.Equal(t, StatusHealthy, result.Status)
		assert.Empty(t, rdb.values, "probe key should be deleted")
	})

	t.Run("write failure", func(t *testing.T) {
		checker := NewChecker(&fakeDB{}, &fakeRedis{failSet: true}, &fakeInspector{},
			storetest.NewMessageStore(), storetest.NewTaskLogStore(), nil)

		result := checker.CheckRedis(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
	})

	t.Run("read failure", func(t *testing.T) {
		checker := NewChecker(&fakeDB{}, &fakeRedis{values: map[string]string{}, failGet: true},
			&fakeInspector{}, storetest.NewMessageStore(), storetest.NewTaskLogStore(), nil)

		result := checker.CheckRedis(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
	})
}

func TestCheckWorker(t *testing.T) {
	t.Run("no servers", func(t *testing.T) {
		checker := NewChecker(&fakeDB{}, newFakeRedis(), &fakeInspector{},
			storetest.NewMessageStore(), storetest.NewTaskLogStore(), nil)

		result := checker.CheckWorker(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
		assert.Equal(t, "no workers are running", result.Message)
	})

	t.Run("inspection error", func(t *testing.T) {
		checker := NewChecker(&fakeDB{}, newFakeRedis(),
			&fakeInspector{err: errors.New("redis down")},
			storetest.NewMessageStore(), storetest.NewTaskLogStore(), nil)

		result := checker.CheckWorker(context.Background())
		assert.Equal(t, StatusUnhealthy, result.Status)
	})

	t.Run("running servers", func(t *testing.T) {
		result := healthyChecker(t).CheckWorker(context.Background())
		require.Equal(t, StatusHealthy, result.Status)
		assert.Equal(t, 1, result.Details["servers"])
	})
}

func TestCheckApplication(t *testing.T) {
	result := healthyChecker(t).CheckApplication(context.Background())

	require.Equal(t, StatusHealthy, result.Status)
	assert.Equal(t, int64(1), result.Details["total_messages"])
	assert.Equal(t, int64(1), result.Details["processed_messages"])
	assert.Equal(t, int64(0), result.Details["pending_messages"])
	assert.Equal(t, 100.0, result.Details["processing_rate"])
	assert.Equal(t, int64(1), result.Details["messages_24h"])
}

func TestHealthEndpoint(t *testing.T) {
	t.Run("healthy responds 200", func(t *testing.T) {
		handler := NewHandler(healthyChecker(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		handler.Health(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var report Report
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
		assert.Equal(t, StatusHealthy, report.Status)
		assert.GreaterOrEqual(t, report.ResponseTimeMS, int64(0))
	})

	t.Run("any failure responds 503", func(t *testing.T) {
		checker := NewChecker(&fakeDB{err: errors.New("down")}, newFakeRedis(),
			&fakeInspector{servers: []*asynq.ServerInfo{{}}},
			storetest.NewMessageStore(), storetest.NewTaskLogStore(), nil)
		handler := NewHandler(checker, nil)

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rr := httptest.NewRecorder()
		handler.Health(rr, req)

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var report Report
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&report))
		assert.Equal(t, StatusUnhealthy, report.Status)
		assert.Equal(t, 1, report.Summary.Failed)
	})
}

func TestReadinessEndpoint(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		handler := NewHandler(healthyChecker(t), nil)

		req := httptest.NewRequest(http.MethodGet, "/health/readiness", nil)
		rr := httptest.NewRecorder()
		handler.Readiness(rr, req)

		require.Equal(t, http.StatusOK, rr.Code)
		var resp map[string]interface{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "ready", resp["status"])
	})

	t.Run("not ready when redis is down", func(t *testing.T) {
		checker := NewChecker(&fakeDB{}, &fakeRedis{pingErr: errors.New("refused")},
			&fakeInspector{}, storetest.NewMessageStore(), storetest.NewTaskLogStore(), nil)
		handler := NewHandler(checker, nil)

		req := httptest.NewRequest(http.MethodGet, "/health/readiness", nil)
		rr := httptest.NewRecorder()
		handler.Readiness(rr, req)

		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		var resp map[string]interface{}
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
		assert.Equal(t, "not_ready", resp["status"])
	})
}

func TestLivenessEndpoint(t *testing.T) {
	handler := NewHandler(healthyChecker(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/health/liveness", nil)
	rr := httptest.NewRecorder()
	handler.Liveness(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.Equal(t, "alive", resp["status"])
}
