package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
	ledgerdomain "github.com/smallbiznis/vaultload/internal/ledger/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	mu   sync.Mutex
	sets map[string]map[string]struct{}
	kv   map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{sets: map[string]map[string]struct{}{}, kv: map[string]string{}}
}

func (f *fakeRedis) SIsMember(_ context.Context, key string, member interface{}) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.sets[key][member.(string)]
	return redis.NewBoolResult(ok, nil)
}

func (f *fakeRedis) SAdd(_ context.Context, key string, members ...interface{}) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sets[key] == nil {
		f.sets[key] = map[string]struct{}{}
	}
	var added int64
	for _, m := range members {
		if _, ok := f.sets[key][m.(string)]; !ok {
			f.sets[key][m.(string)] = struct{}{}
			added++
		}
	}
	return redis.NewIntResult(added, nil)
}

func (f *fakeRedis) SetNX(_ context.Context, key string, value interface{}, _ time.Duration) *redis.BoolCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.kv[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.kv[key] = value.(string)
	return redis.NewBoolResult(true, nil)
}

func (f *fakeRedis) release(keys []string, args []interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.kv[keys[0]] == args[0].(string) {
		delete(f.kv, keys[0])
		return redis.NewCmdResult(int64(1), nil)
	}
	return redis.NewCmdResult(int64(0), nil)
}

func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.release(keys, args)
}

func (f *fakeRedis) EvalSha(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	return f.release(keys, args)
}

func (f *fakeRedis) EvalRO(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	return f.Eval(ctx, script, keys, args...)
}

func (f *fakeRedis) EvalShaRO(ctx context.Context, sha string, keys []string, args ...interface{}) *redis.Cmd {
	return f.EvalSha(ctx, sha, keys, args...)
}

func (f *fakeRedis) ScriptExists(_ context.Context, hashes ...string) *redis.BoolSliceCmd {
	return redis.NewBoolSliceResult(make([]bool, len(hashes)), nil)
}

func (f *fakeRedis) ScriptLoad(_ context.Context, _ string) *redis.StringCmd {
	return redis.NewStringResult("sha", nil)
}

func TestRedisLedger(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	l := NewRedisLedger(client, "")

	ok, err := l.IsProcessed(ctx, "a.csv")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.MarkProcessed(ctx, ledgerdomain.Entry{FileID: "a.csv"}))
	ok, err = l.IsProcessed(ctx, "a.csv")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, client.sets, "vaultload:processed_files")
}

type failingSets struct{}

func (failingSets) SIsMember(context.Context, string, interface{}) *redis.BoolCmd {
	return redis.NewBoolResult(false, errors.New("connection refused"))
}

func (failingSets) SAdd(context.Context, string, ...interface{}) *redis.IntCmd {
	return redis.NewIntResult(0, errors.New("connection refused"))
}

func TestRedisLedgerPropagatesErrors(t *testing.T) {
	l := NewRedisLedger(failingSets{}, "k")
	_, err := l.IsProcessed(context.Background(), "a.csv")
	assert.Error(t, err)
	assert.Error(t, l.MarkProcessed(context.Background(), ledgerdomain.Entry{FileID: "a.csv"}))
}

func TestLockerTryLockAndRelease(t *testing.T) {
	ctx := context.Background()
	client := newFakeRedis()
	locker := NewLocker(client)
	key := LockKey("20240305.csv")
	assert.True(t, strings.HasPrefix(key, "vaultload:lock:"))
	assert.NotContains(t, key, ".")

	token, ok, err := locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotEmpty(t, token)

	_, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, key, "other-token"))
	_, ok, _ = locker.TryLock(ctx, key, time.Minute)
	assert.False(t, ok)

	require.NoError(t, locker.Release(ctx, key, token))
	_, ok, err = locker.TryLock(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockerValidation(t *testing.T) {
	locker := NewLocker(newFakeRedis())
	_, _, err := locker.TryLock(context.Background(), "", time.Minute)
	assert.Error(t, err)
	_, _, err = locker.TryLock(context.Background(), "k", 0)
	assert.Error(t, err)

	var nilLocker *Locker
	_, _, err = nilLocker.TryLock(context.Background(), "k", time.Minute)
	assert.Error(t, err)
	assert.NoError(t, nilLocker.Release(context.Background(), "k", "t"))

	assert.Nil(t, ProvideLocker(nil))
}
