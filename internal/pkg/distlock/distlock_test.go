package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisLock_ExclusiveUntilReleased(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "outreach:sweep", time.Minute)
	b := NewRedisLock(client, "outreach:sweep", time.Minute)

	ok, err := a.Acquire(ctx)
	if err != nil || !ok {
		t.Fatalf("first Acquire = %v, %v", ok, err)
	}
	ok, err = b.Acquire(ctx)
	if err != nil {
		t.Fatalf("second Acquire: %v", err)
	}
	if ok {
		t.Fatal("second lock acquired while first is held")
	}

	// Releasing a lock we don't own must not free the key.
	if err := b.Release(ctx); err != nil {
		t.Fatalf("foreign Release: %v", err)
	}
	if ok, _ := b.Acquire(ctx); ok {
		t.Fatal("foreign Release freed the lock")
	}

	if err := a.Release(ctx); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("lock not acquirable after Release")
	}
}

func TestRedisLock_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	a := NewRedisLock(client, "k", 5*time.Second)
	if ok, _ := a.Acquire(ctx); !ok {
		t.Fatal("Acquire failed")
	}
	mr.FastForward(6 * time.Second)

	b := NewRedisLock(client, "k", 5*time.Second)
	if ok, _ := b.Acquire(ctx); !ok {
		t.Fatal("lock should be free after TTL")
	}
	if err := a.Extend(ctx, time.Minute); err == nil {
		t.Error("Extend should fail once ownership is lost")
	}
}

func TestRedisLock_ExtendResetsTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	var l DistLock = NewRedisLock(client, "outreach:sweep", 10*time.Second)
	if ok, _ := l.Acquire(ctx); !ok {
		t.Fatal("Acquire failed")
	}
	mr.FastForward(8 * time.Second)

	ext, ok := l.(Extender)
	if !ok {
		t.Fatal("RedisLock should implement Extender")
	}
	if err := ext.Extend(ctx, time.Minute); err != nil {
		t.Fatalf("Extend: %v", err)
	}
	if ttl := mr.TTL("lock:outreach:sweep"); ttl != time.Minute {
		t.Errorf("ttl after extend = %v, want 1m", ttl)
	}
}

func TestNewFactory_PicksBackend(t *testing.T) {
	if NewFactory(nil, nil) != nil {
		t.Error("expected nil factory without backends")
	}

	client, _ := setupTestRedis(t)
	f := NewFactory(client, nil)
	if _, ok := f("x", time.Second).(*RedisLock); !ok {
		t.Error("expected RedisLock when redis is configured")
	}

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	f = NewFactory(nil, db)
	if _, ok := f("x", time.Second).(*PGAdvisoryLock); !ok {
		t.Error("expected PGAdvisoryLock without redis")
	}
}

func TestPGAdvisoryLock_AcquireRelease(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	id := LockID("outreach:sweep")
	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(true))
	mock.ExpectExec("SELECT pg_advisory_unlock").
		WithArgs(id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	l := NewPGAdvisoryLock(db, "outreach:sweep")
	ok, err := l.Acquire(context.Background())
	if err != nil || !ok {
		t.Fatalf("Acquire = %v, %v", ok, err)
	}
	if err := l.Release(context.Background()); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPGAdvisoryLock_NotAcquired(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT pg_try_advisory_lock").
		WillReturnRows(sqlmock.NewRows([]string{"pg_try_advisory_lock"}).AddRow(false))

	l := NewPGAdvisoryLock(db, "busy")
	ok, err := l.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if ok {
		t.Error("expected lock not acquired")
	}
	// Release without holding is a no-op.
	if err := l.Release(context.Background()); err != nil {
		t.Errorf("Release: %v", err)
	}
}
