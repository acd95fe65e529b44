package observability

import (
	"context"
	"testing"
	"time"
)

type recordingStoreHooks struct {
	hits, misses, writes, evicts int
}

func (r *recordingStoreHooks) OnHit(context.Context, string, string)        { r.hits++ }
func (r *recordingStoreHooks) OnMiss(context.Context, string, string, bool) { r.misses++ }
func (r *recordingStoreHooks) OnWrite(context.Context, string, string, int) { r.writes++ }
func (r *recordingStoreHooks) OnEvict(context.Context, string, string)      { r.evicts++ }

func TestStoreHooksRegistration(t *testing.T) {
	rec := &recordingStoreHooks{}
	SetStoreHooks(rec)
	defer SetStoreHooks(nil)

	ctx := context.Background()
	Store().OnHit(ctx, "file", "k")
	Store().OnMiss(ctx, "file", "k", true)
	Store().OnWrite(ctx, "file", "k", 10)
	Store().OnEvict(ctx, "file", "k")

	if rec.hits != 1 || rec.misses != 1 || rec.writes != 1 || rec.evicts != 1 {
		t.Errorf("hooks not invoked: %+v", rec)
	}
}

func TestNilRestoresNoop(t *testing.T) {
	SetStoreHooks(&recordingStoreHooks{})
	SetStoreHooks(nil)

	// Must not panic.
	Store().OnHit(context.Background(), "file", "k")
	SetResolveHooks(nil)
	Resolve().OnResolveComplete(context.Background(), 1, 2, time.Second)
}
