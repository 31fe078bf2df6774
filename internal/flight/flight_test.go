package flight

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"yourbody/internal/core"
)

func flightKey(start string) core.PeriodKey {
	return core.PeriodKey{UserID: 1, Type: core.PeriodDay, Start: start, TZOffsetMinutes: 0}
}

func TestDo_SingleCaller(t *testing.T) {
	var g Group
	artifact := core.SummaryArtifact{ID: "a1", Status: core.StatusOK}

	res := g.Do(flightKey("2025-01-15"), func() core.SummaryArtifact {
		return artifact
	})

	if res.Artifact.ID != "a1" {
		t.Errorf("Expected artifact a1, got %s", res.Artifact.ID)
	}
}

func TestDo_CollapsesConcurrentCallers(t *testing.T) {
	var g Group
	var calls int32
	started := make(chan struct{})
	release := make(chan struct{})

	compute := func() core.SummaryArtifact {
		atomic.AddInt32(&calls, 1)
		close(started)
		<-release
		return core.SummaryArtifact{ID: "shared", Status: core.StatusOK}
	}

	const n = 10
	results := make([]Result, n)
	var wg sync.WaitGroup

	// Leader first, so the waiters are guaranteed to attach.
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = g.Do(flightKey("2025-01-15"), compute)
	}()
	<-started

	for i := 1; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = g.Do(flightKey("2025-01-15"), compute)
		}(i)
	}

	// Give the waiters a moment to attach before releasing the leader.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("Expected exactly 1 computation, got %d", got)
	}
	for i, res := range results {
		if res.Artifact.ID != "shared" {
			t.Errorf("Caller %d got artifact %s, expected shared", i, res.Artifact.ID)
		}
	}
}

func TestDo_DistinctKeysDoNotCollapse(t *testing.T) {
	var g Group
	var calls int32
	compute := func() core.SummaryArtifact {
		atomic.AddInt32(&calls, 1)
		return core.SummaryArtifact{Status: core.StatusOK}
	}

	g.Do(flightKey("2025-01-15"), compute)
	g.Do(flightKey("2025-01-16"), compute)

	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 computations for distinct keys, got %d", got)
	}
}

func TestDo_ClearsAfterCompletion(t *testing.T) {
	var g Group
	var calls int32
	compute := func() core.SummaryArtifact {
		atomic.AddInt32(&calls, 1)
		return core.SummaryArtifact{Status: core.StatusOK}
	}

	g.Do(flightKey("2025-01-15"), compute)
	g.Do(flightKey("2025-01-15"), compute)

	// Sequential calls must each run: the in-flight marker is transient.
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Errorf("Expected 2 sequential computations, got %d", got)
	}
}

func TestDo_PanicPublishesErrorArtifact(t *testing.T) {
	var g Group
	key := flightKey("2025-01-15")

	res := g.Do(key, func() core.SummaryArtifact {
		panic("provider exploded")
	})

	if res.Artifact.Status != core.StatusError {
		t.Fatalf("Expected error artifact, got status %s", res.Artifact.Status)
	}
	if res.Artifact.ErrorDetail == "" {
		t.Error("Expected a user-safe error detail")
	}
	if res.Artifact.Key != key {
		t.Errorf("Expected artifact keyed by %s, got %s", key, res.Artifact.Key)
	}

	// The key must not be stuck in flight: a later call runs normally.
	res = g.Do(key, func() core.SummaryArtifact {
		return core.SummaryArtifact{ID: "recovered", Status: core.StatusOK}
	})
	if res.Artifact.ID != "recovered" {
		t.Error("Key stayed stuck after a failed computation")
	}
}
