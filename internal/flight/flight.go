// Package flight collapses concurrent summary computations for the same
// period key onto one in-flight call. The scope is process-local: two backend
// instances can still compute the same period concurrently, in which case the
// cache store's last-write-wins upsert arbitrates.
package flight

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"yourbody/internal/core"
	"yourbody/internal/logger"
)

// Group deduplicates in-flight computations per key. The zero value is ready
// to use.
type Group struct {
	sf singleflight.Group
}

// Result carries the shared artifact plus whether this caller attached to a
// computation another caller was already leading.
type Result struct {
	Artifact core.SummaryArtifact
	Shared   bool
}

// Do runs compute under key, or attaches to an in-flight run of it. Every
// waiter receives the same artifact. A panicking computation publishes a
// terminal error-status artifact to all waiters instead of propagating, so a
// key can never stay stuck in flight.
func (g *Group) Do(key core.PeriodKey, compute func() core.SummaryArtifact) Result {
	v, _, shared := g.sf.Do(key.String(), func() (val any, err error) {
		defer func() {
			if r := recover(); r != nil {
				val = failureArtifact(key, fmt.Sprintf("panic: %v", r))
			}
		}()
		return compute(), nil
	})
	return Result{Artifact: v.(core.SummaryArtifact), Shared: shared}
}

// failureArtifact is the terminal artifact waiters see when the leader's
// computation blew up before producing one. The raw detail goes to the log,
// never to the caller.
func failureArtifact(key core.PeriodKey, detail string) core.SummaryArtifact {
	logger.Warn("summary computation failed in flight", "key", key.String(), "detail", detail)
	return core.SummaryArtifact{
		ID:          uuid.NewString(),
		Key:         key,
		GeneratedAt: time.Now().UTC(),
		Status:      core.StatusError,
		ErrorDetail: "summary generation failed, please try again later",
	}
}
