// internal/app/notify/engine/fanout.go
package engine

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/lgsf/teamhub/internal/app/notify/target"
	"github.com/lgsf/teamhub/internal/domain/models"
)

// Payload is the caller-supplied content of a targeting request. Data is
// shallow-merged with provenance metadata before persisting; provenance keys
// win on conflict.
type Payload struct {
	Type    string
	Title   string
	Message string
	Data    map[string]any
}

// CandidateFailure reports one candidate whose write failed inside a
// best-effort fan-out. Failures never abort the rest of the batch.
type CandidateFailure struct {
	UserID primitive.ObjectID
	Err    error
}

// fanOut writes one notification per candidate through the worker pool,
// unordered, and waits for all writes to settle. It returns the number of
// records actually written plus the per-candidate failures.
func (e *Engine) fanOut(ctx context.Context, candidates []target.Candidate, p Payload, provenance map[string]any) (int, []CandidateFailure) {
	if len(candidates) == 0 {
		return 0, nil
	}
	data := mergeData(p.Data, provenance)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		sent     int
		failures []CandidateFailure
	)
	for _, c := range candidates {
		userID := c.UserID
		wg.Add(1)
		err := e.pool.Submit(ctx, func(ctx context.Context) {
			defer wg.Done()
			_, err := e.notes.Insert(ctx, models.Notification{
				UserID:  userID,
				Type:    p.Type,
				Title:   p.Title,
				Message: p.Message,
				Data:    data,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures = append(failures, CandidateFailure{UserID: userID, Err: err})
				e.log.Warn("notification write failed",
					zap.String("user_id", userID.Hex()),
					zap.String("type", p.Type),
					zap.Error(err))
				return
			}
			sent++
		})
		if err != nil {
			wg.Done()
			mu.Lock()
			failures = append(failures, CandidateFailure{UserID: userID, Err: err})
			mu.Unlock()
		}
	}
	wg.Wait()
	return sent, failures
}

// mergeData shallow-merges provenance over the caller's data. Provenance
// keys always win.
func mergeData(caller, provenance map[string]any) map[string]any {
	out := make(map[string]any, len(caller)+len(provenance))
	for k, v := range caller {
		out[k] = v
	}
	for k, v := range provenance {
		out[k] = v
	}
	return out
}

// groupEligible applies the group-path override rules: a literal member-level
// opt-out and a literal group-level default opt-out each independently
// reject. Absent values never reject.
func groupEligible(g *models.Group, c target.Candidate) bool {
	if c.Member != nil && c.Member.OptedOut() {
		return false
	}
	if g.NotificationsDisabled() {
		return false
	}
	return true
}

// alertEligible applies the system-alert rule: an explicit master-switch
// opt-out rejects unless the alert is critical, which bypasses preferences
// entirely.
func alertEligible(c target.Candidate, bypassPreferences bool) bool {
	if bypassPreferences {
		return true
	}
	return c.User == nil || !c.User.Preferences.Notifications.ExplicitlyDisabled()
}
