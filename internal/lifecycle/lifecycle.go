// Package lifecycle holds the reel status transition table and the result
// type every state-changing operation returns.
package lifecycle

import (
	"fmt"

	"github.com/maheshrc27/reelflow/internal/models"
)

type Outcome string

const (
	OK           Outcome = "ok"
	NotFound     Outcome = "not_found"
	InvalidState Outcome = "invalid_state"
	Conflict     Outcome = "conflict"
	Failed       Outcome = "failed"
)

var transitions = map[string][]string{
	models.ReelStatusPending:  {models.ReelStatusApproved, models.ReelStatusRejected},
	models.ReelStatusApproved: {models.ReelStatusPublished, models.ReelStatusRejected},
}

// CanTransition reports whether a reel may move from one status to another.
// Rejected and published are terminal.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func IsTerminal(status string) bool {
	return len(transitions[status]) == 0
}

// Result is the outcome of a lifecycle operation. Reel holds the current
// state whenever the reel exists.
type Result struct {
	Outcome   Outcome               `json:"outcome"`
	Reel      *models.GeneratedReel `json:"reel,omitempty"`
	Scheduled *models.ScheduledPost `json:"scheduled,omitempty"`
	Message   string                `json:"message,omitempty"`
}

func (r Result) OK() bool {
	return r.Outcome == OK
}

func Success(reel *models.GeneratedReel, scheduled *models.ScheduledPost) Result {
	return Result{Outcome: OK, Reel: reel, Scheduled: scheduled}
}

func Missing(reelID int64) Result {
	return Result{Outcome: NotFound, Message: fmt.Sprintf("reel %d not found", reelID)}
}

func Invalid(reel *models.GeneratedReel, action string) Result {
	return Result{
		Outcome: InvalidState,
		Reel:    reel,
		Message: fmt.Sprintf("cannot %s reel %d in status %s", action, reel.ID, reel.Status),
	}
}

func Conflicted(reel *models.GeneratedReel, format string, args ...any) Result {
	return Result{Outcome: Conflict, Reel: reel, Message: fmt.Sprintf(format, args...)}
}

func Failure(reel *models.GeneratedReel, scheduled *models.ScheduledPost, err error) Result {
	return Result{Outcome: Failed, Reel: reel, Scheduled: scheduled, Message: err.Error()}
}
