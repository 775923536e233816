package lifecycle

import (
	"errors"
	"testing"

	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	statuses := []string{models.ReelStatusPending, models.ReelStatusApproved, models.ReelStatusRejected, models.ReelStatusPublished}
	allowed := map[[2]string]bool{
		{models.ReelStatusPending, models.ReelStatusApproved}:   true,
		{models.ReelStatusPending, models.ReelStatusRejected}:   true,
		{models.ReelStatusApproved, models.ReelStatusPublished}: true,
		{models.ReelStatusApproved, models.ReelStatusRejected}:  true,
	}

	for _, from := range statuses {
		for _, to := range statuses {
			assert.Equal(t, allowed[[2]string{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, IsTerminal(models.ReelStatusRejected))
	assert.True(t, IsTerminal(models.ReelStatusPublished))
	assert.False(t, IsTerminal(models.ReelStatusPending))
	assert.False(t, IsTerminal(models.ReelStatusApproved))
}

func TestResultConstructors(t *testing.T) {
	reel := &models.GeneratedReel{ID: 3, Status: models.ReelStatusRejected}

	r := Invalid(reel, "approve")
	assert.Equal(t, InvalidState, r.Outcome)
	assert.Equal(t, "cannot approve reel 3 in status rejected", r.Message)
	assert.False(t, r.OK())

	assert.Equal(t, NotFound, Missing(9).Outcome)
	assert.True(t, Success(reel, nil).OK())
	assert.Equal(t, "no slots", Conflicted(reel, "no %s", "slots").Message)
	assert.Equal(t, "boom", Failure(reel, nil, errors.New("boom")).Message)
}
