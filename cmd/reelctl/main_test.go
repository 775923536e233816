package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/maheshrc27/reelflow/internal/lifecycle"
	"github.com/maheshrc27/reelflow/internal/models"
	"github.com/maheshrc27/reelflow/internal/transfer"
	"github.com/maheshrc27/reelflow/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	t        *testing.T
	lastAuth string
	lastBody map[string]any
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.lastAuth = r.Header.Get("Authorization")
	f.lastBody = nil
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)
	}

	at := time.Date(2030, 1, 15, 15, 0, 0, 0, time.UTC)
	reel := &models.GeneratedReel{ID: 7, Status: models.ReelStatusApproved, Theme: "discipline"}

	w.Header().Set("Content-Type", "application/json")
	switch r.Method + " " + r.URL.Path {
	case "GET /api/reels":
		writeJSON(w, http.StatusOK, []models.ReelDetail{{Reel: *reel, QuoteText: "Do the work."}})
	case "POST /api/reels/generate":
		writeJSON(w, http.StatusOK, transfer.GenerateResponse{Requested: 2, Generated: 2, ReelIDs: []int64{11, 12}})
	case "POST /api/reels/7/approve":
		writeJSON(w, http.StatusOK, lifecycle.Success(reel, &models.ScheduledPost{ReelID: 7, ScheduledTime: at, Status: models.PostStatusPending}))
	case "POST /api/reels/8/approve":
		writeJSON(w, http.StatusUnprocessableEntity, lifecycle.Result{Outcome: lifecycle.InvalidState, Message: "reel 8 is rejected"})
	case "GET /api/queue":
		writeJSON(w, http.StatusOK, models.QueueStatus{Pending: 2, Approved: 3, ScheduledPosts: 3, Target: 7})
	case "GET /api/calendar":
		assert.Equal(f.t, "3", r.URL.Query().Get("days"))
		writeJSON(w, http.StatusOK, []models.CalendarDay{{
			Date:  "2030-01-15",
			Items: []models.CalendarItem{{ReelID: 7, ScheduledTime: at, Status: models.PostStatusPending, Theme: "discipline", QuoteText: "Do the work."}},
		}})
	case "GET /api/analytics":
		assert.Equal(f.t, "14", r.URL.Query().Get("days"))
		writeJSON(w, http.StatusOK, models.AnalyticsReport{
			Posts: 3, Measured: 1, Likes: 40, Reach: 500, AvgEngagement: 0.08, BestTheme: "discipline",
			Top: []*models.PostPerformance{{
				ReelID: 7, Theme: "discipline", Caption: "Do the work.", PublishedAt: at,
				Metrics: &models.PostMetrics{Likes: 40, Reach: 500, EngagementRate: 0.08},
			}},
		})
	case "GET /api/schedule":
		writeJSON(w, http.StatusOK, map[string]any{"timezone": "Europe/Istanbul", "labels": []string{"Tuesday 18:00"}})
	case "PUT /api/schedule":
		writeJSON(w, http.StatusOK, map[string]any{"timezone": f.lastBody["timezone"], "labels": []string{"Friday 20:30"}})
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Cannot " + r.Method + " " + r.URL.Path})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func runCLI(t *testing.T, args ...string) (*fakeAPI, string, error) {
	t.Helper()
	api := &fakeAPI{t: t}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--server", srv.URL, "--token", "tok"}, args...))
	err := cmd.Execute()
	return api, out.String(), err
}

func TestListReels(t *testing.T) {
	api, out, err := runCLI(t, "list")
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", api.lastAuth)
	assert.Contains(t, out, "discipline")
	assert.Contains(t, out, "Do the work.")
}

func TestGenerate(t *testing.T) {
	api, out, err := runCLI(t, "generate", "--count", "2", "--theme", "focus")
	require.NoError(t, err)
	assert.Equal(t, "Generated 2 of 2 reels: #11, #12\n", out)
	assert.Equal(t, "focus", api.lastBody["theme"])
	assert.EqualValues(t, 2, api.lastBody["count"])
}

func TestApprovePrintsSchedule(t *testing.T) {
	_, out, err := runCLI(t, "approve", "#7")
	require.NoError(t, err)
	assert.Contains(t, out, "reel 7 is approved")
	assert.Contains(t, out, "post pending")
}

func TestApproveInvalidState(t *testing.T) {
	_, _, err := runCLI(t, "approve", "8")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid_state")
	assert.Contains(t, err.Error(), "reel 8 is rejected")
}

func TestUnknownRouteIsAPIError(t *testing.T) {
	_, _, err := runCLI(t, "show", "99")
	var apiErr *apiError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestInvalidReelID(t *testing.T) {
	_, _, err := runCLI(t, "reject", "abc")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid reel id")
}

func TestQueue(t *testing.T) {
	_, out, err := runCLI(t, "queue")
	require.NoError(t, err)
	assert.Contains(t, out, "Queue target")
	assert.Contains(t, out, "7")
}

func TestCalendar(t *testing.T) {
	_, out, err := runCLI(t, "calendar", "--days", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "2030-01-15")
	assert.Contains(t, out, "#7")
}

func TestSlotsSetKeepsTimezone(t *testing.T) {
	api, out, err := runCLI(t, "slots", "set", "fri@20:30")
	require.NoError(t, err)
	assert.Equal(t, "Europe/Istanbul", api.lastBody["timezone"])
	assert.Contains(t, out, "Friday 20:30")
}

func TestSlotsSetRejectsBadSlot(t *testing.T) {
	_, _, err := runCLI(t, "slots", "set", "friday-20:30")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected day@HH:MM")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("SECRET_KEY", "s3cret")
	_, out, err := runCLI(t, "token", "--operator", "alice")
	require.NoError(t, err)

	claims, err := utils.ValidateToken("s3cret", trimNewline(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Operator)
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("SECRET_KEY", "")
	_, _, err := runCLI(t, "token")
	assert.EqualError(t, err, "SECRET_KEY is not set")
}

func trimNewline(s string) string {
	return string(bytes.TrimSpace([]byte(s)))
}

func TestAnalytics(t *testing.T) {
	_, out, err := runCLI(t, "analytics", "--days", "14")
	require.NoError(t, err)
	assert.Contains(t, out, "Posts: 3 (1 measured) in the last 14 days")
	assert.Contains(t, out, "Average engagement: 8.00%")
	assert.Contains(t, out, "Best theme: discipline")
	assert.Contains(t, out, "#7")
	assert.Contains(t, out, "Do the work.")
}
