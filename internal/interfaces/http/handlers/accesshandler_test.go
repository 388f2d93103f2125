package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accessUsecases "github.com/secforge/billing/internal/application/access/usecases"
	"github.com/secforge/billing/internal/domain/access"
	"github.com/secforge/billing/internal/interfaces/http/handlers/testutil"
	"github.com/secforge/billing/internal/shared/errors"
	"github.com/secforge/billing/internal/shared/logger"
)

func newAccessHandlerForTest(decide, reconstruct *mockDecideUC, reads *mockAccessReader, rec *mockRecorder) *AccessHandler {
	return NewAccessHandler(decide, reconstruct, reads, rec, logger.NewNopLogger())
}

func TestAccessHandler_Decide(t *testing.T) {
	t.Run("anonymous caller gets pricing", func(t *testing.T) {
		decide := &mockDecideUC{result: &access.Decision{
			Reason:          access.ReasonNoAuth,
			IndividualPrice: 499,
			Currency:        "INR",
		}}
		rec := &mockRecorder{}
		h := newAccessHandlerForTest(decide, &mockDecideUC{}, &mockAccessReader{}, rec)

		c, w := testutil.NewTestContext(http.MethodGet, "/access/course/c1", nil)
		testutil.SetURLParam(c, "content_type", "course")
		testutil.SetURLParam(c, "content_id", "c1")

		h.Decide(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "", decide.got.UserID)
		assert.Equal(t, "course", decide.got.ContentType)
		assert.Equal(t, "c1", decide.got.ContentID)

		var resp testutil.APIResponse
		require.NoError(t, testutil.ParseResponse(w, &resp))
		assert.True(t, resp.Success)

		var body DecisionResponse
		require.NoError(t, json.Unmarshal(resp.Data, &body))
		assert.False(t, body.Allow)
		assert.Equal(t, access.ReasonNoAuth, body.Reason)
		assert.Equal(t, int64(499), body.IndividualPrice)
		assert.True(t, body.Priced)

		require.Len(t, rec.events, 1)
		assert.Equal(t, recordedEvent{kind: "decision:atomic", label: "NO_AUTH"}, rec.events[0])
	})

	t.Run("authenticated caller is passed through", func(t *testing.T) {
		decide := &mockDecideUC{result: &access.Decision{Allow: true, Reason: access.ReasonPlanOK}}
		h := newAccessHandlerForTest(decide, &mockDecideUC{}, &mockAccessReader{}, &mockRecorder{})

		c, w := testutil.NewTestContext(http.MethodGet, "/access/course/c1", nil)
		testutil.SetURLParam(c, "content_type", "course")
		testutil.SetURLParam(c, "content_id", "c1")
		testutil.SetAuthContext(c, "u1")

		h.Decide(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1", decide.got.UserID)
	})

	t.Run("validation error", func(t *testing.T) {
		decide := &mockDecideUC{err: errors.NewValidationError("content id is required")}
		rec := &mockRecorder{}
		h := newAccessHandlerForTest(decide, &mockDecideUC{}, &mockAccessReader{}, rec)

		c, w := testutil.NewTestContext(http.MethodGet, "/access/course/", nil)
		testutil.SetURLParam(c, "content_type", "course")

		h.Decide(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, rec.events)
	})
}

func TestAccessHandler_Reconstruct(t *testing.T) {
	reconstruct := &mockDecideUC{result: &access.Decision{Allow: true, Reason: access.FreeCategoryReason("challenge")}}
	rec := &mockRecorder{}
	h := newAccessHandlerForTest(&mockDecideUC{}, reconstruct, &mockAccessReader{}, rec)

	c, w := testutil.NewTestContext(http.MethodGet, "/access/challenge/x/reconstruct", nil)
	testutil.SetURLParam(c, "content_type", "challenge")
	testutil.SetURLParam(c, "content_id", "x")

	h.Reconstruct(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, rec.events, 1)
	assert.Equal(t, recordedEvent{kind: "decision:reconstructed", label: "FREE_CHALLENGE"}, rec.events[0])
}

func TestAccessHandler_Reads(t *testing.T) {
	t.Run("plan requires authentication", func(t *testing.T) {
		reads := &mockAccessReader{err: errors.NewUnauthorizedError("authentication required")}
		h := newAccessHandlerForTest(&mockDecideUC{}, &mockDecideUC{}, reads, &mockRecorder{})

		c, w := testutil.NewTestContext(http.MethodGet, "/me/plan", nil)
		h.GetPlan(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("plan", func(t *testing.T) {
		reads := &mockAccessReader{plan: &accessUsecases.PlanView{UserID: "u1", Tier: "pro", BaseTier: "free", Rank: 2}}
		h := newAccessHandlerForTest(&mockDecideUC{}, &mockDecideUC{}, reads, &mockRecorder{})

		c, w := testutil.NewTestContext(http.MethodGet, "/me/plan", nil)
		testutil.SetAuthContext(c, "u1")
		h.GetPlan(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u1", reads.gotUser)

		var resp testutil.APIResponse
		require.NoError(t, testutil.ParseResponse(w, &resp))
		var view accessUsecases.PlanView
		require.NoError(t, json.Unmarshal(resp.Data, &view))
		assert.Equal(t, "pro", view.Tier)
	})

	t.Run("rule", func(t *testing.T) {
		reads := &mockAccessReader{rule: &accessUsecases.RuleView{ContentType: "course", ContentID: "c1", Found: true, IndividualPrice: 499}}
		h := newAccessHandlerForTest(&mockDecideUC{}, &mockDecideUC{}, reads, &mockRecorder{})

		c, w := testutil.NewTestContext(http.MethodGet, "/catalog/course/c1", nil)
		testutil.SetURLParam(c, "content_type", "course")
		testutil.SetURLParam(c, "content_id", "c1")
		h.GetRule(c)

		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("grants", func(t *testing.T) {
		reads := &mockAccessReader{grants: &accessUsecases.GrantsView{ContentType: "course", ContentID: "c1", HasActive: true}}
		h := newAccessHandlerForTest(&mockDecideUC{}, &mockDecideUC{}, reads, &mockRecorder{})

		c, w := testutil.NewTestContext(http.MethodGet, "/me/grants/course/c1", nil)
		testutil.SetAuthContext(c, "u2")
		h.GetGrants(c)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u2", reads.gotUser)
	})
}
