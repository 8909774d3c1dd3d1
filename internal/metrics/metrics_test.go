package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()
	m.IncVerification("verified")
	m.IncVerification("verified")
	m.IncSagaStep("create", "roles", "succeeded")
	m.IncRemoteError("airtable")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Verifications.WithLabelValues("verified")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SagaSteps.WithLabelValues("create", "roles", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RemoteErrors.WithLabelValues("airtable")))
}

func TestTaskGauges(t *testing.T) {
	m := New()
	m.TaskQueued()
	m.TaskQueued()
	m.TaskStarted()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackgroundTasks.WithLabelValues("queued")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackgroundTasks.WithLabelValues("running")))

	m.TaskFinished()
	assert.Equal(t, 0.0, testutil.ToFloat64(m.BackgroundTasks.WithLabelValues("running")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.IncVerification("invalid_code")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `regbot_verifications_total{outcome="invalid_code"} 1`)
}

// Two instances must not collide on registration.
func TestIndependentRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New()
		New()
	})
}
