package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordTransition(t *testing.T) {
	before := testutil.ToFloat64(transitionsTotal.WithLabelValues("audit", "IN_REVIEW", "CLOSED"))
	RecordTransition("audit", "IN_REVIEW", "CLOSED")
	after := testutil.ToFloat64(transitionsTotal.WithLabelValues("audit", "IN_REVIEW", "CLOSED"))
	assert.Equal(t, before+1, after)
}

func TestRecordRunSubmitted(t *testing.T) {
	beforeRuns := testutil.ToFloat64(runsSubmittedTotal.WithLabelValues("red"))
	beforeActions := testutil.ToFloat64(actionsCreatedTotal)

	RecordRunSubmitted("red", 2)

	assert.Equal(t, beforeRuns+1, testutil.ToFloat64(runsSubmittedTotal.WithLabelValues("red")))
	assert.Equal(t, beforeActions+2, testutil.ToFloat64(actionsCreatedTotal))
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordFinding("MAJOR_NC", FindingCreated)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "compliance_findings_total"))
}
