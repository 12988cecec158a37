package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meteoplan/internal/opt"
)

func TestRegisterDefaultIsIdempotent(t *testing.T) {
	RegisterDefault()
	RegisterDefault()
	mfs, err := Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, mfs)
}

func TestObservePlan(t *testing.T) {
	before := testutil.ToFloat64(PlanRuns.WithLabelValues("parallel", "ok"))
	ObservePlan("parallel", "ok", opt.Metrics{Leaves: 10}, 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(PlanRuns.WithLabelValues("parallel", "ok")))
}

func TestObserveCache(t *testing.T) {
	ObserveCache("readings", true)
	ObserveCache("readings", false)
	ObserveCache("readings", false)
	assert.GreaterOrEqual(t, testutil.ToFloat64(CacheLookups.WithLabelValues("readings", "miss")), 2.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(CacheLookups.WithLabelValues("readings", "hit")), 1.0)
}
