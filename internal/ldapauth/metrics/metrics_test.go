package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	require.NoError(t, err)

	m.ObserveLogin("authenticated")
	m.ObserveLogin("authenticated")
	m.ObserveLogin("invalid_credentials")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.loginOutcomes.WithLabelValues("authenticated")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.loginOutcomes.WithLabelValues("invalid_credentials")))

	m.SetDirectoryUp(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.directoryUp))
	m.SetDirectoryUp(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.directoryUp))

	m.ObserveCaptchaReplay()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.captchaReplays))

	assert.Positive(t, testutil.ToFloat64(m.bootTime))

	// second registration in the same registry must fail
	_, err = New(reg)
	assert.Error(t, err)
}
