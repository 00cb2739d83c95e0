// FILE: lixenwraith/confclass/metrics_test.go
package config

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue sums the counter samples of family name matching labels
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	var total float64
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
	metrics:
		for _, m := range fam.GetMetric() {
			for _, lp := range m.GetLabel() {
				if want, ok := labels[lp.GetName()]; ok && want != lp.GetValue() {
					continue metrics
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func TestPrometheusMetrics(t *testing.T) {
	promReg := prometheus.NewRegistry()
	metrics, err := NewPrometheusMetrics(promReg)
	require.NoError(t, err)

	reg := NewRegistry(WithMetrics(metrics))
	defer reg.Teardown()

	ctx := context.Background()
	src := newMutableSource(map[string]any{})
	shape := portShape(t, "svc", src)

	_, err = reg.Load(ctx, shape)
	require.Error(t, err)

	src.Set("PORT", 80)
	_, err = reg.Load(ctx, shape)
	require.NoError(t, err)

	src.Set("PORT", "x")
	require.Error(t, reg.Reload(ctx, "svc"))
	src.Set("PORT", 81)
	require.NoError(t, reg.Reload(ctx, "svc"))

	assert.Equal(t, 2.0, counterValue(t, promReg, "confclass_resolutions_total", map[string]string{"shape": "svc", "result": "success"}))
	assert.Equal(t, 2.0, counterValue(t, promReg, "confclass_resolutions_total", map[string]string{"shape": "svc", "result": "error"}))
	assert.Equal(t, 1.0, counterValue(t, promReg, "confclass_reloads_total", map[string]string{"result": "success"}))
	assert.Equal(t, 1.0, counterValue(t, promReg, "confclass_reloads_total", map[string]string{"result": "error"}))
	assert.Equal(t, 1.0, counterValue(t, promReg, "confclass_field_errors_total", map[string]string{"kind": ErrMissing.Error()}))
	assert.Equal(t, 1.0, counterValue(t, promReg, "confclass_field_errors_total", map[string]string{"kind": ErrTypeMismatch.Error()}))

	families, err := promReg.Gather()
	require.NoError(t, err)
	var sawHistogram bool
	for _, fam := range families {
		if fam.GetName() == "confclass_resolution_duration_seconds" {
			sawHistogram = true
			require.Len(t, fam.GetMetric(), 1)
			assert.Equal(t, uint64(4), fam.GetMetric()[0].GetHistogram().GetSampleCount())
		}
	}
	assert.True(t, sawHistogram)
}

func TestPrometheusMetricsDuplicateRegistration(t *testing.T) {
	promReg := prometheus.NewRegistry()
	_, err := NewPrometheusMetrics(promReg)
	require.NoError(t, err)

	_, err = NewPrometheusMetrics(promReg)
	assert.Error(t, err)
}
