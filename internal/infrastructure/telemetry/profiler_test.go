package telemetry

import (
	"testing"

	"github.com/grafana/pyroscope-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestParseProfileTypes(t *testing.T) {
	types, err := ParseProfileTypes([]string{"cpu", " Alloc_Space ", "mutex_duration"})
	require.NoError(t, err)
	assert.Equal(t, []pyroscope.ProfileType{
		pyroscope.ProfileCPU,
		pyroscope.ProfileAllocSpace,
		pyroscope.ProfileMutexDuration,
	}, types)

	_, err = ParseProfileTypes([]string{"cpu", "heap"})
	assert.ErrorContains(t, err, "heap")

	types, err = ParseProfileTypes(nil)
	require.NoError(t, err)
	assert.Empty(t, types)
}

func TestNewProfiler_Disabled(t *testing.T) {
	p, err := NewProfiler(ProfilerConfig{Enabled: false}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.False(t, p.IsEnabled())
	assert.NoError(t, p.Stop())
	assert.NoError(t, p.Stop())
}

func TestNewProfiler_Validation(t *testing.T) {
	_, err := NewProfiler(ProfilerConfig{Enabled: true}, zaptest.NewLogger(t))
	assert.Error(t, err)

	_, err = NewProfiler(ProfilerConfig{
		Enabled:       true,
		ServerAddress: "http://pyroscope:4040",
		ProfileTypes:  []string{"flamegraph"},
	}, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "flamegraph")
}
