package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.MessageReceived("text")
	m.CommandExecuted("alive", time.Millisecond, nil)
	m.HandlerFailed()
	m.PluginsLoaded(3, 1)
	m.SessionsActive(2)
	m.SessionOutcome("finalized")
	m.Outbound("text", nil)
	require.NotNil(t, m.Handler())
}

func TestCounters(t *testing.T) {
	m := New()
	m.CommandExecuted("alive", time.Millisecond, nil)
	m.CommandExecuted("alive", time.Millisecond, errors.New("boom"))
	m.PluginsLoaded(4, 1)
	m.SessionsActive(2)

	require.Equal(t, 1.0, testutil.ToFloat64(m.commandsExecuted.WithLabelValues("alive", "ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.commandsExecuted.WithLabelValues("alive", "error")))
	require.Equal(t, 4.0, testutil.ToFloat64(m.pluginsLoaded))
	require.Equal(t, 1.0, testutil.ToFloat64(m.pluginLoadErrors))
	require.Equal(t, 2.0, testutil.ToFloat64(m.sessionsActive))
}
