package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/vaultload/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveFile(t *testing.T) {
	m := New()
	at := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)

	m.ObserveFile(OutcomeLoaded, time.Second, at)
	m.ObserveFile(OutcomeLoaded, 2*time.Second, at)
	m.ObserveFile(OutcomeFailed, time.Second, at)
	m.ObserveFile("", time.Second, at)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.files.WithLabelValues(OutcomeLoaded)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.files.WithLabelValues(OutcomeFailed)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.files.WithLabelValues("unknown")))
	assert.Equal(t, float64(at.Unix()), testutil.ToFloat64(m.lastSuccess))
}

func TestObserveSet(t *testing.T) {
	m := New()
	m.ObserveSet("hub_customer", "hub", 3, 1)
	m.ObserveSet("hub_customer", "hub", 0, 4)
	m.ObserveSetFailure("sat_invoice", "undefined_column")
	m.ObserveRowsRead(7)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.rowsInserted.WithLabelValues("hub_customer", "hub")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.rowsSkipped.WithLabelValues("hub_customer", "hub")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.setFailures.WithLabelValues("sat_invoice", "undefined_column")))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.rowsRead))

	count, err := testutil.GatherAndCount(m.Registry(), "vaultload_rows_inserted_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRegistryLabelsRowsByTableAndKind(t *testing.T) {
	m := New()
	m.ObserveSet("hub_customers", "hub", 2, 0)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	var family *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == "vaultload_rows_inserted_total" {
			family = f
		}
	}
	require.NotNil(t, family)
	assert.Equal(t, dto.MetricType_COUNTER, family.GetType())
	require.Len(t, family.GetMetric(), 1)

	labels := map[string]string{}
	for _, lp := range family.GetMetric()[0].GetLabel() {
		labels[lp.GetName()] = lp.GetValue()
	}
	assert.Equal(t, map[string]string{"table": "hub_customers", "kind": "hub"}, labels)
	assert.Equal(t, 2.0, family.GetMetric()[0].GetCounter().GetValue())
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveFile(OutcomeLoaded, time.Second, time.Now())
		m.ObserveSet("t", "hub", 1, 1)
		m.ObserveSetFailure("t", "x")
		m.ObserveRowsRead(1)
	})
	assert.Nil(t, m.Registry())
}

func TestNewPusherDisabled(t *testing.T) {
	assert.Nil(t, NewPusher(config.Config{}))
}

func TestPushgatewayPusher(t *testing.T) {
	var (
		mu   sync.Mutex
		path string
		body string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		path = r.URL.Path
		body = string(data)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m := New()
	m.ObserveFile(OutcomeLoaded, time.Second, time.Now())

	p := NewPusher(config.Config{
		AppName:     "vaultload",
		Environment: "test",
		Metrics:     config.MetricsConfig{PushgatewayURL: srv.URL},
	})
	require.NotNil(t, p)
	require.NoError(t, p.Push(context.Background(), m.Registry()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "/metrics/job/vaultload/environment/test", path)
	assert.NotEmpty(t, body)
}

func TestPushgatewayPusherValidates(t *testing.T) {
	err := NewPushgatewayPusher("http://localhost:9091", "", nil).Push(context.Background(), New().Registry())
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "job"))
}
