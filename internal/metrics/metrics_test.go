package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type stubProviders struct{}

func (stubProviders) GetActiveCallCount() int         { return 3 }
func (stubProviders) CountByState() map[string]int    { return map[string]int{"active": 2, "holding": 1} }
func (stubProviders) QueueDepth() int                 { return 4 }
func (stubProviders) ProcessedCount() uint64          { return 99 }
func (stubProviders) WrittenCount() uint64            { return 7 }
func (stubProviders) FailedCount() uint64             { return 1 }
func (stubProviders) Count(context.Context) (int64, error) { return 42, nil }
func (stubProviders) ConferenceStatuses() []ConferenceEntry {
	return []ConferenceEntry{{CallType: "cs", State: "active", Size: 3}}
}

func gather(t *testing.T, c *Collector) map[string]float64 {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}

	out := make(map[string]float64)
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			key := fam.GetName()
			if labels := m.GetLabel(); len(labels) > 0 {
				key += "{"
				for i, lp := range labels {
					if i > 0 {
						key += ","
					}
					key += lp.GetName() + "=" + lp.GetValue()
				}
				key += "}"
			}
			switch {
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			}
		}
	}
	return out
}

func TestCollectorGathersAllProviders(t *testing.T) {
	p := stubProviders{}
	c := NewCollector(p, p, p, p, p, p, time.Now().Add(-time.Minute))

	got := gather(t, c)

	want := map[string]float64{
		"callgrid_active_calls":                       3,
		"callgrid_calls{state=active}":                2,
		"callgrid_calls{state=holding}":               1,
		"callgrid_conference_size{call_type=cs,state=active}": 3,
		"callgrid_request_queue_depth":                4,
		"callgrid_requests_processed_total":           99,
		"callgrid_call_records":                       42,
		"callgrid_call_records_written_total":         7,
		"callgrid_call_record_failures_total":         1,
	}
	for name, value := range want {
		if got[name] != value {
			t.Errorf("%s = %v, want %v", name, got[name], value)
		}
	}
	if got["callgrid_uptime_seconds"] < 59 {
		t.Errorf("uptime = %v, want at least 59s", got["callgrid_uptime_seconds"])
	}
}

func TestCollectorToleratesNilProviders(t *testing.T) {
	c := NewCollector(nil, nil, nil, nil, nil, nil, time.Now())

	got := gather(t, c)

	// Only uptime reports when every provider is absent.
	if len(got) != 1 {
		t.Errorf("gathered %d metrics, want only uptime: %v", len(got), got)
	}
	if _, ok := got["callgrid_uptime_seconds"]; !ok {
		t.Error("uptime metric missing")
	}
}
