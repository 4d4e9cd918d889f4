package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ActiveCallsProvider exposes the number of live calls in the registry.
type ActiveCallsProvider interface {
	GetActiveCallCount() int
}

// CallStateCounter returns live call counts grouped by transport state.
type CallStateCounter interface {
	CountByState() map[string]int
}

// ConferenceEntry describes one conference grouping for metrics.
type ConferenceEntry struct {
	CallType string
	State    string
	Size     int
}

// ConferenceProvider exposes the per-family conference groupings.
type ConferenceProvider interface {
	ConferenceStatuses() []ConferenceEntry
}

// WorkerStatsProvider exposes the serialized request worker's queue.
type WorkerStatsProvider interface {
	QueueDepth() int
	ProcessedCount() uint64
}

// RecordCounter returns stored call record totals.
type RecordCounter interface {
	Count(ctx context.Context) (int64, error)
}

// RecorderStatsProvider exposes the record writer's counters.
type RecorderStatsProvider interface {
	WrittenCount() uint64
	FailedCount() uint64
}

// Collector is a prometheus.Collector that gathers call-core metrics at
// scrape time.
type Collector struct {
	activeCalls ActiveCallsProvider
	states      CallStateCounter
	conferences ConferenceProvider
	worker      WorkerStatsProvider
	records     RecordCounter
	recorder    RecorderStatsProvider
	startTime   time.Time

	// Metric descriptors.
	activeCallsDesc    *prometheus.Desc
	callStateDesc      *prometheus.Desc
	conferenceDesc     *prometheus.Desc
	queueDepthDesc     *prometheus.Desc
	processedDesc      *prometheus.Desc
	recordsDesc        *prometheus.Desc
	recordsWrittenDesc *prometheus.Desc
	recordsFailedDesc  *prometheus.Desc
	uptimeDesc         *prometheus.Desc
}

// NewCollector creates a new metrics collector. Any provider may be nil
// if unavailable.
func NewCollector(
	activeCalls ActiveCallsProvider,
	states CallStateCounter,
	conferences ConferenceProvider,
	worker WorkerStatsProvider,
	records RecordCounter,
	recorder RecorderStatsProvider,
	startTime time.Time,
) *Collector {
	return &Collector{
		activeCalls: activeCalls,
		states:      states,
		conferences: conferences,
		worker:      worker,
		records:     records,
		recorder:    recorder,
		startTime:   startTime,

		activeCallsDesc: prometheus.NewDesc(
			"callgrid_active_calls",
			"Number of live calls in the registry",
			nil, nil,
		),
		callStateDesc: prometheus.NewDesc(
			"callgrid_calls",
			"Live calls grouped by transport state",
			[]string{"state"}, nil,
		),
		conferenceDesc: prometheus.NewDesc(
			"callgrid_conference_size",
			"Members in each conference grouping",
			[]string{"call_type", "state"}, nil,
		),
		queueDepthDesc: prometheus.NewDesc(
			"callgrid_request_queue_depth",
			"Requests waiting on the serialized worker",
			nil, nil,
		),
		processedDesc: prometheus.NewDesc(
			"callgrid_requests_processed_total",
			"Requests executed by the serialized worker",
			nil, nil,
		),
		recordsDesc: prometheus.NewDesc(
			"callgrid_call_records",
			"Call detail records in the store",
			nil, nil,
		),
		recordsWrittenDesc: prometheus.NewDesc(
			"callgrid_call_records_written_total",
			"Call detail records written since start",
			nil, nil,
		),
		recordsFailedDesc: prometheus.NewDesc(
			"callgrid_call_record_failures_total",
			"Call detail record writes that failed",
			nil, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"callgrid_uptime_seconds",
			"Seconds since the process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.activeCallsDesc
	ch <- c.callStateDesc
	ch <- c.conferenceDesc
	ch <- c.queueDepthDesc
	ch <- c.processedDesc
	ch <- c.recordsDesc
	ch <- c.recordsWrittenDesc
	ch <- c.recordsFailedDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries all providers at
// scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.activeCalls != nil {
		ch <- prometheus.MustNewConstMetric(
			c.activeCallsDesc, prometheus.GaugeValue,
			float64(c.activeCalls.GetActiveCallCount()),
		)
	}

	if c.states != nil {
		for state, count := range c.states.CountByState() {
			ch <- prometheus.MustNewConstMetric(
				c.callStateDesc, prometheus.GaugeValue,
				float64(count), state,
			)
		}
	}

	if c.conferences != nil {
		for _, conf := range c.conferences.ConferenceStatuses() {
			ch <- prometheus.MustNewConstMetric(
				c.conferenceDesc, prometheus.GaugeValue,
				float64(conf.Size), conf.CallType, conf.State,
			)
		}
	}

	if c.worker != nil {
		ch <- prometheus.MustNewConstMetric(
			c.queueDepthDesc, prometheus.GaugeValue,
			float64(c.worker.QueueDepth()),
		)
		ch <- prometheus.MustNewConstMetric(
			c.processedDesc, prometheus.CounterValue,
			float64(c.worker.ProcessedCount()),
		)
	}

	if c.records != nil {
		count, err := c.records.Count(ctx)
		if err != nil {
			slog.Error("metrics: failed to count call records", "error", err)
		} else {
			ch <- prometheus.MustNewConstMetric(
				c.recordsDesc, prometheus.GaugeValue,
				float64(count),
			)
		}
	}

	if c.recorder != nil {
		ch <- prometheus.MustNewConstMetric(
			c.recordsWrittenDesc, prometheus.CounterValue,
			float64(c.recorder.WrittenCount()),
		)
		ch <- prometheus.MustNewConstMetric(
			c.recordsFailedDesc, prometheus.CounterValue,
			float64(c.recorder.FailedCount()),
		)
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
