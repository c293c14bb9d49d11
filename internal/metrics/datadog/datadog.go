// Package datadog implements a Datadog backend for internal/metrics.
//
// The server is long-running, so observations are buffered in memory and
// submitted on a ticker (default once per minute), plus one final flush on
// Close.
//
// Request goroutines call IncCounter/ObserveHistogram at any time. Flush
// swaps the buffers under the mutex and submits outside it.
package datadog

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"cteview/internal/metrics"
)

// Options controls the backend.
type Options struct {
	// JobName becomes tag "job:<name>". Defaults to "cteview".
	JobName string

	// Tags are extra Datadog tags, e.g. []string{"service:cteview"}.
	Tags []string

	// FlushEvery is the submission interval. Defaults to 60s when <= 0.
	FlushEvery time.Duration

	// test seams
	now       func() time.Time
	submitter metricsSubmitter
}

type metricsSubmitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// descriptor maps an internal metric name to its Datadog name and the label
// keys that become tags, in tag order.
type descriptor struct {
	name string
	tags []string
	// required labels drop the observation when empty; others become "unknown".
	required bool
}

var descriptors = map[string]descriptor{
	metrics.StepTotal:           {name: "cte.step.total", tags: []string{"step", "status"}},
	metrics.StepDurationSeconds: {name: "cte.step.duration_seconds", tags: []string{"step", "status"}},
	metrics.RecordsTotal:        {name: "cte.records.total", tags: []string{"kind"}, required: true},
	metrics.MessagesTotal:       {name: "cte.messages.total", tags: []string{"level"}},
	metrics.SessionsTotal:       {name: "cte.sessions.total", tags: []string{"event"}},
}

// seriesKey identifies one buffered series. tags is the tag list joined
// with tagSep.
type seriesKey struct {
	metric string
	tags   string
}

const tagSep = "\x1f"

func (d descriptor) key(labels metrics.Labels) (seriesKey, bool) {
	tags := make([]string, len(d.tags))
	for i, k := range d.tags {
		v := strings.TrimSpace(labels[k])
		if v == "" {
			if d.required {
				return seriesKey{}, false
			}
			v = "unknown"
		}
		tags[i] = k + ":" + v
	}
	return seriesKey{metric: d.name, tags: strings.Join(tags, tagSep)}, true
}

func (k seriesKey) tagList() []string {
	if k.tags == "" {
		return nil
	}
	return strings.Split(k.tags, tagSep)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api  metricsSubmitter
	ctx  context.Context
	tags []string
	now  func() time.Time

	stop chan struct{}
	done chan struct{}

	mu        sync.Mutex
	counts    map[seriesKey]float64
	durations map[seriesKey][]float64
}

func resolveEnvTag() string {
	for _, name := range []string{"ENV", "DD_ENV"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return "env:" + v
		}
	}
	return "env:unknown"
}

// NewBackend builds the backend and starts its flush loop.
//
// The Datadog client reads DD_API_KEY / DD_SITE from the environment; network
// errors surface from Flush, not here.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	job := opts.JobName
	if job == "" {
		job = "cteview"
	}
	every := opts.FlushEvery
	if every <= 0 {
		every = 60 * time.Second
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	api := opts.submitter
	if api == nil {
		api = datadogV2.NewMetricsApi(dd.NewAPIClient(dd.NewConfiguration()))
	}

	b := &Backend{
		api:       api,
		ctx:       dd.NewDefaultContext(parent),
		tags:      append([]string{resolveEnvTag(), "job:" + job}, opts.Tags...),
		now:       now,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		counts:    make(map[seriesKey]float64),
		durations: make(map[seriesKey][]float64),
	}
	go b.loop(every)
	return b, nil
}

func (b *Backend) loop(every time.Duration) {
	defer close(b.done)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stop:
			return
		}
	}
}

// Close stops the flush loop and performs a final Flush. Call once.
func (b *Backend) Close() error {
	close(b.stop)
	<-b.done
	return b.Flush()
}

// IncCounter implements metrics.Backend. Unknown metric names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	d, ok := descriptors[name]
	if !ok || delta <= 0 || name == metrics.StepDurationSeconds {
		return
	}
	k, ok := d.key(labels)
	if !ok {
		return
	}
	b.mu.Lock()
	b.counts[k] += delta
	b.mu.Unlock()
}

// ObserveHistogram implements metrics.Backend. Only step durations are
// recorded.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || value < 0 {
		return
	}
	k, _ := descriptors[name].key(labels)
	b.mu.Lock()
	b.durations[k] = append(b.durations[k], value)
	b.mu.Unlock()
}

func (b *Backend) swap() (map[seriesKey]float64, map[seriesKey][]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	counts, durations := b.counts, b.durations
	b.counts = make(map[seriesKey]float64)
	b.durations = make(map[seriesKey][]float64)
	return counts, durations
}

// Flush submits buffered metrics and resets the buffers, even when the
// submission fails. Returns nil when there is nothing to send.
func (b *Backend) Flush() error {
	counts, durations := b.swap()
	series := b.buildSeries(counts, durations, b.now().Unix())
	if len(series) == 0 {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: series}
	if _, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters()); err != nil {
		return fmt.Errorf("datadog submit: %w", err)
	}
	return nil
}

// buildSeries orders series by metric then tags so payloads are stable.
// Each duration series expands into p50/p90/p95/p99/max/samples gauges.
func (b *Backend) buildSeries(counts map[seriesKey]float64, durations map[seriesKey][]float64, ts int64) []datadogV2.MetricSeries {
	var out []datadogV2.MetricSeries
	for _, k := range sortedKeys(counts) {
		if v := counts[k]; v > 0 {
			out = append(out, b.point(k.metric, datadogV2.METRICINTAKETYPE_COUNT, v, k, ts))
		}
	}
	for _, k := range sortedKeys(durations) {
		s := slices.Clone(durations[k])
		if len(s) == 0 {
			continue
		}
		slices.Sort(s)
		for _, q := range []struct {
			suffix string
			p      float64
		}{{"p50", 0.50}, {"p90", 0.90}, {"p95", 0.95}, {"p99", 0.99}} {
			out = append(out, b.point(k.metric+"."+q.suffix, datadogV2.METRICINTAKETYPE_GAUGE, quantile(s, q.p), k, ts))
		}
		out = append(out,
			b.point(k.metric+".max", datadogV2.METRICINTAKETYPE_GAUGE, s[len(s)-1], k, ts),
			b.point(k.metric+".samples", datadogV2.METRICINTAKETYPE_GAUGE, float64(len(s)), k, ts),
		)
	}
	return out
}

func (b *Backend) point(metric string, typ datadogV2.MetricIntakeType, v float64, k seriesKey, ts int64) datadogV2.MetricSeries {
	return datadogV2.MetricSeries{
		Metric: metric,
		Type:   typ.Ptr(),
		Points: []datadogV2.MetricPoint{{Timestamp: dd.PtrInt64(ts), Value: dd.PtrFloat64(v)}},
		Tags:   append(slices.Clone(b.tags), k.tagList()...),
	}
}

func sortedKeys[V any](m map[seriesKey]V) []seriesKey {
	return slices.SortedFunc(maps.Keys(m), func(a, b seriesKey) int {
		if c := strings.Compare(a.metric, b.metric); c != 0 {
			return c
		}
		return strings.Compare(a.tags, b.tags)
	})
}

// quantile is the nearest-rank quantile of sorted s; 0 for empty s.
func quantile(s []float64, p float64) float64 {
	if len(s) == 0 {
		return 0
	}
	p = min(max(p, 0), 1)
	return s[int(p*float64(len(s)-1)+0.5)]
}

var _ metrics.Backend = (*Backend)(nil)

// ParseTagsCSV parses "env:prod,service:cteview" into tags.
func ParseTagsCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
