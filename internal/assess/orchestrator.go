// Package assess runs a risk assessment: it discovers the selected layers,
// validates them, fetches and scores each factor, and writes the aggregated
// result table.
package assess

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tank-risk/internal/factor"
	"github.com/sells-group/tank-risk/internal/layers"
	"github.com/sells-group/tank-risk/internal/proximity"
	"github.com/sells-group/tank-risk/internal/result"
	"github.com/sells-group/tank-risk/internal/sink"
)

// State is the orchestrator's position in a run.
type State int

// Run states.
const (
	Idle State = iota
	Validating
	ProcessingFactor
	Aggregating
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case ProcessingFactor:
		return "processing_factor"
	case Aggregating:
		return "aggregating"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON reports.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Report summarizes a finished run.
type Report struct {
	RunID    uuid.UUID     `json:"run_id"`
	State    State         `json:"state"`
	Success  bool          `json:"success"`
	Messages []Message     `json:"messages"`
	Factors  []string      `json:"factors"`
	Header   []string      `json:"header"`
	Rows     [][]any       `json:"rows"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithWorkers fetches factors on n workers. 1 runs sequentially; 0 or less
// uses DefaultWorkers.
func WithWorkers(n int) Option {
	return func(o *Orchestrator) {
		if n <= 0 {
			n = DefaultWorkers()
		}
		o.workers = n
	}
}

// WithMessages sends run messages to ms instead of a fresh collector.
func WithMessages(ms MessageSink) Option {
	return func(o *Orchestrator) { o.messages = ms }
}

// WithMetrics records run metrics.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithIDField sets the asset id column name of the output table.
func WithIDField(field string) Option {
	return func(o *Orchestrator) { o.idField = field }
}

// DefaultWorkers is twice the number of usable CPUs.
func DefaultWorkers() int {
	return 2 * runtime.GOMAXPROCS(0)
}

// Orchestrator drives one assessment at a time.
type Orchestrator struct {
	catalog  *factor.Catalog
	layers   layers.Provider
	svc      proximity.Service
	out      sink.Sink
	assets   string
	idField  string
	workers  int
	messages MessageSink
	metrics  *Metrics

	mu    sync.Mutex
	state State
}

// New creates an orchestrator scoring the asset layer assets against the
// layers selected by provider.
func New(catalog *factor.Catalog, provider layers.Provider, svc proximity.Service, out sink.Sink, assets string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog: catalog,
		layers:  provider,
		svc:     svc,
		out:     out,
		assets:  assets,
		workers: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current run state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	from := o.state
	o.state = s
	o.mu.Unlock()
	zap.L().Debug("assess: state change", zap.Stringer("from", from), zap.Stringer("to", s))
}

// Run performs a full assessment. The returned report is always non-nil; the
// error is set when the run ends in Failed.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	collector := NewMessages(nil)
	var msgs MessageSink = collector
	if o.messages != nil {
		msgs = teeSink{collector, o.messages}
	}

	rep := &Report{RunID: uuid.New(), Started: time.Now()}
	log := zap.L().With(zap.String("run_id", rep.RunID.String()))

	fail := func(err error) (*Report, error) {
		msgs.Error("%v", err)
		o.setState(Failed)
		o.finish(rep, collector, Failed)
		log.Error("assess: run failed", zap.Error(err))
		return rep, err
	}

	o.setState(Validating)
	tasks, err := o.discover(ctx, msgs)
	if err != nil {
		return fail(err)
	}
	tasks, err = o.validate(ctx, tasks, msgs)
	if err != nil {
		return fail(err)
	}

	o.setState(ProcessingFactor)
	store := result.New(o.catalog, o.idField)
	var order []string
	process := func(tr taskResult, elapsed time.Duration) error {
		if tr.err != nil {
			var ese *ExternalServiceError
			if errors.As(tr.err, &ese) {
				msgs.Warn("%v; skipping factor", ese)
				o.skipped(SkipExternal)
				return nil
			}
			return tr.err
		}

		st, err := NewProcessor(tr.task.def, store).Process(tr.records)
		if err != nil {
			return err
		}
		order = append(order, tr.task.def.Name)
		if st.Failed > 0 {
			msgs.Warn("factor %s: %d of %d records could not be scored", tr.task.def.Name, st.Failed, st.Failed+st.Scored)
		}
		msgs.Info("processed factor %s (%s)", tr.task.def.Name, tr.task.def.Kind)
		if o.metrics != nil {
			o.metrics.FactorsProcessed.Inc()
			o.metrics.RecordsScored.Add(float64(st.Scored))
			o.metrics.RecordErrors.WithLabelValues(tr.task.def.Name).Add(float64(st.Failed))
			o.metrics.FactorDuration.WithLabelValues(tr.task.def.Name).Observe(elapsed.Seconds())
		}
		return nil
	}

	if o.workers <= 1 {
		scratch := proximity.NewScratch()
		for _, t := range tasks {
			if err := ctx.Err(); err != nil {
				return fail(eris.Wrap(err, "assess: run canceled"))
			}
			start := time.Now()
			recs, ferr := fetch(ctx, o.svc, scratch, o.assets, t)
			if err := process(taskResult{task: t, records: recs, err: ferr}, time.Since(start)); err != nil {
				return fail(eris.Wrapf(err, "assess: factor %s", t.def.Name))
			}
		}
	} else {
		results, err := o.fetchAll(ctx, tasks)
		if err != nil {
			return fail(eris.Wrap(err, "assess: run canceled"))
		}
		for _, tr := range results {
			if err := ctx.Err(); err != nil {
				return fail(eris.Wrap(err, "assess: run canceled"))
			}
			if err := process(tr.taskResult, tr.elapsed); err != nil {
				return fail(eris.Wrapf(err, "assess: factor %s", tr.task.def.Name))
			}
		}
	}

	o.setState(Aggregating)
	header, rows, err := store.BuildRows(order)
	if err != nil {
		return fail(err)
	}
	if o.out != nil {
		if err := o.out.Write(ctx, header, rows); err != nil {
			return fail(eris.Wrap(err, "assess: write results"))
		}
	}
	rep.Header, rep.Rows = header, rows
	rep.Factors = order
	msgs.Info("assessed %d assets across %d factors", len(rows), len(order))

	o.setState(Done)
	o.finish(rep, collector, Done)
	log.Info("assess: run complete",
		zap.Int("assets", len(rows)),
		zap.Strings("factors", order),
		zap.Duration("duration", rep.Duration),
	)
	return rep, nil
}

func (o *Orchestrator) finish(rep *Report, collector *Messages, s State) {
	rep.State = s
	rep.Success = s == Done
	rep.Messages = collector.List()
	rep.Duration = time.Since(rep.Started)
	if o.metrics != nil {
		o.metrics.Runs.WithLabelValues(s.String()).Inc()
	}
}

func (o *Orchestrator) skipped(reason string) {
	if o.metrics != nil {
		o.metrics.FactorsSkipped.WithLabelValues(reason).Inc()
	}
}

// discover resolves the selected layers to factor definitions, skipping the
// asset layer and sources that name no known factor.
func (o *Orchestrator) discover(ctx context.Context, msgs MessageSink) ([]task, error) {
	sel, err := o.layers.SelectedLayers(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "assess: list layers")
	}
	for _, sk := range sel.Skipped {
		msgs.Warn("layer %s: %s; skipping", sk.Name, sk.Reason)
	}

	assetName := factor.ParseName(o.assets)
	var tasks []task
	for _, src := range sel.Sources {
		if src == o.assets || strings.EqualFold(factor.ParseName(src), assetName) {
			continue
		}
		def, err := o.catalog.Resolve(src)
		if err != nil {
			var ufe *factor.UnknownFactorError
			if errors.As(err, &ufe) {
				msgs.Warn("layer %s: unknown factor %s; skipping", src, ufe.Name)
				o.skipped(SkipUnknown)
				continue
			}
			return nil, err
		}
		tasks = append(tasks, task{index: len(tasks), source: src, def: def})
	}
	return tasks, nil
}

// validate checks that every Attribute factor's layer exposes the required
// columns and records the layer's spelling of each. A layer whose fields
// cannot be listed is skipped like any other external failure.
func (o *Orchestrator) validate(ctx context.Context, tasks []task, msgs MessageSink) ([]task, error) {
	var (
		kept    []task
		missing []error
	)
	for _, t := range tasks {
		if t.def.Kind != factor.Attribute {
			kept = append(kept, t)
			continue
		}
		fields, err := o.svc.Fields(ctx, t.source)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "assess: run canceled")
			}
			msgs.Warn("%v; skipping factor", &ExternalServiceError{Factor: t.def.Name, Layer: t.source, Op: "list fields", Err: err})
			o.skipped(SkipExternal)
			continue
		}

		cols, absent := resolveColumns(t.def.Required, fields)
		if len(absent) > 0 {
			missing = append(missing, &MissingRequiredFieldError{Factor: t.def.Name, Layer: t.source, Missing: absent})
			continue
		}
		t.columns = cols
		kept = append(kept, t)
	}

	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}
	for i := range kept {
		kept[i].index = i
	}
	return kept, nil
}

// resolveColumns matches required column names against a layer's fields,
// exactly first and then case-insensitively.
func resolveColumns(required, fields []string) (cols, missing []string) {
	for _, req := range required {
		found := ""
		for _, f := range fields {
			if f == req {
				found = f
				break
			}
		}
		if found == "" {
			for _, f := range fields {
				if strings.EqualFold(f, req) {
					found = f
					break
				}
			}
		}
		if found == "" {
			missing = append(missing, req)
			continue
		}
		cols = append(cols, found)
	}
	return cols, missing
}

type timedResult struct {
	taskResult
	elapsed time.Duration
}

// fetchAll runs fetch for every task on the worker pool. Each worker owns a
// scratch store and exits when the task channel is closed. Results come back
// in task order so the coordinator merges deterministically.
func (o *Orchestrator) fetchAll(ctx context.Context, tasks []task) ([]timedResult, error) {
	taskCh := make(chan task)
	resultCh := make(chan timedResult, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < o.workers; w++ {
		g.Go(func() error {
			scratch := proximity.NewScratch()
			for t := range taskCh {
				start := time.Now()
				recs, err := fetch(gctx, o.svc, scratch, o.assets, t)
				resultCh <- timedResult{taskResult{task: t, records: recs, err: err}, time.Since(start)}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(taskCh)
		for _, t := range tasks {
			select {
			case taskCh <- t:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	err := g.Wait()
	close(resultCh)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]timedResult, len(tasks))
	for r := range resultCh {
		out[r.task.index] = r
	}
	return out, nil
}

type teeSink []MessageSink

func (t teeSink) Info(format string, args ...any) {
	for _, s := range t {
		s.Info(format, args...)
	}
}

func (t teeSink) Warn(format string, args ...any) {
	for _, s := range t {
		s.Warn(format, args...)
	}
}

func (t teeSink) Error(format string, args ...any) {
	for _, s := range t {
		s.Error(format, args...)
	}
}
