package view

import (
	"context"
	"errors"
	"time"

	"cteview/internal/aggregate"
	"cteview/internal/chart"
	"cteview/internal/config"
	"cteview/internal/features"
	"cteview/internal/logging"
	"cteview/internal/metrics"
	"cteview/internal/projection"
	"cteview/internal/schema"
	"cteview/internal/session"
	"cteview/internal/table"
)

// Analysis renders the CTE analysis page: the feature scatter and data
// table, the county cluster rankings and the employment projections for one
// industry.
type Analysis struct {
	Records     config.Source
	Projections config.Source
	// BottomN sizes the bottom-counties chart; <= 0 means DefaultBottomN.
	BottomN int
	Log     logging.Logger
}

// NewAnalysis builds the handler from cfg.
func NewAnalysis(cfg config.Config, log logging.Logger) *Analysis {
	if log == nil {
		log = logging.NewNop()
	}
	return &Analysis{
		Records:     cfg.Records,
		Projections: cfg.Projections,
		BottomN:     cfg.BottomN,
		Log:         log.Named("analysis"),
	}
}

// Render implements Handler.
func (a *Analysis) Render(ctx context.Context, req Request) Page {
	start := time.Now()
	log := a.Log
	if log == nil {
		log = logging.NewNop()
	}

	p := Page{View: session.ViewAnalysis, Title: "CTE Data Analysis"}

	status := "ok"
	defer func() { metrics.RecordStep("render_analysis", status, start) }()

	records, ok := a.records(ctx, req, &p, log)
	if !ok {
		status = "error"
		return p
	}
	a.scatter(records, req.State, &p, log)
	a.rankings(records, &p, log)

	if !a.projections(ctx, req, &p, log) {
		status = "error"
		return p
	}
	if len(p.Messages) > 0 {
		status = "warning"
	}
	return p
}

func (a *Analysis) records(ctx context.Context, req Request, p *Page, log logging.Logger) (*table.Table, bool) {
	raw, err := req.Data.Load(ctx, a.Records)
	if err != nil {
		p.add(log, LevelError, "data load failed: "+err.Error())
		return nil, false
	}

	t, err := schema.Rename(raw, schema.CTEMapping())
	if err != nil {
		p.add(log, LevelError, "data load failed: "+err.Error())
		return nil, false
	}

	if rep := schema.CTEContract().Validate(t); !rep.OK() {
		metrics.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "validate_records", "status": "warning"})
		log.Warn("records contract violated", logging.String("report", rep.String()))
	}

	p.Tables = append(p.Tables, chart.Table("Data Table", t))
	return t, true
}

func (a *Analysis) scatter(t *table.Table, st session.State, p *Page, log logging.Logger) {
	p.Features = features.NumericFeatures(t, schema.CTEMapping().Aliases(schema.RawYear)...)
	if len(p.Features) == 0 {
		p.add(log, LevelWarning, "no numeric features found in the dataset")
		return
	}

	p.Selection.X = features.Pick(p.Features, st.X)
	p.Selection.Y = features.Pick(p.Features, st.Y)
	s := chart.Scatter(t, p.Selection.X, p.Selection.Y, schema.County)
	p.Scatter = &s
}

func (a *Analysis) rankings(t *table.Table, p *Page, log logging.Logger) {
	r, err := aggregate.RankBySum(t, schema.County, schema.UniqueClusters)
	if err != nil {
		p.add(log, LevelWarning, err.Error())
		return
	}

	n := a.BottomN
	if n <= 0 {
		n = aggregate.DefaultBottomN
	}
	all := chart.RankingBar(chart.CountyTotalsTitle, r, schema.County, schema.UniqueClusters)
	bottom := chart.RankingBar(chart.BottomTitle(n), aggregate.Bottom(r, n), schema.County, schema.UniqueClusters)
	p.CountyTotals = &all
	p.BottomCounties = &bottom
}

// projections reports false when the projections dataset could not be
// loaded at all.
func (a *Analysis) projections(ctx context.Context, req Request, p *Page, log logging.Logger) bool {
	t, err := req.Data.Load(ctx, a.Projections)
	if err != nil {
		p.add(log, LevelError, "data load failed: "+err.Error())
		return false
	}
	if t.Len() == 0 {
		p.add(log, LevelWarning, "no data found for employment projections")
		return true
	}

	if rep := schema.ProjectionsContract().Validate(t); !rep.OK() {
		metrics.IncCounter(metrics.StepTotal, 1, metrics.Labels{"step": "validate_projections", "status": "warning"})
		log.Warn("projections contract violated", logging.String("report", rep.String()))
	}

	p.Industries = projection.Categories(t, schema.ProjectionCategory)
	industry := req.State.Industry
	if industry == "" && len(p.Industries) > 0 {
		industry = p.Industries[0]
	}
	p.Selection.Industry = industry

	v, err := projection.Build(t, schema.ProjectionCategory, industry, schema.ProjectionYears...)
	var missing *aggregate.MissingColumnError
	switch {
	case errors.As(err, &missing):
		p.add(log, LevelWarning, err.Error())
		return true
	case errors.Is(err, projection.ErrNoData):
		p.Tables = append(p.Tables, chart.Table("Filtered DataFrame for Industry: "+industry, v.Rows))
		p.add(log, LevelWarning, err.Error())
		return true
	case err != nil:
		p.add(log, LevelError, err.Error())
		return true
	}

	p.Tables = append(p.Tables, chart.Table("Filtered DataFrame for Industry: "+industry, v.Rows))
	g := chart.GroupedBar(v)
	p.Projections = &g
	return true
}

var _ Handler = (*Analysis)(nil)
