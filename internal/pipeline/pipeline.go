// Package pipeline runs one dataset through loading, profiling, charting,
// narration and report assembly.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/KaramelBytes/autolysis/internal/analysis"
	"github.com/KaramelBytes/autolysis/internal/cluster"
	"github.com/KaramelBytes/autolysis/internal/dataset"
	"github.com/KaramelBytes/autolysis/internal/narrative"
	"github.com/KaramelBytes/autolysis/internal/report"
	"github.com/KaramelBytes/autolysis/internal/utils"
	"github.com/KaramelBytes/autolysis/internal/viz"
)

// Report file names inside the output directory.
const (
	ReportFile = "README.md"
	HTMLFile   = "README.html"
)

// Narrator produces the narrative for a payload. On failure it still returns
// the placeholder text alongside the error.
type Narrator interface {
	Generate(ctx context.Context, p *analysis.Payload) (narrative.Result, error)
}

// Options configures a run.
type Options struct {
	DatasetPath string
	// OutputDir defaults to the dataset file stem.
	OutputDir string
	Load      dataset.LoadOptions
	Classify  analysis.ClassifyOptions
	Charts    viz.Options
	HTML      bool
	Narrative narrative.Config
	// Credential resolves the narrative credential right after loading; nil
	// keeps Narrative.Credential as given.
	Credential func() (string, error)
	// Narrator replaces the service built from Narrative.
	Narrator Narrator
	// Renderer replaces the go-chart renderer.
	Renderer viz.Renderer
	Log      *slog.Logger
}

// Result summarises a completed run.
type Result struct {
	RunID       string
	OutputDir   string
	ReportPath  string
	HTMLPath    string
	Artifacts   []viz.Artifact
	Diagnostics []viz.Diagnostic
	Clusters    *cluster.Assignment
	// NarrativeErr is set when the placeholder was used.
	NarrativeErr error
	Truncated    bool
}

// Run executes the pipeline. Load, configuration, aggregate chart and write
// failures are returned; per-column chart and narrative failures are not.
func Run(ctx context.Context, opt Options) (*Result, error) {
	runID := uuid.NewString()
	log := opt.Log
	if log == nil {
		log = slog.Default()
	}
	log = log.With("run_id", runID)

	tbl, err := dataset.Load(opt.DatasetPath, opt.Load)
	if err != nil {
		return nil, err
	}
	log.Info("dataset loaded", "path", opt.DatasetPath, "rows", tbl.Rows(), "columns", len(tbl.Columns))

	if opt.Credential != nil {
		cred, err := opt.Credential()
		if err != nil {
			return nil, err
		}
		opt.Narrative.Credential = cred
	}
	narrator := opt.Narrator
	if narrator == nil {
		svc, err := narrative.New(opt.Narrative, log)
		if err != nil {
			return nil, fmt.Errorf("narrative service: %w", err)
		}
		narrator = svc
	}

	if opt.Classify.MaxCategories <= 0 {
		opt.Classify = analysis.DefaultClassifyOptions()
	}
	cats := analysis.ClassifyTable(tbl, opt.Classify)
	for i, c := range tbl.Columns {
		log.Debug("column classified", "column", c.Name, "kind", c.Kind, "category", cats[i])
	}
	prof, err := analysis.Summarize(tbl, cats)
	if err != nil {
		return nil, fmt.Errorf("summarize: %w", err)
	}

	outDir := opt.OutputDir
	if outDir == "" {
		outDir = utils.FileStem(opt.DatasetPath)
	}
	if err := utils.EnsureDir(outDir); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	opt.Charts.OutputDir = outDir
	charts, err := viz.NewDispatcher(opt.Charts, opt.Renderer, log).Render(ctx, tbl, cats)
	if err != nil {
		return nil, err
	}
	res := &Result{
		RunID:       runID,
		OutputDir:   outDir,
		Artifacts:   charts.Artifacts,
		Diagnostics: charts.Diagnostics,
		Clusters:    charts.Clusters,
	}

	images := charts.FileNames()
	payload := analysis.NewPayload(filepath.Base(opt.DatasetPath), prof, images)
	nres, nerr := narrator.Generate(ctx, payload)
	if nerr != nil {
		log.Error("narrative generation failed, using placeholder", "err", nerr)
		res.NarrativeErr = nerr
	}
	res.Truncated = nres.Truncated
	text := nres.Text
	if text == "" {
		text = narrative.Placeholder
	}

	md := report.Assemble(report.Document{Narrative: text, Images: images})
	res.ReportPath = filepath.Join(outDir, ReportFile)
	if err := utils.SafeWriteFile(res.ReportPath, []byte(md)); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	log.Info("report written", "path", res.ReportPath, "artifacts", len(images))
	if opt.HTML {
		res.HTMLPath = filepath.Join(outDir, HTMLFile)
		if err := utils.SafeWriteFile(res.HTMLPath, report.HTML(md)); err != nil {
			return nil, fmt.Errorf("write html report: %w", err)
		}
		log.Info("html report written", "path", res.HTMLPath)
	}
	return res, nil
}
