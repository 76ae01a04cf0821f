package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/routecrawl/internal/export"
	"github.com/nao1215/routecrawl/internal/model"
	"github.com/nao1215/routecrawl/internal/report"
)

// ReportStep writes the run report with a report.Writer.
type ReportStep struct {
	name   string
	writer report.Writer
}

// NewReportStep creates a step named "report:<name>" that writes with w.
func NewReportStep(name string, w report.Writer) *ReportStep {
	return &ReportStep{name: "report:" + name, writer: w}
}

// Name returns the step name.
func (s *ReportStep) Name() string {
	return s.name
}

// Do writes the report.
func (s *ReportStep) Do(_ context.Context, r *model.RunReport) error {
	if _, err := s.writer.Write(r); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// DefaultExportConcurrency is how many exporters run at once.
const DefaultExportConcurrency = 4

// ExportStep publishes the run to several exporters concurrently.
//
// A failing exporter does not stop the others. Every failure is returned
// once all exporters have finished.
type ExportStep struct {
	exporters   []export.Exporter
	concurrency int
	logger      *slog.Logger
}

// ExportStepOption configures an ExportStep.
type ExportStepOption func(*ExportStep)

// WithExportLogger sets a custom logger for the export step.
func WithExportLogger(logger *slog.Logger) ExportStepOption {
	return func(s *ExportStep) {
		s.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent exporters.
// Values below one are ignored.
func WithConcurrency(n int) ExportStepOption {
	return func(s *ExportStep) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewExportStep creates a step publishing to exporters.
func NewExportStep(exporters []export.Exporter, opts ...ExportStepOption) *ExportStep {
	s := &ExportStep{
		exporters:   exporters,
		concurrency: DefaultExportConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// Name returns the step name.
func (s *ExportStep) Name() string {
	return "export"
}

// Do runs every exporter and waits for all of them.
func (s *ExportStep) Do(ctx context.Context, r *model.RunReport) error {
	// Each goroutine writes only its own slot.
	errs := make([]error, len(s.exporters))

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)
	for i, exp := range s.exporters {
		g.Go(func() error {
			start := time.Now()
			err := exp.Export(ctx, r)
			if err != nil {
				s.logger.Warn("export failed", "exporter", exp.Name(), "error", err)
				errs[i] = fmt.Errorf("%s: %w", exp.Name(), err)
				// Other exporters keep running.
				return nil
			}
			s.logger.Info("export completed",
				"exporter", exp.Name(),
				"results", len(r.Results),
				"elapsed", time.Since(start),
			)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines never return an error

	return errors.Join(errs...)
}

// Close closes every exporter.
func (s *ExportStep) Close() error {
	var errs []error
	for _, exp := range s.exporters {
		if err := exp.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", exp.Name(), err))
		}
	}
	return errors.Join(errs...)
}
