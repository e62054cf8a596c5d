package reporter

import (
	"fmt"
	"log/slog"

	"github.com/ppiankov/upgradespectre/internal/models"
	"github.com/ppiankov/upgradespectre/internal/projector"
	"github.com/ppiankov/upgradespectre/pkg/config"
)

// Reporter runs the three spreadsheet passes against the configured file.
type Reporter struct {
	config    *config.Config
	projector *projector.Projector
	logger    *slog.Logger
}

// New creates a new reporter instance
func New(cfg *config.Config, p *projector.Projector, logger *slog.Logger) *Reporter {
	return &Reporter{
		config:    cfg,
		projector: p,
		logger:    logger,
	}
}

// WriteBaseline writes the V2 report: one block per record, appended to the
// record's sheet, in a single open-write-close session. A failed append
// leaves any existing report untouched.
func (r *Reporter) WriteBaseline(records []*models.MetricRecord) error {
	w, err := NewWriter(r.config.OutputPath)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if err := w.Append(rec.Sheet, r.projector.Rows(rec)); err != nil {
			_ = w.Discard()
			return fmt.Errorf("failed to append %s: %w", rec.Application.Name, err)
		}
		r.logger.Debug("application written",
			slog.String("sheet", rec.Sheet),
			slog.String("app", rec.Application.Name),
			slog.Int("sheet_rows", w.Rows(rec.Sheet)),
		)
	}

	if err := w.Close(); err != nil {
		return err
	}
	r.logger.Info("report written", slog.String("path", r.config.OutputPath), slog.Int("applications", len(records)))
	return nil
}

// Reconcile merges V3 records into the existing report.
func (r *Reporter) Reconcile(records []*models.MetricRecord) (*ReconcileStats, error) {
	blocks := map[string][]Block{}
	for _, rec := range records {
		blocks[rec.Sheet] = append(blocks[rec.Sheet], Block{
			Application: rec.Application.Name,
			Values:      r.projector.Values(rec),
		})
	}

	stats, err := Reconcile(r.config.OutputPath, blocks, r.logger)
	if err != nil {
		return nil, err
	}
	r.logger.Info("reconciliation completed",
		slog.String("path", r.config.OutputPath),
		slog.Int("sheets", stats.Sheets),
		slog.Int("updated", stats.Updated),
		slog.Int("skipped", stats.Skipped),
		slog.Int("mismatched", stats.Mismatched),
	)
	return stats, nil
}

// Variation computes the Variation column of the report.
func (r *Reporter) Variation() (*Summary, error) {
	summary, err := ComputeVariation(r.config.OutputPath, r.config.VariationThreshold, r.logger)
	if err != nil {
		return nil, err
	}
	r.logger.Info("variation completed",
		slog.String("path", r.config.OutputPath),
		slog.Int("flagged", summary.FlaggedCount()),
	)
	return summary, nil
}
