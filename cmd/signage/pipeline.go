package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nippo-signage/go/internal/config"
	"github.com/nippo-signage/go/internal/models"
	"github.com/nippo-signage/go/internal/schedule"
	"github.com/nippo-signage/go/internal/signage"
)

// renderReport summarizes one rendered (or skipped) report.
type renderReport struct {
	Input   string        `json:"input" yaml:"input"`
	Output  string        `json:"output,omitempty" yaml:"output,omitempty"`
	Status  models.Status `json:"status" yaml:"status"`
	Message string        `json:"message,omitempty" yaml:"message,omitempty"`
	Rows    int           `json:"rows" yaml:"rows"`
	Hidden  int           `json:"hidden,omitempty" yaml:"hidden,omitempty"`
}

// renderer renders report files with one configuration.
type renderer struct {
	cfg      *config.Config
	composer *signage.Composer
}

func newRenderer(cfg *config.Config) (*renderer, error) {
	composer, err := cfg.NewComposer()
	if err != nil {
		return nil, err
	}
	for _, m := range composer.Assets.Missing {
		Logger.Warn("rendering with fallback asset", "asset", m.Asset, "path", m.Path, "error", m.Err)
	}
	return &renderer{cfg: cfg, composer: composer}, nil
}

func (r *renderer) load(path string) (schedule.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schedule.Document{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return schedule.Load(data, r.cfg.ExtractOptions(), r.cfg.RowFilter())
}

// renderFile renders the selected rows of the report at in to out. A nil
// selection renders every row. A report without rows is reported, not
// rendered.
func (r *renderer) renderFile(in, out string, selection []int, dateLabel string) (renderReport, error) {
	rep := renderReport{Input: in}
	doc, err := r.load(in)
	rep.Status = doc.Status
	if err != nil {
		rep.Message = models.StatusUnreadable.Message()
		return rep, err
	}
	if !doc.Status.HasRows() {
		rep.Message = doc.Status.Message()
		return rep, nil
	}

	ph := r.cfg.RenderPlaceholders()
	var records []models.Record
	if selection == nil {
		records, err = schedule.SelectAll(doc.Rows, ph)
	} else {
		records, err = schedule.Select(doc.Rows, selection, ph)
	}
	if err != nil {
		return rep, err
	}

	res := r.composer.Compose(signage.Request{DateLabel: dateLabel, Records: records})
	if err := writePNG(out, res); err != nil {
		return rep, err
	}
	rep.Output = out
	rep.Rows = len(records)
	rep.Hidden = res.Hidden
	return rep, nil
}

func writePNG(path string, res signage.Result) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, f.Close())
	}()
	return signage.EncodePNG(f, res.Image)
}
