package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/KaramelBytes/enemcast/internal/dataset"
	"github.com/KaramelBytes/enemcast/internal/predictor"
	"github.com/KaramelBytes/enemcast/internal/utils"
)

func datasetOptions() dataset.Options {
	opt := dataset.DefaultOptions()
	opt.Delimiter = cfg.Delimiter()
	if cfg.DatasetTable != "" {
		opt.Table = cfg.DatasetTable
	}
	return opt
}

func loadRecords(ctx context.Context) ([]dataset.Record, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	start := time.Now()
	recs, err := dataset.Load(ctx, cfg.DatasetPath, datasetOptions())
	if err != nil {
		return nil, err
	}
	slog.Debug("loaded dataset", "path", cfg.DatasetPath, "rows", len(recs), "elapsed", time.Since(start).Round(time.Millisecond))
	return recs, nil
}

// trainBundle loads the configured dataset and trains on all of it.
func trainBundle(ctx context.Context) (*predictor.Bundle, error) {
	recs, err := loadRecords(ctx)
	if err != nil {
		return nil, err
	}
	b, err := predictor.Train(ctx, recs, predictor.Options{K: cfg.Neighbors})
	if err != nil {
		return nil, err
	}
	if b.Dropped() > 0 {
		slog.Debug("dropped incomplete rows", "n", b.Dropped())
	}
	return b, nil
}

// render writes v in the configured format. text renders through textFn.
func render(w io.Writer, v any, textFn func() string) error {
	b, err := encode(v, textFn)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func encode(v any, textFn func() string) ([]byte, error) {
	switch cfg.OutputFormat {
	case "json":
		b, err := utils.PrettyJSON(v)
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	case "yaml":
		return utils.PrettyYAML(v)
	case "text", "":
		return []byte(textFn()), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use text|json|yaml)", cfg.OutputFormat)
	}
}

// writeOrRender saves the encoded output to path when set, otherwise writes it to w.
func writeOrRender(w io.Writer, path string, v any, textFn func() string) error {
	if path == "" {
		return render(w, v, textFn)
	}
	b, err := encode(v, textFn)
	if err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return err
	}
	fmt.Fprintf(w, "✓ Wrote %s\n", path)
	return nil
}

// parseReference parses "MT=612.5,CN=540" into known scores.
func parseReference(s string) (map[dataset.Subject]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	out := map[dataset.Subject]float64{}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("invalid reference %q (use SUBJECT=score)", part)
		}
		sub, err := dataset.ParseSubject(k)
		if err != nil {
			return nil, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || f < 0 {
			return nil, fmt.Errorf("invalid score for %s: %q", sub.Short(), v)
		}
		out[sub] = f
	}
	return out, nil
}
