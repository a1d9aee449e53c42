package options

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"fieldreg/internal/platform/metrics"
	"fieldreg/internal/platform/restclient"
)

// Getter is the slice of restclient.Client the repository needs.
type Getter interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

type endpoint struct {
	path string
	// parentField is the LoopBack where-field holding the parent id; empty for roots.
	parentField string
}

var endpoints = map[Level]endpoint{
	LevelRegion:    {path: "/departamentos"},
	LevelProvincia: {path: "/provincias", parentField: "departamentoId"},
	LevelDistrito:  {path: "/distritos", parentField: "provinciaId"},
	LevelDRE:       {path: "/dres"},
	LevelUGEL:      {path: "/ugels", parentField: "dreId"},
}

// remoteOption is the {id, nombre} record shape every option endpoint returns.
type remoteOption struct {
	ID     json.Number `json:"id"`
	Nombre string      `json:"nombre"`
}

// HTTPRepository loads options from the remote registration service.
type HTTPRepository struct {
	client  Getter
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewHTTPRepository constructs a repository over client. logger and m may be nil.
func NewHTTPRepository(client Getter, logger *slog.Logger, m *metrics.Metrics) *HTTPRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRepository{client: client, logger: logger, metrics: m}
}

// LoadRoot loads a level that has no parent.
func (r *HTTPRepository) LoadRoot(ctx context.Context, level Level) ([]Option, error) {
	ep, ok := endpoints[level]
	if !ok || ep.parentField != "" {
		return nil, unknownLevel(level)
	}
	return r.fetch(ctx, level, "", ep.path, nil)
}

// LoadChildren loads the options of level under parent. A blank or
// non-numeric parent yields an empty result without a network call.
func (r *HTTPRepository) LoadChildren(ctx context.Context, level Level, parent string) ([]Option, error) {
	ep, ok := endpoints[level]
	if !ok || ep.parentField == "" {
		return nil, unknownLevel(level)
	}
	parent = strings.TrimSpace(parent)
	if parent == "" {
		return []Option{}, nil
	}
	if _, err := strconv.ParseInt(parent, 10, 64); err != nil {
		return []Option{}, nil
	}
	return r.fetch(ctx, level, parent, ep.path, restclient.Where(ep.parentField, parent))
}

func (r *HTTPRepository) fetch(ctx context.Context, level Level, parent, path string, query url.Values) ([]Option, error) {
	start := time.Now()
	var records []remoteOption
	if err := r.client.Get(ctx, path, query, &records); err != nil {
		r.metrics.ObserveOptionLoad(level.String(), "error", start)
		r.logger.WarnContext(ctx, "option load failed",
			"level", level,
			"parent", parent,
			"error", err,
		)
		return nil, NewLookupError(level, parent, err)
	}
	out := make([]Option, 0, len(records))
	for _, rec := range records {
		if rec.ID == "" {
			r.metrics.ObserveOptionLoad(level.String(), "error", start)
			return nil, NewLookupError(level, parent, fmt.Errorf("record %q has no id", rec.Nombre))
		}
		out = append(out, Option{ID: rec.ID.String(), Label: rec.Nombre})
	}
	r.metrics.ObserveOptionLoad(level.String(), "ok", start)
	return out, nil
}
