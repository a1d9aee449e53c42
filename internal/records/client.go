// Package records is the client of the remote persistence service for
// ambassadors, replicas, participant registrations and the school registry.
package records

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"fieldreg/internal/diff"
	"fieldreg/internal/lookup"
	"fieldreg/internal/platform/metrics"
	"fieldreg/internal/platform/restclient"
	"fieldreg/pkg/platform/sentinel"
)

// PersistenceError reports a failed create, read or update. It unwraps to the
// transport error, so 404s still match sentinel.ErrNotFound.
type PersistenceError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *PersistenceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// ErrNotOwner is returned when an ambassador edits another ambassador's replica.
var ErrNotOwner = fmt.Errorf("replica belongs to another ambassador: %w", sentinel.ErrForbidden)

// Doer is the subset of restclient.Client the records client needs.
type Doer interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
}

// Client wraps the remote collections.
type Client struct {
	rest    Doer
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewClient creates a records client.
func NewClient(rest Doer, logger *slog.Logger, m *metrics.Metrics) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{rest: rest, logger: logger, metrics: m}
}

// Page selects a window of a list. Limit defaults to DefaultPageSize.
type Page struct {
	Limit int
	Skip  int
	Order string
}

const DefaultPageSize = 5

// PageResult is one window. HasMore is computed by fetching one extra item.
type PageResult[T any] struct {
	Items   []T  `json:"items"`
	Limit   int  `json:"limit"`
	Skip    int  `json:"skip"`
	HasMore bool `json:"has_more"`
}

func (p Page) normalized(order string) Page {
	if p.Limit <= 0 {
		p.Limit = DefaultPageSize
	}
	if p.Skip < 0 {
		p.Skip = 0
	}
	if p.Order == "" {
		p.Order = order
	}
	return p
}

func window[T any](items []T, p Page) PageResult[T] {
	res := PageResult[T]{Limit: p.Limit, Skip: p.Skip, Items: items}
	if len(items) > p.Limit {
		res.HasMore = true
		res.Items = items[:p.Limit]
	}
	if res.Items == nil {
		res.Items = []T{}
	}
	return res
}

// CreateAmbassador stores a new ambassador.
func (c *Client) CreateAmbassador(ctx context.Context, a Ambassador) (Ambassador, error) {
	var out Ambassador
	if err := c.rest.Post(ctx, "/embajadores", a, &out); err != nil {
		return Ambassador{}, c.fail(ctx, "create_ambassador", err)
	}
	return out, nil
}

// GetAmbassador reads an ambassador by id.
func (c *Client) GetAmbassador(ctx context.Context, id int64) (Ambassador, error) {
	var out Ambassador
	if err := c.rest.Get(ctx, "/embajadores/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return Ambassador{}, c.fail(ctx, "get_ambassador", err)
	}
	return out, nil
}

// FindAmbassadorByDocument reads an ambassador by identity document number.
func (c *Client) FindAmbassadorByDocument(ctx context.Context, document string) (Ambassador, error) {
	var out Ambassador
	if err := c.rest.Get(ctx, "/embajadores/by-documento/"+url.PathEscape(document), nil, &out); err != nil {
		return Ambassador{}, c.fail(ctx, "find_ambassador", err)
	}
	return out, nil
}

// UpdateAmbassador sends a partial update. An empty payload is a no-op.
func (c *Client) UpdateAmbassador(ctx context.Context, id int64, payload diff.Payload) error {
	if len(payload) == 0 {
		return nil
	}
	if err := c.rest.Patch(ctx, "/embajadores/"+strconv.FormatInt(id, 10), payload, nil); err != nil {
		return c.fail(ctx, "update_ambassador", err)
	}
	return nil
}

// ListAmbassadorReplicas pages through an ambassador's replicas, newest first.
// Each replica carries the backend's registrosCount.
func (c *Client) ListAmbassadorReplicas(ctx context.Context, ambassadorID int64, p Page) (PageResult[Replica], error) {
	p = p.normalized("create_at DESC")
	q := restclient.Page(nil, p.Limit+1, p.Skip, p.Order)
	var out []Replica
	if err := c.rest.Get(ctx, "/embajadores/"+strconv.FormatInt(ambassadorID, 10)+"/replicas", q, &out); err != nil {
		return PageResult[Replica]{}, c.fail(ctx, "list_replicas", err)
	}
	return window(out, p), nil
}

// CreateReplica stores a new replica.
func (c *Client) CreateReplica(ctx context.Context, r Replica) (Replica, error) {
	var out Replica
	if err := c.rest.Post(ctx, "/replicas", r, &out); err != nil {
		return Replica{}, c.fail(ctx, "create_replica", err)
	}
	return out, nil
}

// GetReplica reads a replica by id.
func (c *Client) GetReplica(ctx context.Context, id int64) (Replica, error) {
	var out Replica
	if err := c.rest.Get(ctx, "/replicas/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return Replica{}, c.fail(ctx, "get_replica", err)
	}
	return out, nil
}

// GetOwnedReplica reads a replica and checks it belongs to ambassadorID.
func (c *Client) GetOwnedReplica(ctx context.Context, id, ambassadorID int64) (Replica, error) {
	r, err := c.GetReplica(ctx, id)
	if err != nil {
		return Replica{}, err
	}
	if r.IDEmbajador != ambassadorID {
		return Replica{}, ErrNotOwner
	}
	return r, nil
}

// UpdateReplica sends a partial update. An empty payload is a no-op.
func (c *Client) UpdateReplica(ctx context.Context, id int64, payload diff.Payload) error {
	if len(payload) == 0 {
		return nil
	}
	if err := c.rest.Patch(ctx, "/replicas/"+strconv.FormatInt(id, 10), payload, nil); err != nil {
		return c.fail(ctx, "update_replica", err)
	}
	return nil
}

// ListReplicas returns every replica of an ambassador.
func (c *Client) ListReplicas(ctx context.Context, ambassadorID int64) ([]Replica, error) {
	var out []Replica
	q := restclient.Where("id_embajador", strconv.FormatInt(ambassadorID, 10))
	if err := c.rest.Get(ctx, "/replicas", q, &out); err != nil {
		return nil, c.fail(ctx, "list_replicas", err)
	}
	return out, nil
}

// CountReplicas counts an ambassador's replicas.
func (c *Client) CountReplicas(ctx context.Context, ambassadorID int64) (int, error) {
	return c.count(ctx, "/replicas/count", "id_embajador", ambassadorID)
}

// CreateRegistration stores a participant.
func (c *Client) CreateRegistration(ctx context.Context, r Registration) (Registration, error) {
	var out Registration
	if err := c.rest.Post(ctx, "/registros", r, &out); err != nil {
		return Registration{}, c.fail(ctx, "create_registration", err)
	}
	return out, nil
}

// ListRegistrationsByAmbassador pages through an ambassador's participants, newest first.
func (c *Client) ListRegistrationsByAmbassador(ctx context.Context, ambassadorID int64, p Page) (PageResult[Registration], error) {
	return c.listRegistrations(ctx, "id_embajador", ambassadorID, p)
}

// ListRegistrationsByReplica pages through a replica's participants, newest first.
func (c *Client) ListRegistrationsByReplica(ctx context.Context, replicaID int64, p Page) (PageResult[Registration], error) {
	return c.listRegistrations(ctx, "id_replica", replicaID, p)
}

// CountRegistrations counts an ambassador's participants.
func (c *Client) CountRegistrations(ctx context.Context, ambassadorID int64) (int, error) {
	return c.count(ctx, "/registros/count", "id_embajador", ambassadorID)
}

func (c *Client) listRegistrations(ctx context.Context, field string, id int64, p Page) (PageResult[Registration], error) {
	p = p.normalized("id DESC")
	q, err := restclient.Filter{
		Where: map[string]any{field: id},
		Order: []string{p.Order},
		Limit: p.Limit + 1,
		Skip:  p.Skip,
	}.Values()
	if err != nil {
		return PageResult[Registration]{}, err
	}
	var out []Registration
	if err := c.rest.Get(ctx, "/registros", q, &out); err != nil {
		return PageResult[Registration]{}, c.fail(ctx, "list_registrations", err)
	}
	return window(out, p), nil
}

func (c *Client) count(ctx context.Context, path, field string, id int64) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.rest.Get(ctx, path, restclient.Where(field, strconv.FormatInt(id, 10)), &out); err != nil {
		return 0, c.fail(ctx, "count", err)
	}
	return out.Count, nil
}

type padronRecord struct {
	CodMod   string `json:"cod_mod"`
	CenEdu   string `json:"cen_edu"`
	DRegion  string `json:"d_region"`
	DDreUgel string `json:"d_dreugel"`
}

// Resolve implements lookup.Resolver against GET /padron/{code}.
func (c *Client) Resolve(ctx context.Context, code string) (lookup.Record, error) {
	var out padronRecord
	if err := c.rest.Get(ctx, "/padron/"+url.PathEscape(code), nil, &out); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return lookup.Record{}, err
		}
		return lookup.Record{}, c.fail(ctx, "resolve_padron", err)
	}
	return lookup.Record{
		Code:        out.CodMod,
		Institution: out.CenEdu,
		Region:      out.DRegion,
		Authority:   out.DDreUgel,
	}, nil
}

// fail wraps err as a PersistenceError. Not-found reads are expected and are
// neither logged nor counted.
func (c *Client) fail(ctx context.Context, op string, err error) error {
	pe := &PersistenceError{Op: op, Message: err.Error(), Err: err}
	var se *restclient.StatusError
	if errors.As(err, &se) {
		pe.Status = se.Status
		pe.Message = se.Message
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return pe
	}
	c.metrics.IncrementPersistenceError(op)
	c.logger.ErrorContext(ctx, "persistence call failed",
		"operation", op,
		"status", pe.Status,
		"error", err,
	)
	return pe
}
