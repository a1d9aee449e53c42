package records

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldreg/internal/diff"
	"fieldreg/internal/fields"
	"fieldreg/internal/form"
	"fieldreg/internal/options"
	"fieldreg/internal/platform/restclient"
	"fieldreg/pkg/platform/sentinel"
)

// fakeBackend is a minimal in-memory stand-in for the persistence service.
type fakeBackend struct {
	mu          sync.Mutex
	ambassadors map[int64]map[string]any
	patches     []map[string]any
	queries     []string
}

func newFakeBackend(t *testing.T) (*fakeBackend, *Client) {
	t.Helper()
	b := &fakeBackend{ambassadors: map[int64]map[string]any{}}

	r := chi.NewRouter()
	r.Post("/embajadores", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		b.mu.Lock()
		id := int64(len(b.ambassadors) + 892)
		body["id"] = id
		b.ambassadors[id] = body
		b.mu.Unlock()
		_ = json.NewEncoder(w).Encode(body)
	})
	r.Get("/embajadores/{id}", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		for id, a := range b.ambassadors {
			if chi.URLParam(r, "id") == strconv.FormatInt(id, 10) {
				_ = json.NewEncoder(w).Encode(a)
				return
			}
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"statusCode":404,"message":"Entity not found"}}`))
	})
	r.Patch("/embajadores/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		b.mu.Lock()
		b.patches = append(b.patches, body)
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/embajadores/{id}/replicas", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		_, _ = w.Write([]byte(`[{"id":9,"id_embajador":892,"registrosCount":6},{"id":7,"id_embajador":892},{"id":6,"id_embajador":892}]`))
	})
	r.Get("/replicas/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":7,"id_embajador":900,"codigo_modular":"415547"}`))
	})
	r.Get("/registros", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		_, _ = w.Write([]byte(`[{"id":3,"id_embajador":892}]`))
	})
	r.Get("/registros/count", func(w http.ResponseWriter, r *http.Request) {
		b.record(r)
		_, _ = w.Write([]byte(`{"count":14}`))
	})
	r.Get("/padron/{code}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "code") != "0201234" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"cod_mod":"0201234","cen_edu":"IE 501","d_region":"DRE CUSCO","d_dreugel":"UGEL CUSCO"}`))
	})
	r.Post("/replicas", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":{"message":"fecha is required"}}`))
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	rest, err := restclient.New(srv.URL)
	require.NoError(t, err)
	return b, NewClient(rest, nil, nil)
}

func (b *fakeBackend) record(r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, r.URL.RawQuery)
}

func TestCreateThenEditOneLevelSendsMinimalPatch(t *testing.T) {
	ctx := context.Background()
	backend, client := newFakeBackend(t)

	created, err := client.CreateAmbassador(ctx, AmbassadorFromValues(diff.Values{
		fields.TipoDocumento:   "DNI",
		fields.NumeroDocumento: "45678912",
		fields.NombreCompleto:  "Ana Maria Torres",
		fields.Sexo:            "F",
		fields.Correo:          "ana@example.pe",
		fields.Celular:         "987654321",
		fields.Region:          "8",
		fields.Provincia:       "801",
		fields.Distrito:        "80101",
		fields.PerfilEmbajador: "ATET",
		fields.DRE:             "1",
		fields.UGEL:            "11",
	}))
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	stored, err := client.GetAmbassador(ctx, created.ID)
	require.NoError(t, err)

	f, err := form.New(form.KindAmbassador, form.Config{Options: options.SampleData()})
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, f.Mount(ctx, AmbassadorDefaults(stored)))

	_, err = f.Set(ctx, fields.Provincia, "811")
	require.NoError(t, err)
	settle, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, f.Settle(settle))

	payload, err := f.PartialPayload()
	require.NoError(t, err)
	require.NoError(t, client.UpdateAmbassador(ctx, created.ID, payload))

	require.Len(t, backend.patches, 1)
	want := map[string]any{"id_provincia": float64(811), "id_distrito": nil}
	if d := cmp.Diff(want, backend.patches[0]); d != "" {
		t.Errorf("patch body mismatch (-want +got):\n%s", d)
	}
}

func TestUpdateWithEmptyPayloadSkipsNetwork(t *testing.T) {
	backend, client := newFakeBackend(t)
	require.NoError(t, client.UpdateAmbassador(context.Background(), 892, diff.Payload{}))
	assert.Empty(t, backend.patches)
}

func TestGetAmbassadorNotFound(t *testing.T) {
	_, client := newFakeBackend(t)

	_, err := client.GetAmbassador(context.Background(), 1)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusNotFound, pe.Status)
	assert.Equal(t, "Entity not found", pe.Message)
}

func TestCreateReplicaFailureIsPersistenceError(t *testing.T) {
	_, client := newFakeBackend(t)

	_, err := client.CreateReplica(context.Background(), Replica{IDEmbajador: 892})
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create_replica", pe.Op)
	assert.Equal(t, http.StatusUnprocessableEntity, pe.Status)
	assert.Equal(t, "fecha is required", pe.Message)
	assert.NotErrorIs(t, err, sentinel.ErrNotFound)
}

func TestListAmbassadorReplicasFetchesOneExtra(t *testing.T) {
	backend, client := newFakeBackend(t)

	page, err := client.ListAmbassadorReplicas(context.Background(), 892, Page{Limit: 2})
	require.NoError(t, err)
	assert.True(t, page.HasMore)
	assert.Len(t, page.Items, 2)
	require.NotNil(t, page.Items[0].RegistrosCount)
	assert.Equal(t, 6, *page.Items[0].RegistrosCount)
	assert.Contains(t, backend.queries[0], "filter%5Blimit%5D=3")
	assert.Contains(t, backend.queries[0], "create_at+DESC")
}

func TestListRegistrationsUsesJSONFilter(t *testing.T) {
	backend, client := newFakeBackend(t)

	page, err := client.ListRegistrationsByReplica(context.Background(), 7, Page{})
	require.NoError(t, err)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Items, 1)

	raw := backend.queries[0]
	require.True(t, strings.HasPrefix(raw, "filter="))
	filter, err := url.QueryUnescape(raw[len("filter="):])
	require.NoError(t, err)
	assert.JSONEq(t, `{"where":{"id_replica":7},"order":["id DESC"],"limit":6}`, filter)

	n, err := client.CountRegistrations(context.Background(), 892)
	require.NoError(t, err)
	assert.Equal(t, 14, n)
}

func TestGetOwnedReplica(t *testing.T) {
	_, client := newFakeBackend(t)

	_, err := client.GetOwnedReplica(context.Background(), 7, 892)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.ErrorIs(t, err, sentinel.ErrForbidden)

	r, err := client.GetOwnedReplica(context.Background(), 7, 900)
	require.NoError(t, err)
	assert.Equal(t, "415547", r.CodigoModular)
}

func TestResolvePadron(t *testing.T) {
	_, client := newFakeBackend(t)

	rec, err := client.Resolve(context.Background(), "0201234")
	require.NoError(t, err)
	assert.Equal(t, "UGEL CUSCO", rec.Authority)
	assert.Equal(t, "IE 501", rec.Institution)

	_, err = client.Resolve(context.Background(), "9999999")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestTextAcceptsNumbers(t *testing.T) {
	var a Ambassador
	require.NoError(t, json.Unmarshal([]byte(`{"dre":1,"ugel":"UGEL CUSCO"}`), &a))
	assert.Equal(t, Text("1"), a.DRE)
	assert.Equal(t, Text("UGEL CUSCO"), a.UGEL)
}
