package secop

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/h2non/gock"

	"secop_bot/internal/model"
)

type mockTransport struct {
	body       string
	statusCode int
	err        error
	calls      int
	lastReq    *http.Request
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.calls++
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return &http.Response{
		StatusCode: m.statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(m.body)),
	}, nil
}

const sampleBody = `[
  {"id_del_proceso": "CO1.P1", "nombre_del_procedimiento": "Mejoramiento de carreteras rurales",
   "entidad": "INVIAS", "departamento_entidad": "Cauca", "ciudad_entidad": "Popayán",
   "modalidad_de_contratacion": "Licitación pública", "tipo_de_contrato": "Obra",
   "fase": "Presentación de ofertas", "precio_base": "1200000000",
   "fecha_de_publicacion_del": "2026-08-20T00:00:00.000",
   "urlproceso": {"url": "https://community.secop.gov.co/Public/Tendering/CO1.P1"}},
  {"id_del_proceso": "CO1.P2", "descripci_n_del_procedimiento": "Interventoría vial",
   "entidad": "Gobernación del Cauca"}
]`

func newTestClient(transport *mockTransport) *Client {
	c := New(transport)
	c.retries = 0
	return c
}

func TestQuery(t *testing.T) {
	transport := &mockTransport{body: sampleBody, statusCode: 200}
	c := newTestClient(transport)

	items, err := c.Query(context.Background(), model.SearchFilters{Keyword: "carreteras"}, 50)
	if err != nil {
		t.Fatalf("query: %v", err)
	}

	want := []model.ProcurementItem{
		{
			ID:           "CO1.P1",
			Name:         "Mejoramiento de carreteras rurales",
			Entity:       "INVIAS",
			Department:   "Cauca",
			Municipality: "Popayán",
			Modality:     "Licitación pública",
			ContractType: "Obra",
			Phase:        "Presentación de ofertas",
			BasePrice:    "1200000000",
			PublishedAt:  "2026-08-20T00:00:00.000",
			URL:          "https://community.secop.gov.co/Public/Tendering/CO1.P1",
		},
		{
			ID:     "CO1.P2",
			Name:   "Interventoría vial",
			Entity: "Gobernación del Cauca",
		},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	q := transport.lastReq.URL.Query()
	if diff := cmp.Diff("50", q.Get("$limit")); diff != "" {
		t.Errorf("$limit mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff("fecha_de_publicacion_del DESC", q.Get("$order")); diff != "" {
		t.Errorf("$order mismatch (-want +got):\n%s", diff)
	}
	if got := q.Get("$where"); got != BuildWhere(model.SearchFilters{Keyword: "carreteras"}) {
		t.Errorf("unexpected $where: %q", got)
	}
}

func TestQueryClampsLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  string
	}{
		{"above maximum", 1000, "100"},
		{"zero", 0, "100"},
		{"negative", -5, "100"},
		{"within range", 25, "25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := &mockTransport{body: "[]", statusCode: 200}
			c := newTestClient(transport)

			if _, err := c.Query(context.Background(), model.SearchFilters{}, tt.limit); err != nil {
				t.Fatalf("query: %v", err)
			}
			if diff := cmp.Diff(tt.want, transport.lastReq.URL.Query().Get("$limit")); diff != "" {
				t.Errorf("$limit mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestQueryNoFiltersOmitsWhere(t *testing.T) {
	transport := &mockTransport{body: "[]", statusCode: 200}
	c := newTestClient(transport)

	if _, err := c.Query(context.Background(), model.SearchFilters{}, 10); err != nil {
		t.Fatalf("query: %v", err)
	}
	if _, present := transport.lastReq.URL.Query()["$where"]; present {
		t.Error("expected no $where parameter without filters")
	}
}

func TestQueryUpstreamFailures(t *testing.T) {
	tests := []struct {
		name      string
		transport *mockTransport
	}{
		{"http error status", &mockTransport{body: "too many requests", statusCode: 429}},
		{"server error", &mockTransport{body: "oops", statusCode: 500}},
		{"network error", &mockTransport{err: io.ErrUnexpectedEOF}},
		{"invalid json", &mockTransport{body: "<html>maintenance</html>", statusCode: 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(tt.transport)
			_, err := c.Query(context.Background(), model.SearchFilters{}, 10)
			if !errors.Is(err, ErrUpstreamUnavailable) {
				t.Errorf("expected ErrUpstreamUnavailable, got %v", err)
			}
		})
	}
}

func TestQueryRetriesTransientFailures(t *testing.T) {
	transport := &mockTransport{err: io.ErrUnexpectedEOF}
	c := New(transport)
	c.retries = 1

	_, err := c.Query(context.Background(), model.SearchFilters{}, 10)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	if diff := cmp.Diff(2, transport.calls); diff != "" {
		t.Errorf("attempt count mismatch (-want +got):\n%s", diff)
	}
}

func TestGetProcess(t *testing.T) {
	transport := &mockTransport{body: sampleBody, statusCode: 200}
	c := newTestClient(transport)

	item, err := c.GetProcess(context.Background(), "CO1.P1")
	if err != nil {
		t.Fatalf("get process: %v", err)
	}
	if diff := cmp.Diff("CO1.P1", item.ID); diff != "" {
		t.Errorf("id mismatch (-want +got):\n%s", diff)
	}

	where := transport.lastReq.URL.Query().Get("$where")
	if diff := cmp.Diff("id_del_proceso = 'CO1.P1'", where); diff != "" {
		t.Errorf("$where mismatch (-want +got):\n%s", diff)
	}
}

func TestGetProcessNotFound(t *testing.T) {
	transport := &mockTransport{body: "[]", statusCode: 200}
	c := newTestClient(transport)

	_, err := c.GetProcess(context.Background(), "CO1.MISSING")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueryAgainstInterceptedEndpoint(t *testing.T) {
	defer gock.Off()

	gock.New("https://www.datos.gov.co").
		Get("/resource/p6dx-8zbt.json").
		MatchParam("$limit", "10").
		Reply(200).
		BodyString(sampleBody)

	c := New(http.DefaultClient)
	c.retries = 0

	items, err := c.Query(context.Background(), model.SearchFilters{Keyword: "carreteras"}, 10)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if diff := cmp.Diff(2, len(items)); diff != "" {
		t.Errorf("item count mismatch (-want +got):\n%s", diff)
	}
	if !gock.IsDone() {
		t.Error("expected the intercepted request to be consumed")
	}
}
