package httptransport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"fieldreg/internal/audit"
	"fieldreg/internal/diff"
	"fieldreg/internal/form"
	"fieldreg/internal/platform/logger"
	"fieldreg/internal/platform/metrics"
	"fieldreg/internal/records"
	"fieldreg/internal/registration"
	"fieldreg/internal/session"
	"fieldreg/internal/transport/http/mocks"
	"fieldreg/pkg/testutil"
)

type sessionTable map[string]int64

func (s sessionTable) ValidateSession(_ context.Context, id string) (int64, error) {
	if amb, ok := s[id]; ok {
		return amb, nil
	}
	return 0, session.ErrNoActor
}

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)

	reg := prometheus.NewRegistry()
	h := New(s.service, sessionTable{"s-1": 892}, logger.Discard(), metrics.New(reg), 5*time.Second)
	s.router = NewRouter(h, reg, map[string]HealthCheck{
		"records": func(context.Context) error { return nil },
	})
}

func (s *HandlerSuite) TestLogin() {
	s.service.EXPECT().Login(gomock.Any(), "45678912").Return(registration.LoginResult{
		SessionID: "s-1",
		Actor:     session.Actor{Ambassador: records.Ambassador{ID: 892, Nombre: "Ana"}},
	}, nil)

	rr := testutil.Do(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/session", map[string]string{"document": "45678912"}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	body := testutil.Decode[map[string]any](s.T(), rr)
	s.Equal("s-1", body["session_id"])
	s.NotEmpty(rr.Header().Get("X-Request-ID"))
}

func (s *HandlerSuite) TestLoginUnknownDocument() {
	s.service.EXPECT().Login(gomock.Any(), "00000000").Return(registration.LoginResult{}, session.ErrUnknownAmbassador)

	rr := testutil.Do(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/session", map[string]string{"document": "00000000"}))
	testutil.AssertError(s.T(), rr, http.StatusNotFound, "not_found")
}

func (s *HandlerSuite) TestLoginRejectsNonJSON() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/session", map[string]string{"document": "1"})
	req.Header.Set("Content-Type", "text/plain")
	rr := testutil.Do(s.router, req)
	testutil.AssertError(s.T(), rr, http.StatusUnsupportedMediaType, "unsupported_media_type")
}

func (s *HandlerSuite) TestProtectedRoutesNeedSession() {
	rr := testutil.Do(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/me", nil))
	testutil.AssertError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/me", nil), "expired")
	rr = testutil.Do(s.router, req)
	testutil.AssertError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestSignupFormOpensWithoutSession() {
	s.service.EXPECT().OpenForm(gomock.Any(), "", registration.OpenRequest{Kind: "ambassador"}).
		Return(registration.FormState{ID: "f-1", View: form.View{Kind: form.KindAmbassador}}, nil)

	rr := testutil.Do(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/forms", registration.OpenRequest{Kind: "ambassador"}))
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	st := testutil.Decode[registration.FormState](s.T(), rr)
	s.Equal("f-1", st.ID)
	s.Equal(form.KindAmbassador, st.Kind)
}

func (s *HandlerSuite) TestOpenForeignReplicaIsForbidden() {
	s.service.EXPECT().OpenForm(gomock.Any(), "s-1", registration.OpenRequest{Kind: "replica", ReplicaID: 8}).
		Return(registration.FormState{}, records.ErrNotOwner)

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/forms", registration.OpenRequest{Kind: "replica", ReplicaID: 8}), "s-1")
	testutil.AssertError(s.T(), testutil.Do(s.router, req), http.StatusForbidden, "forbidden")
}

func (s *HandlerSuite) TestSetField() {
	s.service.EXPECT().SetField(gomock.Any(), "s-1", "f-1", "provincia", "811").
		Return(registration.FieldResult{Changed: []string{"provincia", "distrito"}}, nil)

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodPut, "/v1/forms/f-1/fields/provincia", map[string]string{"value": "811"}), "s-1")
	rr := testutil.Do(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	res := testutil.Decode[registration.FieldResult](s.T(), rr)
	s.Equal([]string{"provincia", "distrito"}, res.Changed)
}

func (s *HandlerSuite) TestSetHiddenFieldConflicts() {
	s.service.EXPECT().SetField(gomock.Any(), "s-1", "f-1", "ugel", "11").
		Return(registration.FieldResult{}, form.ErrFieldHidden)

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodPut, "/v1/forms/f-1/fields/ugel", map[string]string{"value": "11"}), "s-1")
	testutil.AssertError(s.T(), testutil.Do(s.router, req), http.StatusConflict, "conflict")
}

func (s *HandlerSuite) TestGetFormSettles() {
	s.service.EXPECT().Await(gomock.Any(), "s-1", "f-1").Return(registration.FormState{ID: "f-1"}, nil)
	s.service.EXPECT().Form(gomock.Any(), "s-1", "f-1").Return(registration.FormState{ID: "f-1"}, nil)

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/forms/f-1?settle=true", nil), "s-1")
	s.Equal(http.StatusOK, testutil.Do(s.router, req).Code)

	req = testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/forms/f-1", nil), "s-1")
	s.Equal(http.StatusOK, testutil.Do(s.router, req).Code)
}

func (s *HandlerSuite) TestPreview() {
	s.service.EXPECT().Preview(gomock.Any(), "s-1", "f-1").
		Return(diff.Payload{"id_provincia": int64(811), "id_distrito": nil}, nil)

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/forms/f-1/payload", nil), "s-1")
	rr := testutil.Do(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"payload":{"id_provincia":811,"id_distrito":null}}`, rr.Body.String())
}

func (s *HandlerSuite) TestSubmitValidationErrors() {
	s.service.EXPECT().Submit(gomock.Any(), "s-1", "f-1").Return(registration.SubmitResult{}, form.ValidationErrors{
		{Field: "correo", Message: "Correo inválido"},
		{Field: "distrito", Message: "Seleccione distrito"},
	})

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/forms/f-1/submit", nil), "s-1")
	rr := testutil.Do(s.router, req)
	testutil.AssertError(s.T(), rr, http.StatusUnprocessableEntity, "validation_failed")
	body := testutil.Decode[map[string]any](s.T(), rr)
	s.Equal(map[string]any{"correo": "Correo inválido", "distrito": "Seleccione distrito"}, body["fields"])
}

func (s *HandlerSuite) TestSubmitPersistenceFailure() {
	s.service.EXPECT().Submit(gomock.Any(), "s-1", "f-1").Return(registration.SubmitResult{},
		&records.PersistenceError{Op: "update_ambassador", Status: 500, Message: "database down"})

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/forms/f-1/submit", nil), "s-1")
	rr := testutil.Do(s.router, req)
	testutil.AssertError(s.T(), rr, http.StatusBadGateway, "persistence_failed")
	body := testutil.Decode[map[string]any](s.T(), rr)
	s.Equal("database down", body["error_description"])
}

func (s *HandlerSuite) TestSubmitCreate() {
	s.service.EXPECT().Submit(gomock.Any(), "s-1", "f-1").Return(registration.SubmitResult{
		Action:  audit.ActionReplicaCreated,
		Replica: &records.Replica{ID: 31, IDEmbajador: 892},
	}, nil)

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodPost, "/v1/forms/f-1/submit", nil), "s-1")
	rr := testutil.Do(s.router, req)
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())
	res := testutil.Decode[registration.SubmitResult](s.T(), rr)
	s.Equal(int64(31), res.Replica.ID)
}

func (s *HandlerSuite) TestUnexpectedErrorHidesDetails() {
	s.service.EXPECT().CloseForm(gomock.Any(), "s-1", "f-1").Return(errors.New("boom"))

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/v1/forms/f-1", nil), "s-1")
	rr := testutil.Do(s.router, req)
	testutil.AssertError(s.T(), rr, http.StatusInternalServerError, "internal_error")
	s.NotContains(rr.Body.String(), "boom")
}

func (s *HandlerSuite) TestRegistrationsPaging() {
	s.service.EXPECT().Registrations(gomock.Any(), "s-1", int64(7), records.Page{Limit: 10, Skip: 20}).
		Return(records.PageResult[records.Registration]{Items: []records.Registration{{ID: 3}}, HasMore: true}, nil)

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/replicas/7/registrations?limit=10&skip=20", nil), "s-1")
	rr := testutil.Do(s.router, req)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	page := testutil.Decode[records.PageResult[records.Registration]](s.T(), rr)
	s.True(page.HasMore)
	s.Len(page.Items, 1)
}

func (s *HandlerSuite) TestRegistrationsRejectsBadInput() {
	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/replicas/abc/registrations", nil), "s-1")
	testutil.AssertError(s.T(), testutil.Do(s.router, req), http.StatusBadRequest, "bad_request")

	req = testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodGet, "/v1/registrations?limit=-1", nil), "s-1")
	testutil.AssertError(s.T(), testutil.Do(s.router, req), http.StatusBadRequest, "bad_request")
}

func (s *HandlerSuite) TestLogout() {
	s.service.EXPECT().Logout(gomock.Any(), "s-1").Return(nil)

	req := testutil.WithSession(testutil.NewJSONRequest(s.T(), http.MethodDelete, "/v1/session", nil), "s-1")
	s.Equal(http.StatusNoContent, testutil.Do(s.router, req).Code)
}

func (s *HandlerSuite) TestHealthAndMetrics() {
	rr := testutil.Do(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/healthz", nil))
	s.Require().Equal(http.StatusOK, rr.Code)
	s.JSONEq(`{"status":"OK","checks":{"records":"ok"}}`, rr.Body.String())

	rr = testutil.Do(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/metrics", nil))
	s.Equal(http.StatusOK, rr.Code)
}

func TestErrorResponseStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown session", session.ErrNoActor, http.StatusNotFound},
		{"foreign form", registration.ErrFormNotFound, http.StatusNotFound},
		{"foreign replica", records.ErrNotOwner, http.StatusForbidden},
		{"participant without replica", registration.ErrReplicaRequired, http.StatusConflict},
		{"unknown kind", form.ErrUnknownKind, http.StatusBadRequest},
		{"empty document", session.ErrEmptyDocument, http.StatusBadRequest},
		{"backend rejected", &records.PersistenceError{Op: "create_replica", Status: 422}, http.StatusBadGateway},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, _ := errorResponse(tt.err)
			assert.Equal(t, tt.want, status)
		})
	}
}
