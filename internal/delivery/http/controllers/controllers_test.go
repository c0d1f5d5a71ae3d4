package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"

	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

const (
	eventUUID = "6f1c2a44-1111-4b5e-9d2a-7c1f00000001"
	tierUUID  = "6f1c2a44-2222-4b5e-9d2a-7c1f00000002"
	regUUID   = "6f1c2a44-3333-4b5e-9d2a-7c1f00000003"
	userUUID  = "6f1c2a44-4444-4b5e-9d2a-7c1f00000004"
)

var (
	attendeeIdentity  = domain.Identity{UserID: userUUID, Role: domain.RoleAttendee}
	organizerIdentity = domain.Identity{UserID: "6f1c2a44-5555-4b5e-9d2a-7c1f00000005", Role: domain.RoleOrganizer}
)

// newRequest builds a request with an optional JSON body, caller identity and path values.
func newRequest(t *testing.T, method, target string, body any, identity *domain.Identity, pathValues map[string]string) *http.Request {
	t.Helper()
	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rdr)
	if identity != nil {
		req = req.WithContext(middleware.SetIdentity(req.Context(), *identity))
	}
	for k, v := range pathValues {
		req.SetPathValue(k, v)
	}
	return req
}

// decodeEnvelope decodes the response envelope, unmarshalling data into data when non-nil.
func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder, data any) *helpers.APIError {
	t.Helper()
	var env struct {
		Data  json.RawMessage   `json:"data"`
		Error *helpers.APIError `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&env))
	if data != nil && env.Error == nil {
		require.NoError(t, json.Unmarshal(env.Data, data))
	}
	return env.Error
}

// fakeRegistrationService implements domain.RegistrationService for handler tests.
type fakeRegistrationService struct {
	reg      *domain.Registration
	regs     []*domain.Registration
	total    int
	mine     []*domain.RegistrationWithEvent
	err      error
	gotActor domain.Identity
	gotInput domain.RegisterInput
	gotID    string
	gotTo    domain.RegistrationStatus
	gotSC    domain.StatusContext
	gotF     domain.RegistrationFilter
	gotP     domain.PaginationParams
}

func (f *fakeRegistrationService) Register(_ context.Context, actor domain.Identity, in domain.RegisterInput) (*domain.Registration, error) {
	f.gotActor, f.gotInput = actor, in
	return f.reg, f.err
}

func (f *fakeRegistrationService) Cancel(_ context.Context, actor domain.Identity, id string) (*domain.Registration, error) {
	f.gotActor, f.gotID = actor, id
	return f.reg, f.err
}

func (f *fakeRegistrationService) UpdateStatus(_ context.Context, actor domain.Identity, id string, to domain.RegistrationStatus, sc domain.StatusContext) (*domain.Registration, error) {
	f.gotActor, f.gotID, f.gotTo, f.gotSC = actor, id, to, sc
	return f.reg, f.err
}

func (f *fakeRegistrationService) Get(_ context.Context, actor domain.Identity, id string) (*domain.Registration, error) {
	f.gotActor, f.gotID = actor, id
	return f.reg, f.err
}

func (f *fakeRegistrationService) ListByEvent(_ context.Context, actor domain.Identity, eventID string, fl domain.RegistrationFilter, p domain.PaginationParams) ([]*domain.Registration, int, error) {
	f.gotActor, f.gotID, f.gotF, f.gotP = actor, eventID, fl, p
	return f.regs, f.total, f.err
}

func (f *fakeRegistrationService) ListMine(_ context.Context, actor domain.Identity) ([]*domain.RegistrationWithEvent, error) {
	f.gotActor = actor
	return f.mine, f.err
}
