package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/profile"
	"github.com/przetargo/api/internal/validation"
)

// mockProfileService はProfileServiceInterfaceの関数フィールド式モック。
type mockProfileService struct {
	getFunc    func(ctx context.Context, identityID string) (*model.Profile, error)
	updateFunc func(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error)
}

func (m *mockProfileService) Get(ctx context.Context, identityID string) (*model.Profile, error) {
	if m.getFunc != nil {
		return m.getFunc(ctx, identityID)
	}
	return nil, model.NewProfileNotFoundError(identityID)
}

func (m *mockProfileService) Update(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, identityID, patch)
	}
	return nil, model.NewProfileNotFoundError(identityID)
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := middleware.ContextWithIdentityID(req.Context(), "identity-1")
	return req.WithContext(ctx)
}

func TestGetProfile(t *testing.T) {
	service := &mockProfileService{
		getFunc: func(ctx context.Context, identityID string) (*model.Profile, error) {
			return &model.Profile{
				ID:          identityID,
				CompanyName: "Budex",
				NIP:         "5260001246",
				CompanySize: model.CompanySizeMicro,
			}, nil
		},
	}
	h := NewProfileHandler(service)

	rec := httptest.NewRecorder()
	h.GetProfile(rec, authedRequest(http.MethodGet, "/api/profile", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp profileResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	if resp.CompanyName != "Budex" || resp.NIP != "5260001246" {
		t.Errorf("レスポンス = %+v", resp)
	}
	if resp.CompanySize != string(model.CompanySizeMicro) {
		t.Errorf("企業規模 = %q", resp.CompanySize)
	}
}

func TestGetProfile_WithoutIdentity(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	rec := httptest.NewRecorder()
	h.GetProfile(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	rec := httptest.NewRecorder()
	h.GetProfile(rec, authedRequest(http.MethodGet, "/api/profile", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestUpdateProfile_PassesPatchFields(t *testing.T) {
	var gotPatch model.ProfilePatch
	service := &mockProfileService{
		updateFunc: func(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
			gotPatch = patch
			return &model.Profile{ID: identityID, Phone: "+48 123 456 789"}, nil
		},
	}
	h := NewProfileHandler(service)

	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, authedRequest(http.MethodPatch, "/api/profile",
		`{"phone":"+48 123 456 789","company_size":"Mała (10–49 pracowników)"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusOK)
	}

	if gotPatch.Phone == nil || *gotPatch.Phone != "+48 123 456 789" {
		t.Errorf("パッチの電話番号 = %v", gotPatch.Phone)
	}
	if gotPatch.CompanySize == nil || *gotPatch.CompanySize != model.CompanySizeSmall {
		t.Errorf("パッチの企業規模 = %v", gotPatch.CompanySize)
	}
	// ボディに含まれないフィールドはnilのまま
	if gotPatch.NIP != nil || gotPatch.Website != nil {
		t.Error("指定していないフィールドがパッチに含まれた")
	}
}

func TestUpdateProfile_ValidationFailure(t *testing.T) {
	service := &mockProfileService{
		updateFunc: func(ctx context.Context, identityID string, patch model.ProfilePatch) (*model.Profile, error) {
			return nil, &profile.UpdateError{Fields: validation.FieldErrors{
				validation.FieldNIP: "Nieprawidłowy numer NIP.",
			}}
		},
	}
	h := NewProfileHandler(service)

	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, authedRequest(http.MethodPatch, "/api/profile", `{"nip":"1234567890"}`))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}

	var body middleware.ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("レスポンスのデコードに失敗した: %v", err)
	}
	if body.Fields["nip"] == "" {
		t.Errorf("フィールドエラー = %v, nipを含むべき", body.Fields)
	}
}

func TestUpdateProfile_MalformedBody(t *testing.T) {
	h := NewProfileHandler(&mockProfileService{})

	rec := httptest.NewRecorder()
	h.UpdateProfile(rec, authedRequest(http.MethodPatch, "/api/profile", "{zepsuty"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("ステータスコード = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}
