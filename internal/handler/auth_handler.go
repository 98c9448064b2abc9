package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/przetargo/api/internal/auth"
	"github.com/przetargo/api/internal/metrics"
	"github.com/przetargo/api/internal/middleware"
	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/session"
	"github.com/przetargo/api/internal/validation"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	// SignUp は登録フォームを検証し、プロバイダにアカウントを作成させる。
	SignUp(ctx context.Context, form validation.RegisterForm) (*model.Identity, error)
	// SignIn はメール/パスワードでセッションを発行する。
	SignIn(ctx context.Context, email, password string) (*model.Session, *model.Identity, error)
	// SignOut はセッションを破棄し、プロバイダ側も無効化する。
	SignOut(ctx context.Context, sessionID string) error
}

// SessionRegistryInterface はセッションストアのレジストリインターフェース。
type SessionRegistryInterface interface {
	// Attach は新しいセッションのストアを登録して返す。
	Attach(sess *model.Session, identity *model.Identity) *session.Store
	// Lookup はセッションIDに対応するストアを返す。存在しない場合はnil。
	Lookup(ctx context.Context, sessionID string) (*session.Store, error)
	// Detach はセッションのストアを破棄する。
	Detach(sessionID string)
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	CookieSecure  bool
	CookieDomain  string
	SessionMaxAge int // 秒
}

// AuthHandler は認証のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	registry  SessionRegistryInterface
	collector metrics.MetricsCollector
	config    AuthHandlerConfig
}

// NewAuthHandler はAuthHandlerを生成する。collectorはnilでもよい。
func NewAuthHandler(
	service AuthServiceInterface,
	registry SessionRegistryInterface,
	collector metrics.MetricsCollector,
	config AuthHandlerConfig,
) *AuthHandler {
	return &AuthHandler{
		service:   service,
		registry:  registry,
		collector: collector,
		config:    config,
	}
}

// --- リクエスト・レスポンス型 ---

// registerRequest は登録リクエストのボディ。
// フィールド名はフロントエンドの登録フォームと一致させる。
type registerRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ConfirmPassword   string `json:"confirmPassword"`
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Phone             string `json:"phone"`
	NIP               string `json:"nip"`
	CompanyName       string `json:"companyName"`
	Website           string `json:"website"`
	CompanySize       string `json:"companySize"`
	TenderDescription string `json:"tenderDescription"`
	PrivacyConsent    bool   `json:"privacyConsent"`
}

// loginRequest はログインリクエストのボディ。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// identityResponse はIdentityのAPIレスポンス。
type identityResponse struct {
	ID             string `json:"id"`
	Email          string `json:"email"`
	EmailConfirmed bool   `json:"email_confirmed"`
}

// registerResponse は登録成功のレスポンス。
type registerResponse struct {
	Identity identityResponse `json:"identity"`
	Message  string           `json:"message"`
}

// meResponse は現在のセッション状態のレスポンス。
type meResponse struct {
	Authenticated bool              `json:"authenticated"`
	Loading       bool              `json:"loading"`
	Identity      *identityResponse `json:"identity,omitempty"`
	Profile       *profileResponse  `json:"profile,omitempty"`
}

// Register は新規アカウントを登録する。
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	form := validation.RegisterForm{
		Email:             req.Email,
		Password:          req.Password,
		ConfirmPassword:   req.ConfirmPassword,
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		NIP:               req.NIP,
		CompanyName:       req.CompanyName,
		Website:           req.Website,
		CompanySize:       req.CompanySize,
		TenderDescription: req.TenderDescription,
		PrivacyConsent:    req.PrivacyConsent,
	}

	identity, err := h.service.SignUp(r.Context(), form)
	if err != nil {
		h.recordSignUp("failure")

		var valErr *auth.ValidationError
		if errors.As(err, &valErr) {
			middleware.WriteValidationErrorResponse(w, fieldErrorMap(valErr.Fields))
			return
		}
		handleServiceError(w, err)
		return
	}

	h.recordSignUp("success")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(registerResponse{
		Identity: toIdentityResponse(identity),
		Message:  "Konto zostało utworzone. Sprawdź swoją skrzynkę pocztową, aby potwierdzić adres email.",
	})
}

// Login はメール/パスワードでログインし、セッションCookieを発行する。
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeInvalidRequestBody(w)
		return
	}

	sess, identity, err := h.service.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		h.recordSignIn("failure")
		handleServiceError(w, err)
		return
	}

	h.recordSignIn("success")

	// セッションストアを登録し、プロファイルの非同期取得を開始する
	h.registry.Attach(sess, identity)

	h.setSessionCookie(w, sess.ID, h.config.SessionMaxAge)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(meResponse{
		Authenticated: true,
		Loading:       true,
		Identity:      ptrIdentityResponse(identity),
	})
}

// Logout はセッションを破棄する。
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err == nil && cookie.Value != "" {
		h.registry.Detach(cookie.Value)
		if err := h.service.SignOut(r.Context(), cookie.Value); err != nil {
			handleServiceError(w, err)
			return
		}
	}

	// 即時失効のCookieで上書き
	h.setSessionCookie(w, "", -1)
	w.WriteHeader(http.StatusNoContent)
}

// Me は現在のセッション状態を返す。未ログインでも200で返す。
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	cookie, err := r.Cookie(middleware.SessionCookieName)
	if err != nil || cookie.Value == "" {
		json.NewEncoder(w).Encode(meResponse{})
		return
	}

	store, err := h.registry.Lookup(r.Context(), cookie.Value)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	if store == nil {
		json.NewEncoder(w).Encode(meResponse{})
		return
	}

	snap := store.Snapshot()
	resp := meResponse{
		Authenticated: snap.Authenticated(),
		Loading:       snap.Loading,
	}
	if snap.Identity != nil {
		resp.Identity = ptrIdentityResponse(snap.Identity)
	}
	if snap.Profile != nil {
		p := toProfileResponse(snap.Profile)
		resp.Profile = &p
	}
	json.NewEncoder(w).Encode(resp)
}

// setSessionCookie はHttpOnlyのセッションCookieを書き込む。
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, value string, maxAge int) {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    value,
		Path:     "/",
		Domain:   h.config.CookieDomain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge < 0 {
		cookie.Expires = time.Unix(0, 0)
	}
	http.SetCookie(w, cookie)
}

func (h *AuthHandler) recordSignIn(outcome string) {
	if h.collector != nil {
		h.collector.RecordSignIn(outcome)
	}
}

func (h *AuthHandler) recordSignUp(outcome string) {
	if h.collector != nil {
		h.collector.RecordSignUp(outcome)
	}
}

// --- ヘルパー関数 ---

func toIdentityResponse(identity *model.Identity) identityResponse {
	return identityResponse{
		ID:             identity.ID,
		Email:          identity.Email,
		EmailConfirmed: identity.EmailConfirmed(),
	}
}

func ptrIdentityResponse(identity *model.Identity) *identityResponse {
	resp := toIdentityResponse(identity)
	return &resp
}

// fieldErrorMap はバリデーションエラーをレスポンス用のマップに変換する。
func fieldErrorMap(fields validation.FieldErrors) map[string]string {
	out := make(map[string]string, len(fields))
	for field, msg := range fields {
		out[string(field)] = msg
	}
	return out
}
