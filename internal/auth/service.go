// Package auth はメール/パスワード認証のオーケストレーションと
// プロバイダエラーの利用者向け文言への変換を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/przetargo/api/internal/model"
	"github.com/przetargo/api/internal/provider"
	"github.com/przetargo/api/internal/repository"
	"github.com/przetargo/api/internal/validation"
)

// ProviderClient は認証プロバイダのインターフェース。
// テスト時の差し替えと、将来的な別プロバイダ対応のための抽象化。
type ProviderClient interface {
	// SignUp はメール/パスワードでアカウントを作成する。
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*provider.User, error)
	// SignInWithPassword はメール/パスワードでトークンを取得する。
	SignInWithPassword(ctx context.Context, email, password string) (*provider.TokenResponse, error)
	// Refresh はリフレッシュトークンでトークンを更新する。
	Refresh(ctx context.Context, refreshToken string) (*provider.TokenResponse, error)
	// GetUser はアクセストークンに紐づくユーザー情報を取得する。
	GetUser(ctx context.Context, accessToken string) (*provider.User, error)
	// SignOut はプロバイダ側のセッションを無効化する。
	SignOut(ctx context.Context, accessToken string) error
}

// ValidationError は登録フォームの検証失敗を表す。
// 全フィールドのエラーをまとめて保持する(最初の失敗で打ち切らない)。
type ValidationError struct {
	Fields validation.FieldErrors
}

// Error はerrorインターフェースを実装する。
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %d field(s)", len(e.Fields))
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge       int           // セッション有効期間（秒）
	ProfilePollAttempts int           // プロファイル行の出現を待つ最大試行回数
	ProfilePollInitial  time.Duration // 初回待機時間（以降は倍々に増加）
}

// Service は認証に関するビジネスロジックを提供する。
// プロバイダ呼び出し、プロファイル初期化、セッション発行を束ねる。
type Service struct {
	provider    ProviderClient
	profileRepo repository.ProfileRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
}

// NewService はServiceを生成する。
func NewService(
	providerClient ProviderClient,
	profileRepo repository.ProfileRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
) *Service {
	return &Service{
		provider:    providerClient,
		profileRepo: profileRepo,
		sessionRepo: sessionRepo,
		config:      config,
	}
}

// SignUp は登録フォームを検証し、プロバイダにアカウントを作成させ、
// トリガで作成されるプロファイル行にフォームの企業情報を書き込む。
//
// プロバイダがエラーを返した場合、プロファイルへの書き込みは一切行わない。
// プロファイル行が待機時間内に出現しない場合は警告ログのみ残し、
// 登録自体は成功として扱う(行はトリガで遅れて作成され、初回ログイン後に
// 設定画面から補完できる)。
func (s *Service) SignUp(ctx context.Context, form validation.RegisterForm) (*model.Identity, error) {
	// 1. 全フィールドをまとめて検証
	if fieldErrs := validation.ValidateRegisterForm(form); len(fieldErrs) > 0 {
		return nil, &ValidationError{Fields: fieldErrs}
	}

	// 2. プロバイダにアカウント作成を依頼(企業情報はメタデータとして添付)
	user, err := s.provider.SignUp(ctx, form.Email, form.Password, signUpMetadata(form))
	if err != nil {
		return nil, translateError(err)
	}

	// 3. ユーザーが返らなかった場合は作成失敗として扱う
	if user == nil {
		slog.Error("provider returned no user on signup", slog.String("email", form.Email))
		return nil, model.NewNoIdentityError()
	}

	identity := identityFromUser(user)

	// 4. トリガで作成されるプロファイル行を待ち、フォームの内容を書き込む
	if err := s.initializeProfile(ctx, identity.ID, form); err != nil {
		// 登録は成功している。行が遅れているだけなので失敗にはしない。
		slog.Warn("profile initialization deferred",
			slog.String("identity_id", identity.ID),
			slog.String("error", err.Error()),
		)
	}

	slog.Info("identity registered",
		slog.String("identity_id", identity.ID),
		slog.String("email", identity.Email),
	)

	return identity, nil
}

// SignIn はメール/パスワードでトークンを取得し、セッションを発行する。
func (s *Service) SignIn(ctx context.Context, email, password string) (*model.Session, *model.Identity, error) {
	token, err := s.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, nil, translateError(err)
	}
	if token.User == nil {
		return nil, nil, model.NewNoIdentityError()
	}

	session, err := s.createSession(ctx, token)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create session: %w", err)
	}

	identity := identityFromUser(token.User)

	slog.Info("identity signed in", slog.String("identity_id", identity.ID))

	return session, identity, nil
}

// SignOut はプロバイダ側とローカルのセッションを破棄する。
// プロバイダ側の破棄に失敗してもローカルセッションは必ず削除する。
func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("session ID is required")
	}

	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to find session: %w", err)
	}

	if session != nil {
		if err := s.provider.SignOut(ctx, session.AccessToken); err != nil {
			slog.Warn("provider sign out failed",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("identity signed out", slog.String("session_id", sessionID))
	return nil
}

// RefreshSession はセッションのトークンをリフレッシュして永続化する。
// リフレッシュトークンが失効している場合はセッションを削除しエラーを返す。
func (s *Service) RefreshSession(ctx context.Context, sessionID string) (*model.Session, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewAuthError("Sesja wygasła. Zaloguj się ponownie.")
	}

	token, err := s.provider.Refresh(ctx, session.RefreshToken)
	if err != nil {
		// 失効したセッションは残しても害しかない
		if delErr := s.sessionRepo.DeleteByID(ctx, sessionID); delErr != nil {
			slog.Error("failed to delete stale session",
				slog.String("session_id", sessionID),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, translateError(err)
	}

	expiresAt := tokenExpiry(token, s.config.SessionMaxAge)
	if err := s.sessionRepo.UpdateTokens(ctx, sessionID, token.AccessToken, token.RefreshToken, expiresAt); err != nil {
		return nil, fmt.Errorf("failed to update session tokens: %w", err)
	}

	session.AccessToken = token.AccessToken
	session.RefreshToken = token.RefreshToken
	session.ExpiresAt = expiresAt

	return session, nil
}

// CurrentIdentity はセッションに紐づくIdentityをプロバイダから取得する。
func (s *Service) CurrentIdentity(ctx context.Context, sessionID string) (*model.Identity, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, model.NewAuthError("Sesja wygasła. Zaloguj się ponownie.")
	}

	user, err := s.provider.GetUser(ctx, session.AccessToken)
	if err != nil {
		return nil, translateError(err)
	}
	if user == nil {
		return nil, model.NewNoIdentityError()
	}

	return identityFromUser(user), nil
}

// initializeProfile はトリガで作成されるプロファイル行の出現を待ち、
// 登録フォームの企業情報で更新する。待機は倍々バックオフで行う。
func (s *Service) initializeProfile(ctx context.Context, identityID string, form validation.RegisterForm) error {
	attempts := s.config.ProfilePollAttempts
	if attempts <= 0 {
		attempts = 5
	}
	delay := s.config.ProfilePollInitial
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}

	patch := profilePatchFromForm(form)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		_, err := s.profileRepo.UpdateByID(ctx, identityID, patch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, model.ErrProfileNotFound) {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		lastErr = err
	}

	return fmt.Errorf("profile row did not appear after %d attempts: %w", attempts, lastErr)
}

// createSession はトークン応答からセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, token *provider.TokenResponse) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session ID: %w", err)
	}

	session := &model.Session{
		ID:           sessionID,
		IdentityID:   token.User.ID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    tokenExpiry(token, s.config.SessionMaxAge),
		CreatedAt:    time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// signUpMetadata は登録フォームをプロバイダのユーザーメタデータに変換する。
func signUpMetadata(form validation.RegisterForm) map[string]any {
	return map[string]any{
		"first_name":         form.FirstName,
		"last_name":          form.LastName,
		"phone":              form.Phone,
		"nip":                form.NIP,
		"company_name":       form.CompanyName,
		"website":            form.Website,
		"company_size":       form.CompanySize,
		"tender_description": form.TenderDescription,
	}
}

// profilePatchFromForm は登録フォームからプロファイル更新パッチを組み立てる。
func profilePatchFromForm(form validation.RegisterForm) model.ProfilePatch {
	size := model.CompanySize(form.CompanySize)
	return model.ProfilePatch{
		FirstName:         &form.FirstName,
		LastName:          &form.LastName,
		Phone:             &form.Phone,
		NIP:               &form.NIP,
		CompanyName:       &form.CompanyName,
		Website:           &form.Website,
		CompanySize:       &size,
		TenderDescription: &form.TenderDescription,
	}
}

// identityFromUser はプロバイダのユーザー表現をドメインのIdentityに変換する。
func identityFromUser(user *provider.User) *model.Identity {
	return &model.Identity{
		ID:               user.ID,
		Email:            user.Email,
		EmailConfirmedAt: user.EmailConfirmedAt,
		CreatedAt:        user.CreatedAt,
	}
}

// translateError はプロバイダ由来のエラーを利用者向けのAPIエラーへ変換する。
func translateError(err error) error {
	var pErr *provider.Error
	if errors.As(err, &pErr) {
		return model.NewAuthError(TranslateProviderError(pErr.Message))
	}
	return model.NewAuthError(TranslateProviderError(err.Error()))
}

// tokenExpiry はトークン応答から有効期限を算出する。
// プロバイダが期限を返さない場合は設定値にフォールバックする。
func tokenExpiry(token *provider.TokenResponse, maxAge int) time.Time {
	if token.ExpiresIn > 0 {
		return time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}
	return time.Now().Add(time.Duration(maxAge) * time.Second)
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
