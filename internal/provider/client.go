// Package provider はホステッド認証サービスのHTTP APIクライアントを提供する。
// 資格情報の保存、トークン発行、行レベルセキュリティはすべてプロバイダ側の責務であり、
// このパッケージはそのREST APIの薄いクライアントに徹する。
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// User はプロバイダが返すIdentity情報を表す。
type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

// TokenResponse はトークンエンドポイントのレスポンスを表す。
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// Error はプロバイダが返した構造化エラーを表す。
// Messageは翻訳前の原文で、エラー翻訳器の部分文字列マッチの入力になる。
type Error struct {
	Status  int
	Code    string
	Message string
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	return fmt.Sprintf("provider error (status %d, code %q): %s", e.Status, e.Code, e.Message)
}

// LatencyRecorder はプロバイダ呼び出しのレイテンシ計測を受け取るインターフェース。
// nilの場合、計測はスキップされる。
type LatencyRecorder interface {
	RecordProviderLatency(operation string, duration time.Duration)
}

// Config はプロバイダクライアントの設定。
type Config struct {
	BaseURL string // プロバイダのエンドポイントURL（末尾スラッシュなし）
	APIKey  string // 公開APIキー

	// 呼び出しレイテンシの記録先。nil可。
	Metrics LatencyRecorder

	// テスト用にオーバーライド可能なHTTPクライアント
	HTTPClient *http.Client
}

// Client はホステッド認証サービスのAPIクライアント。
type Client struct {
	baseURL    string
	apiKey     string
	metrics    LatencyRecorder
	httpClient *http.Client
}

// NewClient はClientを生成する。
func NewClient(config Config) *Client {
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL:    config.BaseURL,
		apiKey:     config.APIKey,
		metrics:    config.Metrics,
		httpClient: client,
	}
}

// observe は操作の所要時間を記録する。deferから呼び出す。
func (c *Client) observe(operation string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordProviderLatency(operation, time.Since(start))
	}
}

// signUpRequest はsignupエンドポイントのリクエストボディ。
// Dataはプロファイルフィールドを補助メタデータとして渡すためのフィールドで、
// 後続のプロファイル書き込みが失敗してもIdentity側に保全される。
type signUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     map[string]any `json:"data,omitempty"`
}

// signUpResponse はsignupエンドポイントのレスポンスボディ。
// メール確認が必要な設定の場合、sessionはnullでuserのみが返る。
type signUpResponse struct {
	User    *User          `json:"user"`
	Session *TokenResponse `json:"session"`

	// 一部のプロバイダバージョンはuserフィールドをトップレベルに展開する
	ID    string `json:"id"`
	Email string `json:"email"`
}

// SignUp は資格情報とプロファイルメタデータでIdentityを登録する。
// プロバイダがIdentityを返さなかった場合はnilユーザーとnilエラーを返し、
// 呼び出し側の防御的チェックに委ねる。
func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*User, error) {
	defer c.observe("sign_up", time.Now())
	body := signUpRequest{Email: email, Password: password, Data: metadata}

	var resp signUpResponse
	if err := c.post(ctx, "/auth/v1/signup", "", body, &resp); err != nil {
		return nil, err
	}

	if resp.User != nil {
		return resp.User, nil
	}
	// トップレベル展開形式へのフォールバック
	if resp.ID != "" {
		return &User{ID: resp.ID, Email: resp.Email}, nil
	}
	return nil, nil
}

// SignInWithPassword はメールアドレスとパスワードでトークンを取得する。
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*TokenResponse, error) {
	defer c.observe("sign_in", time.Now())
	body := map[string]string{"email": email, "password": password}

	var resp TokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return &resp, nil
}

// Refresh はリフレッシュトークンで新しいトークンペアを取得する。
// ページロード時の保存済みトークンによるセッション復元に使用する。
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	defer c.observe("refresh", time.Now())
	body := map[string]string{"refresh_token": refreshToken}

	var resp TokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", "", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("empty access token in response")
	}
	return &resp, nil
}

// GetUser はアクセストークンに対応するIdentityを取得する。
// トークンが無効・期限切れの場合はプロバイダエラーを返す。
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	defer c.observe("get_user", time.Now())
	req, err := c.newRequest(ctx, http.MethodGet, "/auth/v1/user", accessToken, nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := c.do(req, &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("empty user id in response")
	}
	return &user, nil
}

// SignOut はプロバイダ側のセッションを無効化する。
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	defer c.observe("sign_out", time.Now())
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

// post はJSONボディ付きのPOSTリクエストを発行する。
func (c *Client) post(ctx context.Context, path, accessToken string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, path, accessToken, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

// newRequest は共通ヘッダー（APIキー、認可）付きのリクエストを構築する。
func (c *Client) newRequest(ctx context.Context, method, path, accessToken string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("apikey", c.apiKey)
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// providerErrorBody はプロバイダのエラーレスポンスの既知の形式。
// バージョンによりフィールド名が異なるため、複数の候補を受け付ける。
type providerErrorBody struct {
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	ErrorCode        string `json:"error_code"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// do はリクエストを実行し、2xx以外をErrorに変換してレスポンスをデコードする。
// ネットワーク障害はラップしたエラーとしてそのまま返す（翻訳器のnetworkブランチが照合する）。
func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("network error: fetch failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("network error: failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseProviderError(resp.StatusCode, body)
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// parseProviderError はエラーレスポンスボディをErrorにデコードする。
// 既知のどの形式にも合致しない場合は生のボディをメッセージとして使用する。
func parseProviderError(status int, body []byte) *Error {
	var parsed providerErrorBody
	_ = json.Unmarshal(body, &parsed)

	message := parsed.Msg
	if message == "" {
		message = parsed.Message
	}
	if message == "" {
		message = parsed.ErrorDescription
	}
	if message == "" {
		message = parsed.ErrorField
	}
	if message == "" {
		message = string(body)
	}

	return &Error{
		Status:  status,
		Code:    parsed.ErrorCode,
		Message: message,
	}
}
