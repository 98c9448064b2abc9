package auth

import (
	"strings"
	"testing"
)

func TestTranslateProviderError_KnownMessages(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"認証情報不正",
			"Invalid login credentials",
			"Nieprawidłowy email lub hasło.",
		},
		{
			"認証情報不正(コード形式)",
			"invalid_credentials",
			"Nieprawidłowy email lub hasło.",
		},
		{
			"メール未確認",
			"Email not confirmed",
			"Email nie został potwierdzony. Sprawdź swoją skrzynkę pocztową.",
		},
		{
			"登録済みメール",
			"User already registered",
			"Konto z tym adresem email już istnieje.",
		},
		{
			"登録済みメール(別形式)",
			"A user with this email address has already been registered",
			"Konto z tym adresem email już istnieje.",
		},
		{
			"登録停止中",
			"Signups not allowed for this instance",
			"Rejestracja jest tymczasowo niedostępna. Spróbuj ponownie później.",
		},
		{
			"登録停止中(別形式)",
			"Signup is not allowed for this instance",
			"Rejestracja jest tymczasowo niedostępna. Spróbuj ponownie później.",
		},
		{
			"レート制限",
			"Rate limit exceeded",
			"Zbyt wiele prób. Poczekaj chwilę i spróbuj ponownie.",
		},
		{
			"ネットワークエラー",
			"network error: fetch failed: connection refused",
			"Błąd połączenia z serwerem. Sprawdź swoje połączenie internetowe.",
		},
		{
			"弱いパスワード",
			"Password should be at least 6 characters",
			"Hasło jest za słabe. Użyj co najmniej 6 znaków.",
		},
		{
			"メール形式不正",
			"Unable to validate email address: invalid format",
			"Podany adres email jest nieprawidłowy.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateProviderError(tt.input)
			if got != tt.expected {
				t.Errorf("TranslateProviderError(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTranslateProviderError_CaseInsensitive(t *testing.T) {
	got := TranslateProviderError("INVALID LOGIN CREDENTIALS")
	if got != "Nieprawidłowy email lub hasło." {
		t.Errorf("大文字の入力が変換されなかった: %q", got)
	}
}

func TestTranslateProviderError_SubstringMatch(t *testing.T) {
	// メッセージの一部として含まれていてもマッチする
	got := TranslateProviderError("AuthApiError: Invalid login credentials (400)")
	if got != "Nieprawidłowy email lub hasło." {
		t.Errorf("部分一致で変換されなかった: %q", got)
	}
}

func TestTranslateProviderError_FirstMatchWins(t *testing.T) {
	// "invalid login credentials" は "password" より先に評価される
	got := TranslateProviderError("invalid login credentials: wrong password")
	if got != "Nieprawidłowy email lub hasło." {
		t.Errorf("ルールの優先順位が守られていない: %q", got)
	}
}

func TestTranslateProviderError_UnknownFallback(t *testing.T) {
	// 未知のメッセージは元の文言を含む汎用メッセージになる
	got := TranslateProviderError("something completely unexpected")
	if !strings.HasPrefix(got, "Wystąpił błąd: ") {
		t.Errorf("フォールバックの接頭辞がない: %q", got)
	}
	if !strings.Contains(got, "something completely unexpected") {
		t.Errorf("フォールバックに元のメッセージが含まれない: %q", got)
	}
}

func TestTranslateProviderError_AlwaysReturnsNonEmpty(t *testing.T) {
	// どんな入力でも空文字列を返さない（全域性）
	inputs := []string{"", "x", "エラー", strings.Repeat("a", 1000)}
	for _, input := range inputs {
		if got := TranslateProviderError(input); got == "" {
			t.Errorf("TranslateProviderError(%q) が空文字列を返した", input)
		}
	}
}
