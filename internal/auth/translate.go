package auth

import (
	"fmt"
	"strings"
)

// translationRule は認証プロバイダのエラーメッセージを
// 利用者向けのポーランド語文言へ対応付けるルール。
// Substringはメッセージの部分一致(大文字小文字を区別しない)で評価する。
type translationRule struct {
	Substring string
	Message   string
}

// translationRules は先頭から順に評価され、最初に一致したルールが採用される。
// 順序には意味がある: "invalid credentials" は "invalid email" より先に、
// "weak password" を含む "password" ルールは email 系のルールより先に置く。
var translationRules = []translationRule{
	{"invalid login credentials", "Nieprawidłowy email lub hasło."},
	{"invalid_credentials", "Nieprawidłowy email lub hasło."},
	{"invalid credentials", "Nieprawidłowy email lub hasło."},
	{"email not confirmed", "Email nie został potwierdzony. Sprawdź swoją skrzynkę pocztową."},
	{"already been registered", "Konto z tym adresem email już istnieje."},
	{"already registered", "Konto z tym adresem email już istnieje."},
	{"signup is not allowed", "Rejestracja jest tymczasowo niedostępna. Spróbuj ponownie później."},
	{"signups not allowed", "Rejestracja jest tymczasowo niedostępna. Spróbuj ponownie później."},
	{"rate limit", "Zbyt wiele prób. Poczekaj chwilę i spróbuj ponownie."},
	{"too many requests", "Zbyt wiele prób. Poczekaj chwilę i spróbuj ponownie."},
	{"network", "Błąd połączenia z serwerem. Sprawdź swoje połączenie internetowe."},
	{"fetch", "Błąd połączenia z serwerem. Sprawdź swoje połączenie internetowe."},
	{"weak password", "Hasło jest za słabe. Użyj co najmniej 6 znaków."},
	{"password", "Hasło jest za słabe. Użyj co najmniej 6 znaków."},
	{"invalid email", "Podany adres email jest nieprawidłowy."},
	{"unable to validate email", "Podany adres email jest nieprawidłowy."},
}

// TranslateProviderError はプロバイダから返されたエラーメッセージを
// 利用者に提示できるポーランド語の文言へ変換する。
// どのルールにも一致しない場合は元のメッセージを含むフォールバック文言を返す。
// 入力が何であっても必ず空でない文字列を返す(全域性)。
func TranslateProviderError(message string) string {
	lower := strings.ToLower(message)
	for _, rule := range translationRules {
		if strings.Contains(lower, rule.Substring) {
			return rule.Message
		}
	}
	return fmt.Sprintf("Wystąpił błąd: %s", message)
}
