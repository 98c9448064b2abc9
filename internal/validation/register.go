// Package validation は登録フォームのクライアント側事前検証を提供する。
// ここでの検証は補助的なもので、最終的な権威はサーバー（プロバイダ）側にある。
// 全フィールドを一括で検証し、違反をまとめて返す（ショートサーキットしない）。
package validation

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/przetargo/api/internal/model"
)

// Field は検証対象のフォームフィールド名を表す。
type Field string

const (
	FieldEmail           Field = "email"
	FieldPhone           Field = "phone"
	FieldPassword        Field = "password"
	FieldConfirmPassword Field = "confirmPassword"
	FieldFirstName       Field = "firstName"
	FieldLastName        Field = "lastName"
	FieldNIP             Field = "nip"
	FieldCompanyName     Field = "companyName"
	FieldWebsite         Field = "website"
	FieldCompanySize     Field = "companySize"
	FieldPrivacyConsent  Field = "privacyConsent"
)

// RegisterForm は登録フォームの入力値を表す。
type RegisterForm struct {
	Email             string
	Password          string
	ConfirmPassword   string
	FirstName         string
	LastName          string
	Phone             string
	NIP               string
	CompanyName       string
	Website           string
	CompanySize       string
	TenderDescription string
	PrivacyConsent    bool
}

// FieldErrors はフィールドごとの検証エラーメッセージ。
// 空のマップは検証成功を意味する。
type FieldErrors map[Field]string

// emailPattern はlocal@domain.tld形式の基本的なメールアドレス検証。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// phonePattern は整形後の電話番号検証（+任意、9〜15桁）。
var phonePattern = regexp.MustCompile(`^\+?\d{9,15}$`)

// nipDigitsPattern は整形後のNIP検証（厳密に10桁）。
var nipDigitsPattern = regexp.MustCompile(`^\d{10}$`)

// nipWeights はNIPチェックサムの重み。先頭9桁に適用する。
var nipWeights = [9]int{6, 5, 7, 2, 3, 4, 5, 6, 7}

// phoneStripper は電話番号からスペース・ハイフン・括弧を除去する。
var phoneStripper = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")

// nipStripper はNIPからスペース・ハイフンを除去する。
var nipStripper = strings.NewReplacer(" ", "", "-", "")

// ValidateRegisterForm は登録フォームの全フィールドを一括検証する。
// 違反が1つでもあれば送信はブロックされる。
func ValidateRegisterForm(form RegisterForm) FieldErrors {
	errs := FieldErrors{}

	if msg := ValidateEmail(form.Email); msg != "" {
		errs[FieldEmail] = msg
	}
	if msg := ValidatePhone(form.Phone); msg != "" {
		errs[FieldPhone] = msg
	}
	if msg := ValidatePassword(form.Password); msg != "" {
		errs[FieldPassword] = msg
	}
	if msg := ValidateConfirmPassword(form.Password, form.ConfirmPassword); msg != "" {
		errs[FieldConfirmPassword] = msg
	}
	if msg := validateRequired(form.FirstName, "Imię"); msg != "" {
		errs[FieldFirstName] = msg
	}
	if msg := validateRequired(form.LastName, "Nazwisko"); msg != "" {
		errs[FieldLastName] = msg
	}
	if msg := ValidateNIP(form.NIP); msg != "" {
		errs[FieldNIP] = msg
	}
	if msg := validateRequired(form.CompanyName, "Nazwa firmy"); msg != "" {
		errs[FieldCompanyName] = msg
	}
	if msg := ValidateWebsite(form.Website); msg != "" {
		errs[FieldWebsite] = msg
	}
	if !model.CompanySize(form.CompanySize).Valid() {
		errs[FieldCompanySize] = "Wybierz wielkość firmy."
	}
	if !form.PrivacyConsent {
		errs[FieldPrivacyConsent] = "Musisz zaakceptować politykę prywatności."
	}

	return errs
}

// ValidateEmail はメールアドレスの形式を検証する。
// 成功時は空文字列、失敗時はエラーメッセージを返す。
func ValidateEmail(email string) string {
	if strings.TrimSpace(email) == "" {
		return "Email jest wymagany."
	}
	if !emailPattern.MatchString(email) {
		return "Podaj prawidłowy adres email."
	}
	return ""
}

// ValidatePhone は電話番号を検証する。
// スペース・ハイフン・括弧を除去した後、+任意で9〜15桁であることを要求する。
func ValidatePhone(phone string) string {
	if strings.TrimSpace(phone) == "" {
		return "Numer telefonu jest wymagany."
	}
	cleaned := phoneStripper.Replace(phone)
	if !phonePattern.MatchString(cleaned) {
		return "Podaj prawidłowy numer telefonu (np. +48 123 456 789)."
	}
	return ""
}

// ValidatePassword はパスワードの長さ（6〜72文字）を検証する。
// 境界ごとに異なるメッセージを返す。
func ValidatePassword(password string) string {
	if password == "" {
		return "Hasło jest wymagane."
	}
	if len(password) < 6 {
		return "Hasło musi mieć co najmniej 6 znaków."
	}
	if len(password) > 72 {
		return "Hasło może mieć maksymalnie 72 znaki."
	}
	return ""
}

// ValidateConfirmPassword は確認用パスワードの一致を検証する。
func ValidateConfirmPassword(password, confirm string) string {
	if confirm == "" {
		return "Potwierdź hasło."
	}
	if password != confirm {
		return "Hasła nie są zgodne."
	}
	return ""
}

// validateRequired は必須テキストフィールドの非空を検証する。
func validateRequired(value, fieldName string) string {
	if strings.TrimSpace(value) == "" {
		return fmt.Sprintf("%s jest wymagane.", fieldName)
	}
	return ""
}

// ValidateNIP はポーランドの事業者税務番号（NIP）を検証する。
// スペース・ハイフン除去後に厳密に10桁であること、および
// 重み[6,5,7,2,3,4,5,6,7]を先頭9桁に適用した合計のmod 11が
// 10桁目と一致することを要求する。mod結果が10の場合は一致し得ないため常に無効。
func ValidateNIP(nip string) string {
	if strings.TrimSpace(nip) == "" {
		return "NIP jest wymagany."
	}
	cleaned := nipStripper.Replace(nip)
	if !nipDigitsPattern.MatchString(cleaned) {
		return "NIP musi składać się z 10 cyfr."
	}

	sum := 0
	for i, w := range nipWeights {
		sum += w * int(cleaned[i]-'0')
	}
	if sum%11 != int(cleaned[9]-'0') {
		return "Podany NIP jest nieprawidłowy."
	}
	return ""
}

// ValidateWebsite は会社サイトURLを検証する。
// http/httpsスキームの絶対URLとしてパースできることを要求する。
func ValidateWebsite(rawURL string) string {
	if strings.TrimSpace(rawURL) == "" {
		return "Strona internetowa jest wymagana."
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return "Podaj prawidłowy adres URL (np. https://twojafirma.pl)."
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "Adres strony musi zaczynać się od http:// lub https://"
	}
	return ""
}
