package validation

import (
	"strings"
	"testing"
)

// validForm は全フィールドが有効な登録フォームを返す。
func validForm() RegisterForm {
	return RegisterForm{
		Email:           "jan.kowalski@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
		FirstName:       "Jan",
		LastName:        "Kowalski",
		Phone:           "+48 123 456 789",
		NIP:             "5260001246",
		CompanyName:     "Kowalski Budownictwo",
		Website:         "https://kowalski.pl",
		CompanySize:     "Mikro (1–9 pracowników)",
		PrivacyConsent:  true,
	}
}

// --- フォーム全体のテスト ---

func TestValidateRegisterForm_ValidForm(t *testing.T) {
	errs := ValidateRegisterForm(validForm())
	if len(errs) != 0 {
		t.Errorf("有効なフォームでエラーが返った: %v", errs)
	}
}

func TestValidateRegisterForm_CollectsAllViolations(t *testing.T) {
	// 複数フィールドが同時に不正な場合、全違反が一括で返る
	form := validForm()
	form.Email = "invalid"
	form.Password = "abc"
	form.ConfirmPassword = "abc"
	form.NIP = "1234567890"
	form.PrivacyConsent = false

	errs := ValidateRegisterForm(form)

	for _, field := range []Field{FieldEmail, FieldPassword, FieldNIP, FieldPrivacyConsent} {
		if _, ok := errs[field]; !ok {
			t.Errorf("フィールド %s のエラーが欠落している: %v", field, errs)
		}
	}
}

func TestValidateRegisterForm_RequiredFields(t *testing.T) {
	form := validForm()
	form.FirstName = ""
	form.LastName = ""
	form.CompanyName = ""

	errs := ValidateRegisterForm(form)

	for _, field := range []Field{FieldFirstName, FieldLastName, FieldCompanyName} {
		if _, ok := errs[field]; !ok {
			t.Errorf("必須フィールド %s のエラーが欠落している", field)
		}
	}
}

func TestValidateRegisterForm_ConfirmPasswordMismatch(t *testing.T) {
	form := validForm()
	form.ConfirmPassword = "different"

	errs := ValidateRegisterForm(form)
	if _, ok := errs[FieldConfirmPassword]; !ok {
		t.Error("パスワード不一致のエラーが返らなかった")
	}
}

func TestValidateRegisterForm_CompanySize(t *testing.T) {
	// 定義済みの5区分のみ受け付ける
	valid := []string{
		"Jednoosobowa (JDG)",
		"Mikro (1–9 pracowników)",
		"Mała (10–49 pracowników)",
		"Średnia (50–249 pracowników)",
		"Duża (250+ pracowników)",
	}
	for _, size := range valid {
		form := validForm()
		form.CompanySize = size
		if errs := ValidateRegisterForm(form); errs[FieldCompanySize] != "" {
			t.Errorf("CompanySize %q が拒否された: %v", size, errs[FieldCompanySize])
		}
	}

	form := validForm()
	form.CompanySize = "Ogromna"
	if errs := ValidateRegisterForm(form); errs[FieldCompanySize] == "" {
		t.Error("未定義のCompanySizeが受け付けられた")
	}
}

func TestValidateRegisterForm_PrivacyConsentRequired(t *testing.T) {
	form := validForm()
	form.PrivacyConsent = false

	errs := ValidateRegisterForm(form)
	if _, ok := errs[FieldPrivacyConsent]; !ok {
		t.Error("同意なしのフォームが受け付けられた")
	}
}

// --- NIPチェックサムのテスト ---

func TestValidateNIP(t *testing.T) {
	tests := []struct {
		name    string
		nip     string
		wantErr bool
	}{
		{"有効なNIP", "5260001246", false},
		{"ハイフン区切りの有効なNIP", "526-000-12-46", false},
		{"スペース区切りの有効なNIP", "526 000 12 46", false},
		{"チェックサム不正", "1234567890", true},
		{"桁数不足", "526000124", true},
		{"桁数超過", "52600012461", true},
		{"数字以外を含む", "52600O1246", true},
		{"空文字", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ValidateNIP(tt.nip)
			if (msg != "") != tt.wantErr {
				t.Errorf("ValidateNIP(%q) = %q, wantErr=%v", tt.nip, msg, tt.wantErr)
			}
		})
	}
}

// --- パスワードのテスト ---

func TestValidatePassword_LengthBoundaries(t *testing.T) {
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"5文字は短すぎる", "abcde", true},
		{"6文字は有効", "abcdef", false},
		{"72文字は有効", strings.Repeat("a", 72), false},
		{"73文字は長すぎる", strings.Repeat("a", 73), true},
		{"空文字", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ValidatePassword(tt.password)
			if (msg != "") != tt.wantErr {
				t.Errorf("ValidatePassword(len=%d) = %q, wantErr=%v", len(tt.password), msg, tt.wantErr)
			}
		})
	}
}

// --- 電話番号のテスト ---

func TestValidatePhone(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"国番号付き", "+48123456789", false},
		{"スペース区切り", "+48 123 456 789", false},
		{"ハイフン区切り", "123-456-789", false},
		{"括弧付き", "(12) 345 67 89", false},
		{"9桁", "123456789", false},
		{"15桁", "123456789012345", false},
		{"8桁は短すぎる", "12345678", true},
		{"16桁は長すぎる", "1234567890123456", true},
		{"文字を含む", "12345678a", true},
		{"空文字", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ValidatePhone(tt.phone)
			if (msg != "") != tt.wantErr {
				t.Errorf("ValidatePhone(%q) = %q, wantErr=%v", tt.phone, msg, tt.wantErr)
			}
		})
	}
}

// --- ウェブサイトのテスト ---

func TestValidateWebsite(t *testing.T) {
	tests := []struct {
		name    string
		website string
		wantErr bool
	}{
		{"https", "https://example.pl", false},
		{"http", "http://example.pl", false},
		{"パス付き", "https://example.pl/o-nas", false},
		{"スキームなし", "example.pl", true},
		{"ftpスキーム", "ftp://example.pl", true},
		{"ホストなし", "https://", true},
		{"単なる文字列", "nie-url", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ValidateWebsite(tt.website)
			if (msg != "") != tt.wantErr {
				t.Errorf("ValidateWebsite(%q) = %q, wantErr=%v", tt.website, msg, tt.wantErr)
			}
		})
	}
}

// --- メールアドレスのテスト ---

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{"標準形式", "jan@example.com", false},
		{"サブドメイン", "jan@mail.example.pl", false},
		{"アットマークなし", "jan.example.com", true},
		{"ドメインなし", "jan@", true},
		{"TLDなし", "jan@example", true},
		{"空文字", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ValidateEmail(tt.email)
			if (msg != "") != tt.wantErr {
				t.Errorf("ValidateEmail(%q) = %q, wantErr=%v", tt.email, msg, tt.wantErr)
			}
		})
	}
}
