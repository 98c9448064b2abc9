// Package model はドメインモデルを定義する。
package model

import "time"

// Profile はIdentityと1対1で紐づく事業者情報を表す。
// 行はプロバイダ側のトリガーによりIdentity作成直後に自動作成され、
// 更新は認証済みの所有者による明示的なupdate呼び出しのみで行われる。
type Profile struct {
	ID                string // Identity IDと同一
	FirstName         string
	LastName          string
	Phone             string
	NIP               string // 10桁のチェックサム付き事業者税務番号
	CompanyName       string
	Website           string
	CompanySize       CompanySize
	TenderDescription string // 関心のある入札分野の自由記述（任意）
	CreatedAt         time.Time
}

// ProfilePatch はProfileの部分更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
type ProfilePatch struct {
	FirstName         *string
	LastName          *string
	Phone             *string
	NIP               *string
	CompanyName       *string
	Website           *string
	CompanySize       *CompanySize
	TenderDescription *string
}

// IsEmpty は更新対象フィールドが1つもないかどうかを返す。
func (p ProfilePatch) IsEmpty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Phone == nil &&
		p.NIP == nil && p.CompanyName == nil && p.Website == nil &&
		p.CompanySize == nil && p.TenderDescription == nil
}

// CompanySize は企業規模の区分を表す。
type CompanySize string

const (
	// CompanySizeSole は一人会社（JDG）。
	CompanySizeSole CompanySize = "Jednoosobowa (JDG)"
	// CompanySizeMicro はマイクロ企業（従業員1〜9名）。
	CompanySizeMicro CompanySize = "Mikro (1–9 pracowników)"
	// CompanySizeSmall は小企業（従業員10〜49名）。
	CompanySizeSmall CompanySize = "Mała (10–49 pracowników)"
	// CompanySizeMedium は中企業（従業員50〜249名）。
	CompanySizeMedium CompanySize = "Średnia (50–249 pracowników)"
	// CompanySizeLarge は大企業（従業員250名以上）。
	CompanySizeLarge CompanySize = "Duża (250+ pracowników)"
)

// CompanySizes は選択可能な企業規模の一覧。
var CompanySizes = []CompanySize{
	CompanySizeSole,
	CompanySizeMicro,
	CompanySizeSmall,
	CompanySizeMedium,
	CompanySizeLarge,
}

// Valid は企業規模が定義済みの5区分のいずれかであるかを返す。
func (c CompanySize) Valid() bool {
	for _, s := range CompanySizes {
		if c == s {
			return true
		}
	}
	return false
}
