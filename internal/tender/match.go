package tender

import (
	"strings"
	"unicode"

	"github.com/przetargo/api/internal/cpv"
	"github.com/przetargo/api/internal/model"
)

// スコアの重み。CPVの一致を主、キーワードの一致を従として扱う。
const (
	scoreCPVExact    = 60 // CPVコードの完全一致
	scoreCPVDivision = 40 // CPV部門(先頭2桁)の一致
	scorePerKeyword  = 15 // プロファイルのキーワード1語が公告文面に出現
	scoreMax         = 100
)

// minKeywordLength はマッチングに使うキーワードの最小長。
// 短すぎる語は前置詞等のノイズになる。
const minKeywordLength = 4

// MatchScore はプロファイルと公告の適合度を0〜100で算出する。
// CPVコードの一致とプロファイルの関心記述に含まれる語の出現を加点する。
// 同一の入力に対して常に同一のスコアを返す。
func MatchScore(profile *model.Profile, t *model.Tender) int {
	if profile == nil || t == nil {
		return 0
	}

	score := 0

	keywords := ExtractKeywords(profile.TenderDescription)
	if len(keywords) > 0 {
		haystack := strings.ToLower(t.Title + " " + t.Description)
		for _, kw := range keywords {
			if strings.Contains(haystack, kw) {
				score += scorePerKeyword
			}
		}
	}

	// CPVはプロファイル側の関心記述にコードが書かれている場合に照合する。
	// 例: "72000000-5" や "45" で始まるコード片。
	for _, kw := range keywords {
		if !looksLikeCPV(kw) {
			continue
		}
		if kw == t.CPVCode {
			score += scoreCPVExact
			break
		}
		if cpv.SameDivision(kw, t.CPVCode) {
			score += scoreCPVDivision
			break
		}
	}

	if score > scoreMax {
		score = scoreMax
	}
	return score
}

// ExtractKeywords は関心記述から小文字のキーワード一覧を抽出する。
// 文字・数字以外で分割し、短すぎる語と重複を取り除く。順序は入力順を保つ。
func ExtractKeywords(description string) []string {
	fields := strings.FieldsFunc(strings.ToLower(description), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})

	seen := make(map[string]struct{}, len(fields))
	var keywords []string
	for _, f := range fields {
		f = strings.Trim(f, "-")
		if len([]rune(f)) < minKeywordLength {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		keywords = append(keywords, f)
	}

	return keywords
}

// looksLikeCPV は語がCPVコード(8桁+チェック桁)またはその先頭部分かを判定する。
func looksLikeCPV(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == '-' && i >= 8 {
			continue
		}
		return false
	}
	return true
}
