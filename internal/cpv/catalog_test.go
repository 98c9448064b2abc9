package cpv

import (
	"sort"
	"strings"
	"testing"
)

func loadCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Load()
	if err != nil {
		t.Fatalf("カタログの読み込みに失敗した: %v", err)
	}
	return cat
}

func TestLoad_EmbeddedData(t *testing.T) {
	cat := loadCatalog(t)

	if len(cat.All()) == 0 {
		t.Fatal("埋め込みコード表が空")
	}

	// コード順にソートされている
	codes := cat.All()
	sorted := sort.SliceIsSorted(codes, func(i, j int) bool {
		return codes[i].Code < codes[j].Code
	})
	if !sorted {
		t.Error("コード一覧がソートされていない")
	}
}

func TestFind(t *testing.T) {
	cat := loadCatalog(t)

	code, ok := cat.Find("45000000-7")
	if !ok {
		t.Fatal("45000000-7 が見つからない")
	}
	if code.Name != "Roboty budowlane" {
		t.Errorf("分類名 = %q, want %q", code.Name, "Roboty budowlane")
	}

	if _, ok := cat.Find("99999999-9"); ok {
		t.Error("存在しないコードが見つかった")
	}
}

func TestSearch_CodePrefix(t *testing.T) {
	cat := loadCatalog(t)

	results := cat.Search("45", 0)
	if len(results) == 0 {
		t.Fatal("前方一致検索の結果が空")
	}
	for _, code := range results {
		if !strings.HasPrefix(code.Code, "45") && !strings.Contains(code.Name, "45") {
			t.Errorf("無関係なコードが結果に含まれる: %s %s", code.Code, code.Name)
		}
	}
}

func TestSearch_NameSubstring(t *testing.T) {
	cat := loadCatalog(t)

	// 大文字小文字を区別しない分類名検索
	results := cat.Search("roboty", 0)
	if len(results) == 0 {
		t.Fatal("分類名検索の結果が空")
	}

	var found bool
	for _, code := range results {
		if code.Code == "45000000-7" {
			found = true
		}
	}
	if !found {
		t.Error("「roboty」で 45000000-7 が見つからない")
	}
}

func TestSearch_DiacriticInsensitive(t *testing.T) {
	cat := loadCatalog(t)

	// ダイアクリティカルマークなしの入力で「Usługi informatyczne…」が一致する
	results := cat.Search("uslugi informatyczne", 0)
	var found bool
	for _, code := range results {
		if code.Code == "72000000-5" {
			found = true
		}
	}
	if !found {
		t.Error("「uslugi informatyczne」で 72000000-5 が見つからない")
	}
}

func TestSearch_Limit(t *testing.T) {
	cat := loadCatalog(t)

	results := cat.Search("a", 3)
	if len(results) > 3 {
		t.Errorf("結果件数 = %d, want ≤3", len(results))
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	cat := loadCatalog(t)

	if results := cat.Search("   ", 10); results != nil {
		t.Errorf("空クエリの結果 = %v, want nil", results)
	}
}

func TestDivision(t *testing.T) {
	if got := (Code{Code: "45000000-7"}).Division(); got != "45" {
		t.Errorf("Division() = %q, want %q", got, "45")
	}
	if got := (Code{Code: "4"}).Division(); got != "" {
		t.Errorf("Division() = %q, want 空", got)
	}
}

func TestSameDivision(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"45000000-7", "45230000-8", true},
		{"45000000-7", "72000000-5", false},
		{"45", "45000000-7", true},
		{"4", "45000000-7", false},
		{"", "", false},
	}

	for _, tt := range tests {
		if got := SameDivision(tt.a, tt.b); got != tt.want {
			t.Errorf("SameDivision(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}
