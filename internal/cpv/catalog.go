// Package cpv は共通調達語彙(CPV)コードのカタログを提供する。
// コード表はバイナリに埋め込まれ、起動時に1回だけ読み込まれる。
package cpv

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
)

//go:embed data/cpv_codes.csv
var dataFS embed.FS

// Code は1件のCPVコードを表す。
type Code struct {
	Code string `json:"code"` // 例: "45000000-7"
	Name string `json:"name"` // ポーランド語の分類名
}

// Division は8桁コードの先頭2桁(部門)を返す。
func (c Code) Division() string {
	if len(c.Code) < 2 {
		return ""
	}
	return c.Code[:2]
}

// Catalog はCPVコードの読み取り専用カタログ。
type Catalog struct {
	codes  []Code
	byCode map[string]Code
}

var (
	loadOnce    sync.Once
	loadedCat   *Catalog
	loadedError error
)

// Load は埋め込まれたコード表からカタログを構築する。
// 2回目以降の呼び出しは初回の結果を返す。
func Load() (*Catalog, error) {
	loadOnce.Do(func() {
		loadedCat, loadedError = parse()
	})
	return loadedCat, loadedError
}

// parse は埋め込みCSVを読み込んでカタログを構築する。
func parse() (*Catalog, error) {
	f, err := dataFS.Open("data/cpv_codes.csv")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded CPV data: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = 2

	cat := &Catalog{byCode: make(map[string]Code)}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse CPV data: %w", err)
		}

		code := Code{
			Code: strings.TrimSpace(record[0]),
			Name: strings.TrimSpace(record[1]),
		}
		if code.Code == "" {
			continue
		}
		cat.codes = append(cat.codes, code)
		cat.byCode[code.Code] = code
	}

	sort.Slice(cat.codes, func(i, j int) bool {
		return cat.codes[i].Code < cat.codes[j].Code
	})

	return cat, nil
}

// All は全コードをコード順で返す。返されたスライスを変更してはならない。
func (c *Catalog) All() []Code {
	return c.codes
}

// Find は完全一致でコードを検索する。
func (c *Catalog) Find(code string) (Code, bool) {
	found, ok := c.byCode[code]
	return found, ok
}

// polishFolder はポーランド語のダイアクリティカルマークを基底文字に畳み込む。
var polishFolder = strings.NewReplacer(
	"ą", "a", "ć", "c", "ę", "e", "ł", "l", "ń", "n",
	"ó", "o", "ś", "s", "ź", "z", "ż", "z",
)

// foldQuery は検索比較用に小文字化とダイアクリティカルマークの畳み込みを行う。
func foldQuery(s string) string {
	return polishFolder.Replace(strings.ToLower(s))
}

// Search はコードの前方一致または分類名の部分一致でコードを検索する。
// 分類名の比較は大文字小文字・ダイアクリティカルマークを区別しない
// ("uslugi"で"Usługi"が一致する)。limitが0以下の場合は全件を返す。
func (c *Catalog) Search(query string, limit int) []Code {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}
	folded := foldQuery(query)

	var results []Code
	for _, code := range c.codes {
		if strings.HasPrefix(code.Code, query) || strings.Contains(foldQuery(code.Name), folded) {
			results = append(results, code)
			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results
}

// SameDivision は2つのCPVコードが同じ部門(先頭2桁)に属するかを返す。
func SameDivision(a, b string) bool {
	if len(a) < 2 || len(b) < 2 {
		return false
	}
	return a[:2] == b[:2]
}
