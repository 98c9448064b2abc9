package handler

import (
	"fmt"
	"net/http"
)

// publicPages は認証不要で配信されるページのパス一覧。
var publicPages = map[string]string{
	"/":                "Przetargo",
	"/funkcje":         "Funkcje — Przetargo",
	"/rozwiazania":     "Rozwiązania — Przetargo",
	"/cennik":          "Cennik — Przetargo",
	"/zasoby":          "Zasoby — Przetargo",
	"/zaloguj":         "Logowanie — Przetargo",
	"/zarejestruj":     "Rejestracja — Przetargo",
	"/potwierdz-email": "Potwierdź email — Przetargo",
}

// dashboardPages はログイン必須の配下ページのパス一覧。
var dashboardPages = map[string]string{
	"/dashboard":               "Moje przetargi — Przetargo",
	"/dashboard/szukaj":        "Szukaj przetargów — Przetargo",
	"/dashboard/powiadomienia": "Powiadomienia — Przetargo",
	"/dashboard/cpv":           "Kody CPV — Przetargo",
	"/dashboard/firma":         "Profil firmy — Przetargo",
	"/dashboard/ustawienia":    "Ustawienia — Przetargo",
}

// PageHandler はアプリケーションシェルのHTMLを配信するハンドラー。
// 画面の実体はフロントエンドが描画するため、ここではシェルのみ返す。
type PageHandler struct{}

// NewPageHandler はPageHandlerを生成する。
func NewPageHandler() *PageHandler {
	return &PageHandler{}
}

// ServePublicPage は公開ページを配信する。未知のパスはトップへリダイレクトする。
func (h *PageHandler) ServePublicPage(w http.ResponseWriter, r *http.Request) {
	title, ok := publicPages[r.URL.Path]
	if !ok {
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	writeShell(w, title)
}

// ServeDashboardPage はログイン必須ページを配信する。
// 認証チェックはガードミドルウェアの責務であり、ここでは行わない。
func (h *PageHandler) ServeDashboardPage(w http.ResponseWriter, r *http.Request) {
	title, ok := dashboardPages[r.URL.Path]
	if !ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	writeShell(w, title)
}

// writeShell はアプリケーションシェルのHTMLを書き込む。
func writeShell(w http.ResponseWriter, title string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="pl">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>%s</title>
</head>
<body>
<div id="root"></div>
<script type="module" src="/assets/app.js"></script>
</body>
</html>
`, title)
}
