// Package logger はJSON構造化ログの初期化を提供する。
// APIサーバーと公告取り込みワーカーは同一バイナリで動くため、
// ログ集約時に識別できるよう全行にservice属性を付与する。
package logger

import (
	"io"
	"log/slog"
	"os"
)

// serviceName は全ログ行に付与するサービス識別子。
const serviceName = "przetargo-api"

// Setup はJSON構造化ログ出力のslog.Loggerを生成して返す。
// writerが指定された場合はそのwriterに出力する。
func Setup(w io.Writer) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return slog.New(handler).With(slog.String("service", serviceName))
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// writerが指定された場合はそのwriterに出力する。
// 本番ではos.Stdoutを渡すことを想定している。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	logger := Setup(w)
	slog.SetDefault(logger)
}
