package logger

import (
	"log/slog"
	"strings"

	"github.com/lmittmann/tint"
)

const redacted = "[REDACTED]"

// sensitiveKeys never reach log output: provider credentials, payment
// signatures and bearer tokens.
var sensitiveKeys = map[string]struct{}{
	"authorization":  {},
	"token":          {},
	"signature":      {},
	"key_secret":     {},
	"webhook_secret": {},
	"jwt_secret":     {},
	"password":       {},
}

func isSensitive(key string) bool {
	_, ok := sensitiveKeys[strings.ToLower(key)]
	return ok
}

// replaceAttr redacts sensitive keys. With styled set, error values get
// tint's error rendering.
func replaceAttr(styled bool) func(groups []string, a slog.Attr) slog.Attr {
	return func(groups []string, a slog.Attr) slog.Attr {
		if isSensitive(a.Key) {
			return slog.String(a.Key, redacted)
		}
		if styled && a.Key == "error" && a.Value.Kind() == slog.KindAny {
			if err, ok := a.Value.Any().(error); ok {
				return tint.Err(err)
			}
		}
		return a
	}
}
