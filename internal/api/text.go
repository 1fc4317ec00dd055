package api

import (
	"fmt"
	"log/slog"
	"net/http"
)

func writeText(w http.ResponseWriter, status int, format string, args ...any) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := fmt.Fprintf(w, format+"\n", args...); err != nil {
		slog.Error("response write failed", slog.String("error", err.Error()))
	}
}
