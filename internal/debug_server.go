// Package internal hosts the optional debug inspect server: a plain HTML
// view of the live sessions, served on a separate port when DEBUG_PORT is
// set. It is a development aid, never exposed in production.
package internal

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"
)

//go:embed inspect.html
var templatesFS embed.FS

// InspectRow is one live session as shown on the inspect page.
type InspectRow struct {
	UserID    int64
	SessionID string
	Buffered  int
	Capacity  int
	Missed    uint64
}

type SnapshotProvider func() []InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Items []InspectRow
	Stats map[string]any
}

// StartDebugServer serves the inspect page in a background goroutine. A
// failure to bind is logged, not fatal: losing the debug page must never
// take the service down.
func StartDebugServer(log *slog.Logger, port int, endpoint string,
	snapshot SnapshotProvider, stats StatsProvider) {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	mux := http.NewServeMux()
	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		data := PageData{Items: snapshot(), Stats: stats()}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := tmpl.Execute(w, data); err != nil {
			log.Error("Inspect page render failed", "error", err)
		}
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("Debug inspect server started", "port", port, "endpoint", endpoint)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Debug inspect server stopped", "error", err)
		}
	}()
}
