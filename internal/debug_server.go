package internal

import (
	"context"
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

// InspectRow is one live registry entry rendered on the inspect page.
type InspectRow struct {
	Kind   string
	Key    string
	Detail string
}

type RowProvider func() []InspectRow
type StatsProvider func() map[string]any

type PageData struct {
	Items []InspectRow
	Stats map[string]any
}

func inspectHandler(rows RowProvider, statsProvider StatsProvider) http.HandlerFunc {
	tmpl := template.Must(template.ParseFS(templatesFS, "inspect.html"))

	return func(w http.ResponseWriter, r *http.Request) {
		data := PageData{Stats: make(map[string]any)}
		if rows != nil {
			data.Items = rows()
		}
		if statsProvider != nil {
			data.Stats = statsProvider()
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = tmpl.Execute(w, data)
	}
}

// StartDebugServer serves a live view of the registries and monitoring
// counters on its own port. Intended for operators; it exposes no mutation.
// The server stops when ctx is canceled, and a listen failure (port clash,
// permission) is logged instead of vanishing.
func StartDebugServer(ctx context.Context, log *slog.Logger, port int, endpoint string,
	rows RowProvider, statsProvider StatsProvider) {
	mux := http.NewServeMux()
	mux.HandleFunc(endpoint, inspectHandler(rows, statsProvider))

	srv := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", port),
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Debug server failed", "addr", srv.Addr, "err", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
