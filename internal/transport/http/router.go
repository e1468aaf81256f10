package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"live-quiz-service/internal/app"
	"live-quiz-service/internal/domain"
)

const qrSize = 320

// ResultReader looks up persisted final standings.
type ResultReader interface {
	LatestByPIN(ctx context.Context, pin string) (domain.GameResult, error)
}

// RouterConfig collects what the HTTP surface needs.
type RouterConfig struct {
	Registry  *app.Registry
	WS        *WSHandler
	Results   ResultReader
	PublicURL string // base of the player join link; derived from the request when empty
}

func NewRouter(cfg RouterConfig) http.Handler {
	router := httprouter.New()
	router.GET("/healthz", healthHandler(cfg.Registry))
	router.GET("/ws", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		cfg.WS.ServeWS(w, r)
	})
	router.GET("/games/:pin/qr", qrHandler(cfg.Registry, cfg.PublicURL))
	if cfg.Results != nil {
		router.GET("/games/:pin/results", resultsHandler(cfg.Results))
	}
	return router
}

func healthHandler(registry *app.Registry) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "games": registry.Len()})
	}
}

// qrHandler renders the join link of a live game as a PNG for the lobby screen.
func qrHandler(registry *app.Registry, publicURL string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		pin := ps.ByName("pin")
		if _, ok := registry.SessionByPin(pin); !ok {
			http.Error(w, domain.ErrSessionNotFound.Error(), http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(r, publicURL, pin), qrcode.Medium, qrSize)
		if err != nil {
			log.Printf("qr %s: %v", pin, err)
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

func resultsHandler(results ResultReader) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		result, err := results.LatestByPIN(r.Context(), ps.ByName("pin"))
		if errors.Is(err, domain.ErrResultsNotFound) {
			writeJSON(w, http.StatusNotFound, failure{Error: err.Error()})
			return
		}
		if err != nil {
			log.Printf("results %s: %v", ps.ByName("pin"), err)
			writeJSON(w, http.StatusInternalServerError, failure{Error: "could not load results"})
			return
		}
		writeJSON(w, http.StatusOK, result)
	}
}

func joinURL(r *http.Request, publicURL, pin string) string {
	base := strings.TrimSuffix(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/?pin=" + url.QueryEscape(pin)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}
