package app

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"chatledger/pkg/store"
	"chatledger/pkg/types"
)

// startHTTP builds the router, starts the HTTP server in a goroutine and
// returns a channel that will contain any server error.
func (a *App) startHTTP() <-chan error {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/v1/stats", a.statsHandler).Methods(http.MethodGet)
	r.HandleFunc("/v1/chats/{id}/events", a.eventsHandler).Methods(http.MethodGet)

	a.srv = &http.Server{Addr: a.cfg.Addr(), Handler: r}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.srv.ListenAndServe()
	}()
	return errCh
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	if !store.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": ver})
}

func (a *App) statsHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.reg.Stats())
}

// eventsHandler dumps a slice of one ledger's event sequence. Intended for
// operators inspecting a journal, not for client sync.
func (a *App) eventsHandler(w http.ResponseWriter, r *http.Request) {
	chat := types.ChatID(mux.Vars(r)["id"])

	var from types.EventIndex
	if s := r.URL.Query().Get("from"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid from"})
			return
		}
		from = types.EventIndex(n)
	}

	var thread *types.MessageIndex
	if s := r.URL.Query().Get("thread"); s != "" {
		n, err := strconv.ParseUint(s, 10, 32)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid thread"})
			return
		}
		idx := types.MessageIndex(n)
		thread = &idx
	}

	events, err := a.reg.EventsSince(chat, thread, from, 0)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
