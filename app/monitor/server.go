package monitor

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SetupServer builds the ops HTTP server: liveness, readiness (ready once
// the baseline tick has been persisted) and a status snapshot.
func (a *App) SetupServer() {
	r := mux.NewRouter()

	r.Handle("/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).Methods("GET")

	r.Handle("/readyz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if a.Monitor.Status().Ready {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})).Methods("GET")

	r.Handle("/statusz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.Monitor.Status())
	})).Methods("GET")

	r.Handle("/observedz/{txid}", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		txid := mux.Vars(req)["txid"]
		tick, ok := a.Monitor.FirstObserved(txid)
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"txid":                txid,
			"first_observed_tick": tick,
		})
	})).Methods("GET")

	a.Server = &http.Server{
		Addr:              a.Config.OpsAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
