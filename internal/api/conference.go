package api

import (
	"net/http"

	"github.com/navikt/zmeet/internal/config"
	"github.com/navikt/zmeet/internal/jitsi"
)

// ConferenceConfigHandler serves the generated Jitsi client configuration.
// Without a file parameter it returns every file as a JSON object keyed by
// file name. With ?file=config.js it returns that file as JavaScript.
func ConferenceConfigHandler(settings config.ConferenceSettings) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		files, err := jitsi.GenerateConfig(settings)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}

		name := r.URL.Query().Get("file")
		if name == "" {
			writeJSON(w, http.StatusOK, files)
			return
		}

		content, ok := files[name]
		if !ok {
			writeError(w, http.StatusNotFound, "Unknown config file")
			return
		}
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(content))
	}
}
