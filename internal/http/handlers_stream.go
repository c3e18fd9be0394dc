package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"fintrack/internal/log"
	"fintrack/internal/view"
)

// handleStream serves the live view model over server-sent events. The
// current model is sent immediately, then every change pushed by the session
// until the client disconnects.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request, owner string) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	us, err := s.sessions.get(r.Context(), owner)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	ch, cancel := us.watch()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeEvent(w, view.Project(us.ctrl.State()))
	flusher.Flush()

	s.logger.InfoContext(r.Context(), "Stream opened", log.FieldOwner, owner)

	for {
		select {
		case <-r.Context().Done():
			s.logger.InfoContext(r.Context(), "Stream closed", log.FieldOwner, owner)
			return
		case model := <-ch:
			writeEvent(w, model)
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, model view.Model) {
	data, err := json.Marshal(model)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: view\ndata: %s\n\n", data)
}
