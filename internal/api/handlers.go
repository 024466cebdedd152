// Package api provides HTTP handlers for EchoGuide endpoints.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// startInteractionHandler runs one full voice interaction. Nearly every
// failure inside the flow is absorbed into spoken fallbacks; an error
// reaching this boundary means the flow could not run at all, typically a
// camera that would not start.
func (s *Server) startInteractionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.startInteractionHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.startInteractionHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	finalState, err := s.flows.Run(r.Context())
	if err != nil {
		slog.Error("Server.startInteractionHandler: interaction flow failed", "error", err)
		if s.camera != nil {
			s.camera.Stop()
		}
		writeJSONResponse(w, http.StatusInternalServerError, models.Error(fmt.Sprintf("An error occurred: %v", err)))
		return
	}

	slog.Info("Server.startInteractionHandler: interaction completed")
	writeJSONResponse(w, http.StatusOK, models.ResultFromState(finalState))
}

// addUserHandler registers the user's name and language preference and makes
// sure the matching recognition model is on disk.
func (s *Server) addUserHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.addUserHandler: processing request", "method", r.Method)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.addUserHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req models.AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.addUserHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	if err := req.Validate(); err != nil {
		slog.Warn("Server.addUserHandler: validation failed", "error", err, "language_code", req.LanguageCode)
		if errors.Is(err, models.ErrUnsupportedLanguage) {
			writeJSONResponse(w, http.StatusBadRequest,
				models.Error(fmt.Sprintf("Language code '%s' is not supported.", req.LanguageCode)))
			return
		}
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
		return
	}

	setting, err := models.SettingsFor(req.LanguageCode)
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest,
			models.Error(fmt.Sprintf("Language code '%s' is not supported.", req.LanguageCode)))
		return
	}

	if err := s.store.SaveUserName(strings.TrimSpace(req.Name)); err != nil {
		slog.Error("Server.addUserHandler: failed to save user name", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save user"))
		return
	}
	if err := s.store.SaveLanguage(req.LanguageCode); err != nil {
		slog.Error("Server.addUserHandler: failed to save language", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to save language preference"))
		return
	}

	if err := s.downloader.EnsureModel(r.Context(), setting); err != nil {
		slog.Error("Server.addUserHandler: model download failed", "error", err, "language_code", req.LanguageCode)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to prepare the speech model"))
		return
	}

	slog.Info("Server.addUserHandler: user registered", "language_code", req.LanguageCode)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// imageHandler serves the saved captured image.
func (s *Server) imageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/captured_images/")
	// Only bare filenames are allowed, no separators or parent references.
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		slog.Warn("Server.imageHandler: rejected filename", "filename", filename)
		writeJSONResponse(w, http.StatusNotFound, models.Error("Image not found"))
		return
	}

	http.ServeFile(w, r, filepath.Join(s.imageDir, filename))
}

// homeHandler reports whether a user is registered, so a client can decide
// between the welcome and home views.
func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Not found"))
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	user, err := s.store.LoadUserName()
	if err != nil {
		slog.Error("Server.homeHandler: failed to load user name", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Failed to load user"))
		return
	}

	status := models.StatusResponse{}
	if user != nil && user.Name != "" {
		status.Registered = true
		status.Name = user.Name
	}
	writeJSONResponse(w, http.StatusOK, status)
}
