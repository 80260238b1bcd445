package api

import "net/http"

// ProfilesProvider lists analysis profiles.
type ProfilesProvider interface {
	Profiles() []string
	DefaultProfile() string
}

// ProfilesHandler handles profile requests.
type ProfilesHandler struct {
	provider ProfilesProvider
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(provider ProfilesProvider) *ProfilesHandler {
	return &ProfilesHandler{provider: provider}
}

// HandleList handles GET /profiles requests.
func (h *ProfilesHandler) HandleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"profiles": h.provider.Profiles(),
		"default":  h.provider.DefaultProfile(),
	})
}
