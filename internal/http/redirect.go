package httpx

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/modscf/gateway/pkg/curseforge"
)

// HomepageURL is where the bare domain sends visitors.
const HomepageURL = "https://www.curseforge.com"

type healthResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (r *Router) handleRoot(w http.ResponseWriter, req *http.Request) {
	redirect(w, HomepageURL, http.StatusSeeOther)
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: http.StatusOK, Message: "OK"})
}

func (r *Router) handleNotFound(w http.ResponseWriter, req *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// handleProject redirects without consulting the API; CurseForge resolves
// project ids itself.
func (r *Router) handleProject(w http.ResponseWriter, req *http.Request) {
	projectID, err := parseID(req.PathValue("project_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	redirect(w, curseforge.ProjectPageURL(projectID), r.projectStatus)
}

func (r *Router) handleFile(w http.ResponseWriter, req *http.Request) {
	fileID, err := parseID(req.PathValue("file_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	if r.files == nil {
		r.logger.Error("file lookup unavailable", "file_id", fileID)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	project, file, err := r.files.GetFileInfo(req.Context(), fileID)
	switch {
	case errors.Is(err, curseforge.ErrNotFound):
		r.recordLookup("not_found")
		writeError(w, http.StatusNotFound, "file not found")
	case err != nil:
		r.recordLookup("error")
		fields := []any{"file_id", fileID, "error", err}
		var decodeErr *curseforge.DecodeError
		if errors.As(err, &decodeErr) {
			fields = append(fields, "field", decodeErr.Field, "upstream_url", decodeErr.URL)
		}
		var statusErr *curseforge.StatusError
		if errors.As(err, &statusErr) {
			fields = append(fields, "upstream_status", statusErr.Status)
		}
		if errors.Is(err, curseforge.ErrInconsistent) {
			fields = append(fields, "inconsistent", true)
		}
		r.logger.Error("file lookup failed", fields...)
		writeError(w, http.StatusInternalServerError, "internal server error")
	default:
		r.recordLookup("found")
		redirect(w, project.FileURL(file.ID), http.StatusSeeOther)
	}
}

func parseID(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
