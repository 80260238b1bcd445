package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/fightlog/internal/domain/dispatch"
	"github.com/okian/fightlog/internal/domain/model"
	"github.com/okian/fightlog/internal/domain/results"
)

// AnalysesHandler handles analysis submissions and report reads.
type AnalysesHandler struct {
	deps        Dependencies
	maxList     int
	maxBodySize int64
}

// NewAnalysesHandler creates a new analyses handler.
func NewAnalysesHandler(deps Dependencies, maxList int, maxBodySize int64) *AnalysesHandler {
	return &AnalysesHandler{deps: deps, maxList: maxList, maxBodySize: maxBodySize}
}

// analysisRequest mirrors the body of POST /analyses.
type analysisRequest model.Job

func (r *analysisRequest) validate() error {
	switch {
	case r.Events == nil:
		return errors.New("missing events")
	case r.Encounter.End < r.Encounter.Start:
		return errors.New("encounter end before start")
	case strings.ContainsAny(r.ID, "/?#"):
		return errors.New("id must not contain '/', '?' or '#'")
	}
	return nil
}

type syncResponse struct {
	ID     string          `json:"id,omitempty"`
	Status model.Status    `json:"status"`
	Result *results.Result `json:"result"`
	Stats  dispatch.Stats  `json:"stats"`
}

// HandlePost handles POST /analyses. With ?sync=true the analysis runs in
// the request and the result is returned; otherwise it is queued.
func (h *AnalysesHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_analysis"

	var req analysisRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	sync, _ := strconv.ParseBool(r.URL.Query().Get("sync"))
	if sync {
		res, stats, err := h.deps.Analyze(r.Context(), model.Job(req))
		if err != nil {
			fail(w, op, err)
			return
		}
		writeJSON(w, http.StatusOK, syncResponse{ID: req.ID, Status: model.StatusDone, Result: res, Stats: stats})
		return
	}

	id, duplicate, err := h.deps.Submit(r.Context(), model.Job(req))
	if err != nil {
		fail(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{ID: id, Status: "duplicate", Duplicate: true})
		return
	}
	w.Header().Set("Location", "/analyses/"+id)
	writeJSON(w, http.StatusAccepted, ackResponse{ID: id, Status: string(model.StatusQueued)})
}

// HandleGet handles GET /analyses/{id}.
func (h *AnalysesHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_analysis"

	id := r.PathValue("id")
	if strings.TrimSpace(id) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rep, err := h.deps.Report(r.Context(), id)
	if err != nil {
		fail(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// HandleList handles GET /analyses?limit=N.
func (h *AnalysesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_analyses"

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, fmt.Errorf("invalid limit %q", v)))
			return
		}
		limit = n
	}
	limit = min(limit, h.maxList)

	reps, err := h.deps.Reports(r.Context(), limit)
	if err != nil {
		fail(w, op, err)
		return
	}
	// list view omits results; fetch a single report for the full body
	for i := range reps {
		reps[i].Result = nil
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": len(reps), "limit": limit, "reports": reps})
}
