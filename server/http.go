package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/jonwraymond/tooldiscovery/tooldoc"

	"github.com/jonwraymond/cellexec/exec"
)

// runBody is the /run payload. Pointers distinguish absent fields.
type runBody struct {
	CellID         *string        `json:"cellId"`
	PredecessorIDs []string       `json:"predecessorIds"`
	Code           *string        `json:"code"`
	CapturedIn     map[string]any `json:"capturedIn"`
	CapturedOut    []string       `json:"capturedOut"`
}

func (b runBody) validate() error {
	var missing []string
	if b.CellID == nil {
		missing = append(missing, "cellId")
	}
	if b.Code == nil {
		missing = append(missing, "code")
	}
	if len(missing) > 0 {
		return errors.New("field required: " + strings.Join(missing, ", "))
	}
	return nil
}

func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var body runBody
	if err := jsonAPI.Unmarshal(data, &body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "malformed JSON body: "+err.Error())
		return
	}
	if err := body.validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	resp, err := s.exec.RunCell(r.Context(), exec.Request{
		CellID:         *body.CellID,
		PredecessorIDs: body.PredecessorIDs,
		Code:           *body.Code,
		CapturedIn:     body.CapturedIn,
		CapturedOut:    body.CapturedOut,
	})
	if errors.Is(err, exec.ErrInvalidRequest) {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type toolSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Summary string `json:"summary,omitempty"`
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusUnprocessableEntity, "limit must be a positive integer")
			return
		}
		limit = n
	}

	out := make([]toolSummary, 0)
	if q == "" {
		tools, err := s.agg.ListAllTools(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, t := range tools {
			if len(out) == limit {
				break
			}
			out = append(out, toolSummary{ID: t.Namespace + ":" + t.Name, Name: t.Name, Summary: t.Description})
		}
	} else {
		results, err := s.exec.SearchTools(r.Context(), q, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		for _, res := range results {
			out = append(out, toolSummary{ID: res.ID, Name: res.Name, Summary: res.ShortDescription})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tools": out})
}

type toolDocBody struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Summary     string `json:"summary,omitempty"`
	Notes       string `json:"notes,omitempty"`
	InputSchema any    `json:"inputSchema,omitempty"`
}

func (s *Server) handleToolDoc(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	level := tooldoc.DetailSummary
	if r.URL.Query().Get("detail") == "full" {
		level = tooldoc.DetailFull
	}

	doc, err := s.exec.GetToolDoc(r.Context(), id, level)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	body := toolDocBody{ID: id, Summary: doc.Summary, Notes: doc.Notes}
	if doc.Tool != nil {
		body.Name = doc.Tool.Name
		body.Description = doc.Tool.Description
		if level == tooldoc.DetailFull {
			body.InputSchema = doc.Tool.InputSchema
		}
	}
	writeJSON(w, http.StatusOK, body)
}
