package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/nippo-signage/go/internal/extractor"
	"github.com/nippo-signage/go/internal/models"
	"github.com/nippo-signage/go/internal/schedule"
	"github.com/nippo-signage/go/internal/signage"
)

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// RowsEndpoint handles POST /api/rows: it lists the work-item rows of an
// uploaded report for selection.
type RowsEndpoint struct{ s *Server }

func (e *RowsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/rows", e.handler
}

func (e *RowsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := e.s.state()
	data, err := readUpload(w, r, st.cfg.Server.MaxUploadMB)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	doc, err := schedule.Load(data, st.cfg.ExtractOptions(), st.cfg.RowFilter())
	listing := doc.Listing(st.cfg.ListingPlaceholders())
	if errors.Is(err, extractor.ErrDocumentUnreadable) {
		writeJSON(w, http.StatusUnprocessableEntity, listing)
		return
	}
	writeJSON(w, http.StatusOK, listing)
}

// RenderEndpoint handles POST /api/render and answers with the signage PNG.
type RenderEndpoint struct{ s *Server }

func (e *RenderEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/render", e.handler
}

func (e *RenderEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	st := e.s.state()
	data, err := readUpload(w, r, st.cfg.Server.MaxUploadMB)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	indices, err := schedule.ParseSelection(r.FormValue("select"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(indices) == 0 {
		writeError(w, http.StatusBadRequest, schedule.ErrEmptySelection.Error())
		return
	}
	dateLabel, err := signage.ResolveDateLabel(r.FormValue("date"), e.s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	doc, err := schedule.Load(data, st.cfg.ExtractOptions(), st.cfg.RowFilter())
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, models.StatusUnreadable.Message())
		return
	}
	if !doc.Status.HasRows() {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Status: doc.Status, Error: doc.Status.Message()})
		return
	}
	records, err := schedule.Select(doc.Rows, indices, st.cfg.RenderPlaceholders())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	renderID := uuid.New().String()
	res := st.composer.Compose(signage.Request{DateLabel: dateLabel, Records: records})
	var buf bytes.Buffer
	if err := signage.EncodePNG(&buf, res.Image); err != nil {
		e.s.logger.Error("png encoding failed", "render_id", renderID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to encode image")
		return
	}
	e.s.logger.Info("rendered signage", "render_id", renderID, "records", len(records), "hidden", res.Hidden)

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="signage.png"`)
	w.Header().Set("X-Render-ID", renderID)
	w.Header().Set("X-Max-Rows", strconv.Itoa(st.composer.Layout.MaxRows(res.Image.Bounds().Dy())))
	if res.Hidden > 0 {
		w.Header().Set("X-Hidden-Rows", strconv.Itoa(res.Hidden))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// readUpload returns the bytes of the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request, maxMB int) ([]byte, error) {
	if maxMB <= 0 {
		maxMB = 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxMB)<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	defer r.MultipartForm.RemoveAll()

	f, _, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("no file uploaded")
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response. Status is set when the report
// was read but yielded nothing to render.
type ErrorResponse struct {
	Status models.Status `json:"status,omitempty"`
	Error  string        `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
