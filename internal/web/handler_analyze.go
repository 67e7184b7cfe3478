package web

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/vbonduro/nutrisense/internal/domain"
)

func (s *Server) handleAnalyzeText(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	verdict := s.analyzer.AnalyzeText(r.Context(), req.Text, req.profile())
	writeJSON(w, http.StatusOK, verdict)
}

// formOverhead is slack for multipart boundaries and the profile field.
const formOverhead = 64 << 10

func (s *Server) handleAnalyzeImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes+formOverhead)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, "image too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to parse form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file required")
		return
	}
	defer closeWithLog(file, "upload file", s.logger)

	imageData, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read file")
		s.logger.ErrorContext(r.Context(), "read upload failed", "error", err)
		return
	}
	if len(imageData) == 0 {
		writeError(w, http.StatusBadRequest, "file is empty")
		return
	}

	mimeType, ok := resolveImageMIME(header.Header.Get("Content-Type"), imageData)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid image format")
		return
	}

	profile := domain.ParseProfile(r.FormValue("profile"))
	verdict := s.analyzer.AnalyzeImage(r.Context(), imageData, mimeType, profile)
	writeJSON(w, http.StatusOK, verdict)
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeRequestError(w, r, err)
		return
	}

	answer := s.analyzer.AskFollowup(r.Context(), req.exchange())
	writeJSON(w, http.StatusOK, ChatResponse{Answer: answer})
}

func (s *Server) writeRequestError(w http.ResponseWriter, r *http.Request, err error) {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		writeError(w, reqErr.status, reqErr.detail)
		return
	}
	s.logger.ErrorContext(r.Context(), "unexpected request error", "error", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}
