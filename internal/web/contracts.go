package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"

	"github.com/vbonduro/nutrisense/internal/domain"
)

// maxJSONBody bounds text and chat payloads.
const maxJSONBody = 1 << 20

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	Text    string `json:"text" validate:"notblank"`
	Profile string `json:"profile"`
}

// ChatRequest is the body of POST /chat. Context is the prior verdict or
// analysis text as the caller chooses to render it.
type ChatRequest struct {
	Question string `json:"question" validate:"notblank"`
	Context  string `json:"context"`
	Profile  string `json:"profile"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

// allowedImageTypes is the set of MIME types accepted for label photos.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// requestError is a client error whose message is safe to return.
type requestError struct {
	status int
	detail string
}

func (e *requestError) Error() string { return e.detail }

func badRequest(format string, args ...any) *requestError {
	return &requestError{status: http.StatusBadRequest, detail: fmt.Sprintf(format, args...)}
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("request body too large")
		}
		return badRequest("invalid JSON body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return badRequest("%s required", verrs[0].Field())
	}
	return badRequest("invalid request")
}

// resolveImageMIME returns the canonical MIME type of an upload. The declared
// part Content-Type wins; when it is absent or generic the bytes are sniffed.
func resolveImageMIME(declared string, data []byte) (string, bool) {
	mt := ""
	if declared != "" {
		if parsed, _, err := mime.ParseMediaType(declared); err == nil {
			mt = strings.ToLower(parsed)
		}
	}
	if mt == "" || mt == "application/octet-stream" {
		mt = mimetype.Detect(data).String()
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
	}
	if mt == "image/jpg" || mt == "image/pjpeg" {
		mt = "image/jpeg"
	}
	if allowedImageTypes[mt] {
		return mt, true
	}
	return "", false
}

func (r AnalyzeRequest) profile() domain.HealthProfile { return domain.ParseProfile(r.Profile) }

func (r ChatRequest) exchange() domain.ChatExchange {
	return domain.ChatExchange{
		Question: r.Question,
		Context:  r.Context,
		Profile:  domain.ParseProfile(r.Profile),
	}
}
