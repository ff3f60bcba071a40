// Package rest provides the HTTP/JSON conversion endpoints.
package rest

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/mux"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"

	"github.com/osa030/playlog/internal/api/dto"
	"github.com/osa030/playlog/internal/app/convert"
	"github.com/osa030/playlog/internal/domain/logsheet"
)

const (
	maxBodyBytes = 64 << 10
	// WarningHeader carries one conversion warning per value on CSV downloads.
	WarningHeader = "X-Conversion-Warning"
	// DownloadFilename is the attachment name of CSV downloads.
	DownloadFilename = "playlist.csv"
)

// Converter performs conversions.
type Converter interface {
	Convert(ctx context.Context, req convert.Request) (*convert.Result, error)
}

// Handler serves the REST endpoints.
type Handler struct {
	converter      Converter
	allowedOrigins []string
}

// NewHandler creates a new Handler.
func NewHandler(converter Converter, allowedOrigins []string) *Handler {
	return &Handler{
		converter:      converter,
		allowedOrigins: allowedOrigins,
	}
}

// Register adds the endpoints to router.
func (h *Handler) Register(router *mux.Router) {
	router.Use(requestIDMiddleware)
	router.Use(mux.CORSMethodMiddleware(router))
	router.Use(h.corsMiddleware)

	router.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/convert", h.handleConvert).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/convert/{format:new|old}", h.handleConvert).Methods(http.MethodPost, http.MethodOptions)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleConvert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := zerolog.Ctx(ctx)

	body, err := decodeRequest(w, r)
	if err != nil {
		log.Debug().Err(err).Msg("rejected request body")
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Error: "request body must be JSON or form data"})
		return
	}

	format := body.Format
	if v, ok := mux.Vars(r)["format"]; ok {
		format = v
	}
	// An unknown format stays invalid and is rejected by the service.
	f, _ := logsheet.ParseFormat(format)

	res, err := h.converter.Convert(ctx, convert.Request{
		PlaylistURL: body.PlaylistURL,
		Format:      f,
		ShowTitle:   body.ShowTitle,
		ShowDate:    body.ShowDate,
	})
	if err != nil {
		h.writeError(ctx, w, err)
		return
	}

	if wantsDownload(r) {
		for _, warning := range res.Warnings {
			w.Header().Add(WarningHeader, warning)
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadFilename+`"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(res.Body))
		return
	}

	writeJSON(w, http.StatusOK, dto.ConvertResponse{
		PlaylistName: res.PlaylistName,
		Warnings:     res.Warnings,
		Body:         res.Body,
	})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, err error) {
	class := convert.Classify(err)
	event := zerolog.Ctx(ctx).Warn()
	if class == convert.ClassInternal {
		event = zerolog.Ctx(ctx).Error()
	}
	event.Err(err).Str("class", class.String()).Msg("conversion failed")

	writeJSON(w, statusFor(class), dto.ErrorResponse{Error: convert.UserMessage(err)})
}

func statusFor(c convert.Class) int {
	switch c {
	case convert.ClassValidation:
		return http.StatusBadRequest
	case convert.ClassNotFound:
		return http.StatusNotFound
	case convert.ClassRateLimit:
		return http.StatusTooManyRequests
	case convert.ClassTransient:
		return http.StatusServiceUnavailable
	case convert.ClassAuth:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeRequest reads a JSON or form-encoded body into a ConvertRequest.
func decodeRequest(w http.ResponseWriter, r *http.Request) (*dto.ConvertRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	fields := make(map[string]any)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(maxBodyBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return nil, errors.Wrap(err, "failed to parse form")
		}
		for k, v := range r.PostForm {
			if len(v) > 0 {
				fields[k] = v[0]
			}
		}
	case "application/json", "":
		if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
			return nil, errors.Wrap(err, "failed to decode JSON body")
		}
	default:
		return nil, errors.Newf("unsupported content type %q", mediaType)
	}

	var req dto.ConvertRequest
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &req,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(fields); err != nil {
		return nil, errors.Wrap(err, "failed to decode request")
	}
	return &req, nil
}

func wantsDownload(r *http.Request) bool {
	switch strings.ToLower(r.URL.Query().Get("download")) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
