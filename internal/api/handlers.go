// Package api exposes rendered configuration over a read-only HTTP surface.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"ovpnscale/internal/controller"
	"ovpnscale/internal/logs"
	"ovpnscale/internal/middleware"
	"ovpnscale/internal/models"
	"ovpnscale/internal/render/ovpn"
	"ovpnscale/internal/repo"
	"ovpnscale/internal/validation"
)

const HeaderChecksum = "X-Config-Checksum"

type Renderer interface {
	RenderServer(ctx context.Context, id uint) (*controller.Artifact, error)
	RenderClient(ctx context.Context, id uint) (*controller.Artifact, error)
	ClientBundle(ctx context.Context, name string) (*controller.Bundle, error)
}

type Handler struct {
	r Renderer
}

func NewHandler(r Renderer) *Handler { return &Handler{r: r} }

// RegisterRoutes монтирует GET-эндпоинты под /api/v1.
func RegisterRoutes(r *mux.Router, h *Handler) {
	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/server-configs/{id:[0-9]+}/config", h.ServerConfig).Methods(http.MethodGet)
	v1.HandleFunc("/client-configs/{id:[0-9]+}/config", h.ClientConfig).Methods(http.MethodGet)
	v1.HandleFunc("/certificates/{name}/bundle", h.CertificateBundle).Methods(http.MethodGet)
}

func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 32)
	return uint(id), err == nil
}

func (h *Handler) ServerConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid id", nil)
		return
	}
	a, err := h.r.RenderServer(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(HeaderChecksum, a.Checksum)
	models.WriteText(w, http.StatusOK, a.Text)
}

func (h *Handler) ClientConfig(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		models.WriteProblem(w, http.StatusBadRequest, "Bad Request", "invalid id", nil)
		return
	}
	a, err := h.r.RenderClient(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set(HeaderChecksum, a.Checksum)
	models.WriteText(w, http.StatusOK, a.Text)
}

func (h *Handler) CertificateBundle(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	b, err := h.r.ClientBundle(r.Context(), name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/gzip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`.tar.gz"`)
	w.Header().Set(HeaderChecksum, b.Checksum)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b.Archive)
}

// writeError maps domain errors onto problem responses.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		malformed *ovpn.MalformedEntityError
		verrs     validation.Errors
	)
	switch {
	case errors.Is(err, repo.ErrNotFound):
		models.WriteProblem(w, http.StatusNotFound, "Not Found", err.Error(), nil)
	case errors.As(err, &malformed):
		var extra any
		if errors.As(malformed.Err, &verrs) {
			extra = verrs
		}
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Malformed Entity", err.Error(), extra)
	case errors.Is(err, ovpn.ErrNoRemotesAvailable),
		errors.Is(err, controller.ErrCertificateInactive),
		errors.Is(err, controller.ErrCertificateNotIssued),
		errors.Is(err, controller.ErrNotClientCertificate):
		models.WriteProblem(w, http.StatusUnprocessableEntity, "Unprocessable Entity", err.Error(), nil)
	default:
		logs.Component("api").WithError(err).WithField("reqid", middleware.RequestIDFrom(r.Context())).
			Error("render failed")
		models.WriteProblem(w, http.StatusInternalServerError, "Internal Server Error", "render failed", nil)
	}
}
