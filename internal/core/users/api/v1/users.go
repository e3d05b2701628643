// Package v1 exposes the users HTTP API under /v1/users.
package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/R3E-Network/paneladmin/internal/core/users"
	svcerrors "github.com/R3E-Network/paneladmin/internal/errors"
	"github.com/R3E-Network/paneladmin/internal/httputil"
	"github.com/R3E-Network/paneladmin/internal/plugin"
	"github.com/R3E-Network/paneladmin/internal/routes"
	"github.com/R3E-Network/paneladmin/pkg/logger"
)

// List pagination bounds.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

func init() {
	plugin.Register("core.users.api.v1.users", func(deps plugin.Deps) (*plugin.Unit, error) {
		var store users.Store
		if deps.DB != nil {
			store = users.NewRepository(deps.DB)
		}
		return &plugin.Unit{
			Members: []plugin.Member{
				{Name: plugin.DefaultRouterName, Value: NewRouter(store, deps.Log)},
			},
		}, nil
	})
}

// Handler serves the users endpoints. A nil store answers 503 on every
// endpoint that needs the database.
type Handler struct {
	store users.Store
	log   *logger.Logger
}

// NewRouter returns the route registry for the users API.
func NewRouter(store users.Store, log *logger.Logger) *routes.Registry {
	if log == nil {
		log = logger.Discard()
	}
	h := &Handler{store: store, log: log}
	return routes.New("/v1/users", "users").
		Get("/test", "Get user info", h.test).
		Get("", "List users", h.list).
		Post("", "Create user", h.create).
		Get("/{id:[0-9]+}", "Get user", h.get)
}

func (h *Handler) test(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":  1,
		"username": "testuser",
	})
}

type listResponse struct {
	Items  []users.User `json:"items"`
	Total  int          `json:"total"`
	Limit  int          `json:"limit"`
	Offset int          `json:"offset"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	limit, err := queryInt(r, "limit", DefaultLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	items, err := h.store.List(r.Context(), limit, offset)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	total, err := h.store.Count(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Items: items, Total: total, Limit: limit, Offset: offset})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		httputil.WriteError(w, svcerrors.BadRequest("invalid user id"))
		return
	}

	u, err := h.store.Get(r.Context(), id)
	if errors.Is(err, users.ErrNotFound) {
		httputil.WriteError(w, svcerrors.NotFound("user", raw))
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}
	var in users.NewUser
	if err := httputil.DecodeJSON(w, r, &in); err != nil {
		httputil.WriteError(w, err)
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		se := svcerrors.BadRequest("invalid user")
		var verr *users.ValidationError
		if errors.As(err, &verr) {
			for field, msg := range verr.Fields {
				se.WithDetail(field, msg)
			}
		}
		httputil.WriteError(w, se)
		return
	}

	var hash *string
	if in.Password != "" {
		hashed, err := users.HashPassword(in.Password)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		hash = &hashed
	}

	u, err := h.store.Create(r.Context(), in, hash)
	if errors.Is(err, users.ErrDuplicate) {
		httputil.WriteError(w, svcerrors.Conflict("username or email already exists"))
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.log.WithTrace(r.Context()).WithField("user_id", u.ID).Info("user created")
	httputil.WriteJSON(w, http.StatusCreated, u)
}

func (h *Handler) available(w http.ResponseWriter) bool {
	if h.store == nil {
		httputil.WriteError(w, svcerrors.Unavailable("database not configured"))
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithTrace(r.Context()).WithError(err).Error("users request failed")
	httputil.WriteError(w, svcerrors.Internal("internal server error", err))
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, svcerrors.BadRequest(key + " must be a non-negative integer")
	}
	return n, nil
}
