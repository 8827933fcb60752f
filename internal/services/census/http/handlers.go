// Package http provides http transport for the census engine
package http

import (
	stdhttp "net/http"
	"strconv"

	"heapcensus/internal/modkit/httpkit"
	perr "heapcensus/internal/platform/errors"
	"heapcensus/internal/services/census/board"
	"heapcensus/internal/services/census/domain"
	svc "heapcensus/internal/services/census/service"

	"github.com/go-chi/chi/v5"
)

// Deps are the read and control surfaces the handlers use
type Deps struct {
	Svc   svc.Service
	Board *board.Board

	// History lists persisted cycles; nil when no store is configured
	History domain.HistoryReader

	// HistoryStats reports recorder counters; nil when recording is off
	HistoryStats func() svc.HistoryStats
}

// ReloadInput sets or clears the needs reload flag
type ReloadInput struct {
	NeedsReload *bool `json:"needs_reload" validate:"required"`
}

// StatusOut is the census status payload
type StatusOut struct {
	Census  domain.Status     `json:"census"`
	Busy    bool              `json:"busy"`
	Hidden  bool              `json:"hidden"`
	History *svc.HistoryStats `json:"history,omitempty"`
}

// Register mounts census endpoints on the given router
func Register(r httpkit.Router, d Deps) {
	h := &handlers{d: d}

	// board and controller
	httpkit.Get(r, "/", h.board)
	httpkit.Get(r, "/status", h.status)
	httpkit.PostJSON[ReloadInput](r, "/reload", h.reload)
	httpkit.Post(r, "/refresh", h.refresh)

	// tracking and drill-down
	httpkit.Get(r, "/tracked", h.tracked)
	httpkit.Get(r, "/tracked/{classID}", h.trackedClass)
	httpkit.Get(r, "/classes/{classID}/instances", h.instances)

	httpkit.Get(r, "/history", h.history)
}

type handlers struct{ d Deps }

// swagger:route GET /census Census censusBoard
// @Summary Latest census
// @Tags Census
// @Produce json
// @Param q query string false "Class name filter"
// @Param diff_only query bool false "Only classes whose count changed"
// @Param instances_only query bool false "Only classes with instances"
// @Param limit query int false "Max rows"
// @Success 200 {object} board.View "ok"
// @Router /census [get]
func (h *handlers) board(r *stdhttp.Request) (any, error) {
	q := r.URL.Query()
	f := board.Filter{Query: q.Get("q")}
	var err error
	if f.DiffOnly, err = queryBool(r, "diff_only"); err != nil {
		return nil, err
	}
	if f.InstancesOnly, err = queryBool(r, "instances_only"); err != nil {
		return nil, err
	}
	if f.Limit, err = queryInt(r, "limit", 0); err != nil {
		return nil, err
	}
	return h.d.Board.View(f), nil
}

// swagger:route GET /census/status Census censusStatus
// @Summary Controller and executor status
// @Tags Census
// @Produce json
// @Success 200 {object} StatusOut "ok"
// @Router /census/status [get]
func (h *handlers) status(_ *stdhttp.Request) (any, error) {
	out := StatusOut{Census: h.d.Svc.Status()}
	out.Busy, out.Hidden = h.d.Board.Flags()
	if h.d.HistoryStats != nil {
		st := h.d.HistoryStats()
		out.History = &st
	}
	return out, nil
}

// swagger:route POST /census/reload Census censusReload
// @Summary Set the needs reload flag
// @Tags Census
// @Accept json
// @Param payload body ReloadInput true "Flag"
// @Success 204 "no content"
// @Router /census/reload [post]
func (h *handlers) reload(_ *stdhttp.Request, in ReloadInput) (any, error) {
	h.d.Svc.MarkNeedsReload(*in.NeedsReload)
	return httpkit.NoContent(), nil
}

// swagger:route POST /census/refresh Census censusRefresh
// @Summary Request a debounced refresh
// @Tags Census
// @Success 204 "no content"
// @Router /census/refresh [post]
func (h *handlers) refresh(_ *stdhttp.Request) (any, error) {
	h.d.Svc.Refresh()
	return httpkit.NoContent(), nil
}

// swagger:route GET /census/tracked Census censusTracked
// @Summary Tracking reports for all tracked classes
// @Tags Census
// @Produce json
// @Success 200 {array} domain.TrackedClass "ok"
// @Router /census/tracked [get]
func (h *handlers) tracked(_ *stdhttp.Request) (any, error) {
	out := h.d.Svc.Tracked()
	if out == nil {
		out = []domain.TrackedClass{}
	}
	return out, nil
}

// swagger:route GET /census/tracked/{classID} Census censusTrackedClass
// @Summary Tracking report for one class
// @Tags Census
// @Produce json
// @Param classID path int true "Class id"
// @Success 200 {object} domain.TrackedClass "ok"
// @Failure 404 {object} httpkit.Envelope "not tracked"
// @Router /census/tracked/{classID} [get]
func (h *handlers) trackedClass(r *stdhttp.Request) (any, error) {
	id, err := classID(r)
	if err != nil {
		return nil, err
	}
	tc, ok := h.d.Svc.TrackedClass(id)
	if !ok {
		return nil, perr.NotFoundf("class %d is not tracked", id)
	}
	return tc, nil
}

// swagger:route GET /census/classes/{classID}/instances Census censusInstances
// @Summary Live instances of a class
// @Tags Census
// @Produce json
// @Param classID path int true "Class id"
// @Param limit query int false "Max instances"
// @Success 200 {object} domain.Instances "ok"
// @Failure 409 {object} httpkit.Envelope "target is running"
// @Router /census/classes/{classID}/instances [get]
func (h *handlers) instances(r *stdhttp.Request) (any, error) {
	id, err := classID(r)
	if err != nil {
		return nil, err
	}
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		return nil, err
	}
	return h.d.Svc.ActivateSelection(r.Context(), id, limit)
}

// swagger:route GET /census/history Census censusHistory
// @Summary Recently persisted census cycles
// @Tags Census
// @Produce json
// @Param limit query int false "Max cycles"
// @Success 200 {array} domain.CycleRecord "ok"
// @Failure 503 {object} httpkit.Envelope "history disabled"
// @Router /census/history [get]
func (h *handlers) history(r *stdhttp.Request) (any, error) {
	if h.d.History == nil {
		return nil, perr.Unavailablef("census history is not configured")
	}
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		return nil, err
	}
	return h.d.History.RecentCycles(r.Context(), limit)
}

func classID(r *stdhttp.Request) (domain.ClassID, error) {
	raw := chi.URLParam(r, "classID")
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, perr.WithField(perr.InvalidArgf("invalid class id %q", raw), "classID")
	}
	return domain.ClassID(v), nil
}

func queryInt(r *stdhttp.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, perr.WithField(perr.InvalidArgf("%s must be a non-negative integer", key), key)
	}
	return v, nil
}

func queryBool(r *stdhttp.Request, key string) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, perr.WithField(perr.InvalidArgf("%s must be a boolean", key), key)
	}
	return v, nil
}
