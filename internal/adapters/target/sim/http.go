package sim

import (
	stdhttp "net/http"
	"time"

	"heapcensus/internal/modkit/httpkit"
	"heapcensus/internal/services/census/domain"

	"github.com/google/uuid"
)

// AllocInput asks the simulated heap for n more instances of a class
type AllocInput struct {
	Class string `json:"class" validate:"required,max=512,classname"`
	N     int    `json:"n" validate:"gte=0,lte=1000000"`
}

// FreeInput collects instances of a class; n 0 frees all
type FreeInput struct {
	Class string `json:"class" validate:"required,max=512,classname"`
	N     int    `json:"n" validate:"gte=0"`
}

// EpisodeOut describes a suspend episode
type EpisodeOut struct {
	ID uuid.UUID `json:"episode_id"`
	At time.Time `json:"at"`
}

// StateOut describes the simulated process
type StateOut struct {
	Attached    bool        `json:"attached"`
	Suspended   bool        `json:"suspended"`
	Constrained bool        `json:"constrained"`
	Episode     *EpisodeOut `json:"episode,omitempty"`
	Classes     int         `json:"classes"`
}

// Register mounts the simulator controls on r
func Register(r httpkit.Router, p *Process) {
	h := &handlers{p: p}
	httpkit.Get(r, "/", h.state)
	httpkit.Post(r, "/suspend", h.suspend)
	httpkit.Post(r, "/resume", h.resume)
	httpkit.Post(r, "/end", h.end)
	httpkit.PostJSON[AllocInput](r, "/alloc", h.alloc)
	httpkit.PostJSON[FreeInput](r, "/free", h.free)
}

type handlers struct{ p *Process }

// @Summary Simulated process state
// @Tags Target
// @Produce json
// @Success 200 {object} sim.StateOut
// @Router /target [get]
func (h *handlers) state(r *stdhttp.Request) (any, error) {
	classes, _ := h.p.ListClasses(r.Context())
	out := StateOut{
		Attached:    h.p.IsAttached(),
		Constrained: h.p.IsConstrainedRuntime(),
		Classes:     len(classes),
	}
	if ep := h.p.CurrentEpisode(); ep != nil {
		out.Suspended = true
		out.Episode = episodeOut(ep)
	}
	return out, nil
}

// @Summary Suspend the simulated process
// @Tags Target
// @Produce json
// @Success 200 {object} sim.EpisodeOut
// @Router /target/suspend [post]
func (h *handlers) suspend(_ *stdhttp.Request) (any, error) {
	ep, err := h.p.Suspend()
	if err != nil {
		return nil, err
	}
	return episodeOut(ep), nil
}

// @Summary Resume the simulated process
// @Tags Target
// @Success 204
// @Router /target/resume [post]
func (h *handlers) resume(_ *stdhttp.Request) (any, error) {
	if err := h.p.Resume(); err != nil {
		return nil, err
	}
	return httpkit.NoContent(), nil
}

// @Summary End the debug session
// @Tags Target
// @Success 204
// @Router /target/end [post]
func (h *handlers) end(_ *stdhttp.Request) (any, error) {
	h.p.End()
	return httpkit.NoContent(), nil
}

// @Summary Allocate instances
// @Tags Target
// @Accept json
// @Produce json
// @Param payload body sim.AllocInput true "Allocation"
// @Success 200 {object} domain.Class
// @Router /target/alloc [post]
func (h *handlers) alloc(_ *stdhttp.Request, in AllocInput) (any, error) {
	return h.p.Alloc(in.Class, in.N)
}

// @Summary Free instances
// @Tags Target
// @Accept json
// @Produce json
// @Param payload body sim.FreeInput true "Collection"
// @Success 200 {object} map[string]int
// @Router /target/free [post]
func (h *handlers) free(_ *stdhttp.Request, in FreeInput) (any, error) {
	n := in.N
	if n == 0 {
		n = -1
	}
	freed, err := h.p.Free(in.Class, n)
	if err != nil {
		return nil, err
	}
	return map[string]int{"freed": freed}, nil
}

func episodeOut(ep *domain.Episode) *EpisodeOut {
	return &EpisodeOut{ID: ep.ID, At: ep.At}
}
