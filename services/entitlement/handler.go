package entitlement

import (
	"errors"
	"net/http"

	"idauth-entitlement/pkg/errutil"
	"idauth-entitlement/pkg/identity"
	"idauth-entitlement/pkg/task"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// ActorHeader carries the authenticated caller identity, set by the edge
// authentication layer.
const ActorHeader = "X-IDA-USER"

type Handler struct {
	svc      *Service
	enqueuer task.Enqueuer
	node     *snowflake.Node
}

type HandlerParams struct {
	fx.In
	Service  *Service
	Enqueuer task.Enqueuer
	Node     *snowflake.Node
}

func NewHandler(p HandlerParams) *Handler {
	return &Handler{
		svc:      p.Service,
		enqueuer: p.Enqueuer,
		node:     p.Node,
	}
}

// ActorMiddleware threads the authenticated caller identity into the request
// context for audit attribution.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor := c.GetHeader(ActorHeader); actor != "" {
			c.Request = c.Request.WithContext(identity.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}

// Resolve validates a (partner, api key, misp license) triple and returns the
// effective policy.
func (h *Handler) Resolve(c *gin.Context) {
	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": errutil.StatusBadRequest, "message": err.Error()}})
		return
	}

	resp, err := h.svc.Resolve(c.Request.Context(), req)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// EventCallback accepts a lifecycle notification from the partner management
// publisher and enqueues the matching synchronization task. The heavy lifting
// happens in the worker; this endpoint only validates the envelope.
func (h *Handler) EventCallback(c *gin.Context) {
	taskType, ok := TaskForTopic(c.Param("topic"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": errutil.StatusNotFound, "message": "unknown event topic"}})
		return
	}

	var m EventModel
	if err := c.ShouldBindJSON(&m); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": errutil.StatusBadRequest, "message": err.Error()}})
		return
	}

	if m.Event.ID == "" {
		m.Event.ID = h.node.Generate().String()
	}

	syncTask, err := NewSyncTask(taskType, m)
	if err != nil {
		h.renderError(c, err)
		return
	}

	info, err := h.enqueuer.Enqueue(c.Request.Context(), syncTask)
	if err != nil {
		zap.L().Error("failed to enqueue lifecycle event",
			zap.String("task_type", taskType),
			zap.String("event_id", m.Event.ID),
			zap.Error(err),
		)
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"event_id": m.Event.ID,
		"task_id":  info.ID,
		"queue":    info.Queue,
	})
}

func (h *Handler) renderError(c *gin.Context, err error) {
	var be errutil.BaseError
	if errors.As(err, &be) {
		c.JSON(be.Status.HTTPStatus(), be.JSON())
		return
	}

	zap.L().Error("unhandled error", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": errutil.StatusInternal, "message": "internal error"}})
}
