package cast

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// StartCastRequest is the body of POST /cast/start.
type StartCastRequest struct {
	MovieID  int64  `json:"movieId" validate:"required,min=1"`
	DeviceIP string `json:"deviceIp" validate:"notblank,ip|hostname_rfc1123"`
}

// Response is the envelope of session operations.
type Response struct {
	Success  bool         `json:"success"`
	Message  string       `json:"message,omitempty"`
	CastInfo *CastSession `json:"castInfo,omitempty"`
}

// Handlers provides HTTP handlers for casting.
type Handlers struct {
	registry *Registry
}

// NewHandlers creates cast handlers.
func NewHandlers(registry *Registry) *Handlers {
	return &Handlers{registry: registry}
}

// RegisterRoutes registers the cast routes.
func (h *Handlers) RegisterRoutes(g *echo.Group) {
	g.GET("/devices", h.Devices)
	g.GET("/sessions", h.Sessions)
	g.POST("/start", h.Start)
	g.GET("/:movieId", h.Info)
	g.POST("/:sessionId/stop", h.Stop)
	g.GET("/:sessionId/status", h.Status)
}

// Devices lists discoverable devices.
// GET /api/v1/cast/devices
func (h *Handlers) Devices(c echo.Context) error {
	devices, err := h.registry.DiscoverDevices(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, devices)
}

// Sessions lists active sessions.
// GET /api/v1/cast/sessions
func (h *Handlers) Sessions(c echo.Context) error {
	return c.JSON(http.StatusOK, h.registry.ListSessions())
}

// Info returns devices and protocols for a movie.
// GET /api/v1/cast/:movieId
func (h *Handlers) Info(c echo.Context) error {
	movieID, err := strconv.ParseInt(c.Param("movieId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid movie id"})
	}

	info, err := h.registry.GetCastInfo(c.Request().Context(), movieID)
	if err != nil {
		if errors.Is(err, ErrInvalidMovieID) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, info)
}

// Start begins casting a movie to a device.
// POST /api/v1/cast/start
func (h *Handlers) Start(c echo.Context) error {
	var req StartCastRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	session, err := h.registry.StartCast(req.MovieID, req.DeviceIP)
	if err != nil {
		if errors.Is(err, ErrInvalidMovieID) || errors.Is(err, ErrInvalidAddress) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, Response{Success: false, Message: err.Error()})
	}

	return c.JSON(http.StatusOK, Response{
		Success:  true,
		Message:  "Casting to " + session.TargetAddress,
		CastInfo: session,
	})
}

// Stop ends a cast session.
// POST /api/v1/cast/:sessionId/stop
func (h *Handlers) Stop(c echo.Context) error {
	if _, err := h.registry.StopCast(c.Param("sessionId")); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, Response{Success: false, Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, Response{Success: false, Message: err.Error()})
	}
	return c.JSON(http.StatusOK, Response{Success: true, Message: "Cast stopped"})
}

// Status returns the current state of a session.
// GET /api/v1/cast/:sessionId/status
func (h *Handlers) Status(c echo.Context) error {
	session, err := h.registry.GetCastStatus(c.Param("sessionId"))
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, Response{Success: false, Message: err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, Response{Success: false, Message: err.Error()})
	}
	return c.JSON(http.StatusOK, Response{Success: true, CastInfo: session})
}
