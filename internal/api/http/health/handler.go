package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	domain "github.com/oshokin/geofence-monitor/internal/domain/geofence"
)

// readHeaderTimeout protects the server from slow clients.
const readHeaderTimeout = 5 * time.Second

// StatusSource is implemented by *monitor.Manager.
type StatusSource interface {
	Status() domain.Status
	FenceCount() int
}

// Connection is implemented by the MQTT bridge.
type Connection interface {
	IsConnected() bool
}

// Sink is implemented by the RabbitMQ publisher.
type Sink interface {
	IsClosed() bool
}

// Handler serves the health endpoints.
type Handler struct {
	// status reports the monitoring state.
	status StatusSource
	// mqtt is the provider bridge.
	mqtt Connection
	// sink is the optional event sink, nil when disabled.
	sink Sink
}

// NewHandler builds a handler. sink may be nil.
func NewHandler(status StatusSource, mqtt Connection, sink Sink) *Handler {
	return &Handler{status: status, mqtt: mqtt, sink: sink}
}

// Register mounts the endpoints on r.
func (h *Handler) Register(r gin.IRoutes) {
	r.GET("/healthz", h.Health)
	r.GET("/status", h.Status)
}

// Health reports every dependency and the overall verdict.
func (h *Handler) Health(c *gin.Context) {
	code := http.StatusOK
	deps := gin.H{}

	if h.mqtt == nil || !h.mqtt.IsConnected() {
		deps["mqtt"] = gin.H{"status": "down", "error": "not connected"}
		code = http.StatusServiceUnavailable
	} else {
		deps["mqtt"] = gin.H{"status": "up"}
	}

	if h.sink != nil {
		if h.sink.IsClosed() {
			deps["rabbitmq"] = gin.H{"status": "down", "error": "connection closed"}
			code = http.StatusServiceUnavailable
		} else {
			deps["rabbitmq"] = gin.H{"status": "up"}
		}
	}

	overall := "healthy"
	if code != http.StatusOK {
		overall = "unhealthy"
	}

	c.JSON(code, gin.H{
		"status":       overall,
		"dependencies": deps,
	})
}

// Status reports the monitoring state.
func (h *Handler) Status(c *gin.Context) {
	status := h.status.Status()

	body := gin.H{
		"state":  status.State.String(),
		"fences": h.status.FenceCount(),
	}

	if status.Reason != "" {
		body["reason"] = status.Reason
	}

	c.JSON(http.StatusOK, body)
}

// NewServer returns an HTTP server for the handler on addr.
func NewServer(addr string, h *Handler) *http.Server {
	engine := gin.New()
	engine.Use(gin.Recovery())
	h.Register(engine)

	return &http.Server{
		Addr:              addr,
		Handler:           engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}
