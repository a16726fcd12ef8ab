package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/attendance/internal/api/handlers"
	"github.com/your-org/attendance/internal/api/ws"
	"github.com/your-org/attendance/internal/auth"
	"github.com/your-org/attendance/internal/storage"
)

type RouterConfig struct {
	APIKey         string
	RequestTimeout time.Duration

	Store   storage.Store
	Objects handlers.ObjectReader // nil without MinIO
	Hub     *ws.Hub

	// Enroller and Recognizer are nil when the vision runtime failed to load.
	Enroller   handlers.Enroller
	Recognizer handlers.Recognizer

	Readiness []handlers.ReadinessCheck
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Readiness...)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Mobile client routes, unauthenticated as they always were
	legacyH := handlers.NewLegacyHandler(cfg.Enroller, cfg.Recognizer)
	legacy := r.Group("/")
	legacy.Use(TimeoutMiddleware(cfg.RequestTimeout))
	legacy.POST("/add_person", legacyH.AddPerson)
	legacy.POST("/recognize_faces", legacyH.RecognizeFaces)

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	if cfg.Hub != nil {
		v1.GET("/ws", cfg.Hub.HandleWS)
	}

	timed := v1.Group("")
	timed.Use(TimeoutMiddleware(cfg.RequestTimeout))

	personH := handlers.NewPersonHandler(cfg.Store, cfg.Enroller)
	timed.POST("/persons", personH.Create)
	timed.GET("/persons", personH.List)
	timed.GET("/persons/:id", personH.Get)
	timed.GET("/persons/:id/faces", personH.ListFaces)

	recognizeH := handlers.NewRecognizeHandler(cfg.Recognizer)
	timed.POST("/recognize", recognizeH.Recognize)

	attendanceH := handlers.NewAttendanceHandler(cfg.Store, cfg.Objects)
	timed.GET("/attendance", attendanceH.List)
	timed.GET("/attendance/:id/snapshot", attendanceH.Snapshot)

	return r
}
