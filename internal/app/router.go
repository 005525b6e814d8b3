package app

import (
	"github.com/gin-gonic/gin"

	"github.com/pathlight-hq/pathlight-backend/internal/server"
)

func wireRouter(cfg Config, handlerset Handlers) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		ServiceName:        cfg.ServiceName,
		EnrollmentHandler:  handlerset.Enrollment,
		ProgressHandler:    handlerset.Progress,
		PathHandler:        handlerset.Path,
		CertificateHandler: handlerset.Certificate,
		AllowOrigins:       cfg.AllowOrigins,
	})
}
