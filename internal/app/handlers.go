package app

import (
	"github.com/pathlight-hq/pathlight-backend/internal/handlers"
	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
)

type Handlers struct {
	Enrollment  *handlers.EnrollmentHandler
	Progress    *handlers.ProgressHandler
	Path        *handlers.PathHandler
	Certificate *handlers.CertificateHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Enrollment:  handlers.NewEnrollmentHandler(serviceset.Enrollment),
		Progress:    handlers.NewProgressHandler(serviceset.Progress),
		Path:        handlers.NewPathHandler(serviceset.Rollup, serviceset.Catalog),
		Certificate: handlers.NewCertificateHandler(serviceset.Certificate),
	}
}
