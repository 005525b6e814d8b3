package app

import (
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/services"
)

type Services struct {
	Notifier    services.ProgressNotifier
	Enrollment  services.EnrollmentService
	Progress    services.ProgressService
	Rollup      services.RollupService
	PathIndex   services.PathIndexService
	Certificate services.CertificateService
	Catalog     services.CatalogService
}

func wireServices(db *gorm.DB, log *logger.Logger, reposet Repos, clients Clients) Services {
	log.Info("Wiring services...")

	notifier := services.NewProgressNotifier(log, clients.EventBus, reposet.LearnerEvent)
	enrollment := services.NewEnrollmentService(db, log, reposet.CourseProgress, reposet.Catalog)
	pathIndex := services.NewPathIndexService(db, log, reposet.PathIndex)
	certificate := services.NewCertificateService(db, log, reposet.Certificate, reposet.CertificateTemplate, reposet.Catalog, notifier)
	rollup := services.NewRollupService(db, log, reposet.Catalog, reposet.PathProgress, reposet.CourseProgress, pathIndex, certificate, notifier)
	progress := services.NewProgressService(db, log, enrollment, reposet.CourseProgress, clients.Throttle, notifier, rollup)
	catalog := services.NewCatalogService(db, log, reposet.Catalog, pathIndex)

	return Services{
		Notifier:    notifier,
		Enrollment:  enrollment,
		Progress:    progress,
		Rollup:      rollup,
		PathIndex:   pathIndex,
		Certificate: certificate,
		Catalog:     catalog,
	}
}
