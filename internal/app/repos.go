package app

import (
	"gorm.io/gorm"

	"github.com/pathlight-hq/pathlight-backend/internal/platform/logger"
	"github.com/pathlight-hq/pathlight-backend/internal/repos"
)

type Repos struct {
	CourseProgress      repos.CourseProgressRepo
	PathProgress        repos.PathProgressRepo
	PathIndex           repos.PathIndexRepo
	Certificate         repos.CertificateRepo
	CertificateTemplate repos.CertificateTemplateRepo
	Catalog             repos.CatalogRepo
	LearnerEvent        repos.LearnerEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		CourseProgress:      repos.NewCourseProgressRepo(db, log),
		PathProgress:        repos.NewPathProgressRepo(db, log),
		PathIndex:           repos.NewPathIndexRepo(db, log),
		Certificate:         repos.NewCertificateRepo(db, log),
		CertificateTemplate: repos.NewCertificateTemplateRepo(db, log),
		Catalog:             repos.NewCatalogRepo(db, log),
		LearnerEvent:        repos.NewLearnerEventRepo(db, log),
	}
}
