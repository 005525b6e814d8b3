package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pathlight-hq/pathlight-backend/internal/services"
)

type CertificateHandler struct {
	svc services.CertificateService
}

func NewCertificateHandler(svc services.CertificateService) *CertificateHandler {
	return &CertificateHandler{svc: svc}
}

// GET /api/learners/:id/certificates
func (h *CertificateHandler) ListForLearner(c *gin.Context) {
	learnerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid learner id"})
		return
	}

	certs, err := h.svc.ListForLearner(c.Request.Context(), nil, learnerID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}
