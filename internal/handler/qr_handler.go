package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/daksh-api/pkg/errors"
	"github.com/noah-isme/daksh-api/pkg/qr"
	"github.com/noah-isme/daksh-api/pkg/response"
)

type qrRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// QRHandler renders login QR codes.
type QRHandler struct {
	generator *qr.Generator
}

// NewQRHandler constructs the handler.
func NewQRHandler(generator *qr.Generator) *QRHandler {
	return &QRHandler{generator: generator}
}

// Generate godoc
// @Summary Render a login QR code for a credential pair
// @Tags QR
// @Accept json
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /qr [post]
func (h *QRHandler) Generate(c *gin.Context) {
	var req qrRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "username and password are required"))
		return
	}
	uri, err := h.generator.DataURI(req.Username, req.Password)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate qr code"))
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"qrCode": uri})
}
