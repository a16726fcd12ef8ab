package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/imaging"
	"github.com/your-org/attendance/pkg/dto"
)

// LegacyHandler keeps the first-generation mobile client working: camelCase
// fields, data-URL images, and its original status codes and messages.
type LegacyHandler struct {
	enroller   Enroller
	recognizer Recognizer
}

func NewLegacyHandler(enroller Enroller, recognizer Recognizer) *LegacyHandler {
	return &LegacyHandler{enroller: enroller, recognizer: recognizer}
}

func (h *LegacyHandler) AddPerson(c *gin.Context) {
	if h.enroller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision pipeline not initialized"})
		return
	}

	var req dto.LegacyAddPersonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := imaging.FromDataURL(req.Photo)
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data"})
		return
	}

	res, err := h.enroller.Enroll(c.Request.Context(), identity.EnrollRequest{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Image:     data,
	})
	if err != nil {
		switch identity.KindOf(err) {
		case identity.KindInvalidImage:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data"})
		case identity.KindDuplicatePerson:
			c.JSON(http.StatusBadRequest, gin.H{"message": "Person already exists"})
		case identity.KindInvalidRequest:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	body := gin.H{"message": "Person added successfully"}
	if len(res.Warnings) > 0 {
		body["warnings"] = res.Warnings
	}
	c.JSON(http.StatusOK, body)
}

func (h *LegacyHandler) RecognizeFaces(c *gin.Context) {
	if c.ContentType() != "application/json" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Content-Type must be application/json"})
		return
	}
	if h.recognizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision pipeline not initialized"})
		return
	}

	var req dto.LegacyRecognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	data, err := imaging.FromDataURL(req.Image)
	if err != nil || len(data) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data"})
		return
	}

	report, err := h.recognizer.Recognize(c.Request.Context(), data)
	if err != nil {
		if identity.KindOf(err) == identity.KindInvalidImage {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image data"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	full, err := recognitionResponse(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.LegacyRecognitionResponse{
		RecognizedFaces: make([]dto.LegacyRecognizedFace, 0, len(full.RecognizedFaces)),
		ImageBase64:     full.ImageBase64,
	}
	for _, f := range full.RecognizedFaces {
		resp.RecognizedFaces = append(resp.RecognizedFaces, dto.LegacyRecognizedFace{
			Name:         f.Name,
			Confidence:   f.Confidence,
			Box:          f.Box,
			PhotoDataURL: f.PhotoDataURL,
		})
	}
	c.JSON(http.StatusOK, resp)
}
