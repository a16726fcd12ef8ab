package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/pkg/dto"
)

type RecognizeHandler struct {
	recognizer Recognizer
}

func NewRecognizeHandler(recognizer Recognizer) *RecognizeHandler {
	return &RecognizeHandler{recognizer: recognizer}
}

// Recognize identifies every face in the uploaded probe and records
// attendance for the known ones.
func (h *RecognizeHandler) Recognize(c *gin.Context) {
	if h.recognizer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision pipeline not initialized"})
		return
	}

	var data []byte
	var err error
	if isMultipart(c) {
		data, err = formImage(c)
	} else {
		var body dto.RecognizeRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		data, err = encodedImage(body.Image)
	}
	if err != nil {
		if identity.KindOf(err) == identity.KindInvalidImage {
			respondError(c, err)
			return
		}
		badRequest(c, err)
		return
	}

	report, err := h.recognizer.Recognize(c.Request.Context(), data)
	if err != nil {
		respondError(c, err)
		return
	}

	resp, err := recognitionResponse(report)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}
