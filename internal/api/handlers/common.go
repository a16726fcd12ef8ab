package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/imaging"
	"github.com/your-org/attendance/pkg/dto"
)

const maxImageBytes = 20 << 20

// Enroller is satisfied by *identity.Enroller.
type Enroller interface {
	Enroll(ctx context.Context, req identity.EnrollRequest) (*identity.EnrollResult, error)
}

// Recognizer is satisfied by *identity.Matcher.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (*identity.RecognitionReport, error)
}

// ObjectReader serves stored snapshots.
type ObjectReader interface {
	GetObject(ctx context.Context, key string) ([]byte, error)
}

var errNoImage = errors.New("image is required")

// statusFor maps an engine outcome to an HTTP status.
func statusFor(err error) int {
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch identity.KindOf(err) {
	case identity.KindInvalidImage:
		return http.StatusBadRequest
	case identity.KindDuplicatePerson:
		return http.StatusConflict
	case identity.KindInvalidRequest:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": identity.KindOf(err).String()})
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/")
}

// formImage reads the "image" part of a multipart upload.
func formImage(c *gin.Context) ([]byte, error) {
	file, _, err := c.Request.FormFile("image")
	if err != nil {
		return nil, errNoImage
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

// encodedImage decodes a base64 or data-URL image field. Payloads that are
// not base64 are reported as invalid images.
func encodedImage(s string) ([]byte, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errNoImage
	}
	data, err := imaging.FromDataURL(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", identity.ErrInvalidImage, err)
	}
	return data, nil
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// recognitionResponse renders crops as data URLs and the annotated probe as
// bare base64 JPEG.
func recognitionResponse(report *identity.RecognitionReport) (dto.RecognitionResponse, error) {
	resp := dto.RecognitionResponse{
		RecognizedFaces: make([]dto.RecognizedFaceResponse, 0, len(report.Faces)),
		FacesDetected:   report.FacesDetected,
	}
	for _, f := range report.Faces {
		rf := dto.RecognizedFaceResponse{
			PersonID:   f.PersonID,
			Name:       f.Label,
			Confidence: f.Confidence,
			Distance:   f.Distance,
			Box:        f.Box.Array(),
		}
		if f.Crop != nil {
			data, err := imaging.EncodeJPEG(f.Crop, 90)
			if err != nil {
				return resp, err
			}
			rf.PhotoDataURL = imaging.DataURL(data)
		}
		if f.AttendanceRecorded {
			id := f.AttendanceID
			rf.AttendanceID = &id
		}
		resp.RecognizedFaces = append(resp.RecognizedFaces, rf)
	}
	if report.Annotated != nil {
		data, err := imaging.EncodeJPEG(report.Annotated, 90)
		if err != nil {
			return resp, err
		}
		resp.ImageBase64 = imaging.Base64(data)
	}
	return resp, nil
}
