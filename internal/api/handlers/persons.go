package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/identity"
	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
	"github.com/your-org/attendance/pkg/dto"
)

type PersonHandler struct {
	db       storage.Store
	enroller Enroller
}

// NewPersonHandler builds the person endpoints. enroller may be nil when
// the vision models are unavailable; enrollment then answers 503.
func NewPersonHandler(db storage.Store, enroller Enroller) *PersonHandler {
	return &PersonHandler{db: db, enroller: enroller}
}

func personResponse(p *models.Person, faceCount int) dto.PersonResponse {
	return dto.PersonResponse{
		ID:        p.ID,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Name:      p.FullName(),
		FaceCount: faceCount,
		CreatedAt: p.CreatedAt.Format(time.RFC3339),
	}
}

// Create enrolls a person from a multipart form (first_name, last_name,
// image) or a JSON body with a base64 image.
func (h *PersonHandler) Create(c *gin.Context) {
	if h.enroller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "vision pipeline not initialized"})
		return
	}

	var req identity.EnrollRequest
	if isMultipart(c) {
		data, err := formImage(c)
		if err != nil {
			badRequest(c, err)
			return
		}
		req = identity.EnrollRequest{
			FirstName: c.PostForm("first_name"),
			LastName:  c.PostForm("last_name"),
			Image:     data,
		}
	} else {
		var body dto.CreatePersonRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
		data, err := encodedImage(body.Image)
		if err != nil {
			if identity.KindOf(err) == identity.KindInvalidImage {
				respondError(c, err)
				return
			}
			badRequest(c, err)
			return
		}
		req = identity.EnrollRequest{FirstName: body.FirstName, LastName: body.LastName, Image: data}
	}

	res, err := h.enroller.Enroll(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := dto.EnrollResponse{
		EmbeddingCount: res.EmbeddingCount,
		ImagesTried:    res.ImagesTried,
		NoFaceDetected: res.NoFaceDetected,
		Warnings:       res.Warnings,
	}
	status := http.StatusOK
	if res.Person != nil {
		pr := personResponse(res.Person, res.EmbeddingCount)
		resp.Person = &pr
		status = http.StatusCreated
	}
	c.JSON(status, resp)
}

func (h *PersonHandler) List(c *gin.Context) {
	persons, err := h.db.ListPersons(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.PersonResponse, 0, len(persons))
	for i := range persons {
		faceCount, _ := h.db.CountFaces(c.Request.Context(), persons[i].ID)
		resp = append(resp, personResponse(&persons[i], faceCount))
	}

	c.JSON(http.StatusOK, gin.H{"persons": resp, "total": len(resp)})
}

func (h *PersonHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}

	faceCount, _ := h.db.CountFaces(c.Request.Context(), id)
	c.JSON(http.StatusOK, personResponse(person, faceCount))
}

func (h *PersonHandler) ListFaces(c *gin.Context) {
	personID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person id"})
		return
	}

	person, err := h.db.GetPerson(c.Request.Context(), personID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if person == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "person not found"})
		return
	}

	faces, err := h.db.ListFaceEmbeddings(c.Request.Context(), personID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.FaceEmbeddingResponse, 0, len(faces))
	for _, f := range faces {
		resp = append(resp, dto.FaceEmbeddingResponse{
			ID:        f.ID,
			Seq:       f.Seq,
			PersonID:  f.PersonID,
			SourceKey: f.SourceKey,
			CreatedAt: f.CreatedAt.Format(time.RFC3339),
		})
	}

	c.JSON(http.StatusOK, gin.H{"faces": resp, "total": len(resp)})
}
