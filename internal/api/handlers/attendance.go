package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/attendance/internal/models"
	"github.com/your-org/attendance/internal/storage"
	"github.com/your-org/attendance/pkg/dto"
)

type AttendanceHandler struct {
	db      storage.Store
	objects ObjectReader
}

// NewAttendanceHandler builds the attendance read-back endpoints. objects
// may be nil when no object store is configured.
func NewAttendanceHandler(db storage.Store, objects ObjectReader) *AttendanceHandler {
	return &AttendanceHandler{db: db, objects: objects}
}

// AttendanceResponse renders one entry for the API and WebSocket feed.
func AttendanceResponse(id, personID uuid.UUID, name string, ts time.Time, confidence float32, snapshotKey string) dto.AttendanceResponse {
	resp := dto.AttendanceResponse{
		ID:         id,
		PersonID:   personID,
		Name:       name,
		Timestamp:  ts.UTC().Format(time.RFC3339),
		Confidence: confidence,
	}
	if snapshotKey != "" {
		resp.SnapshotURL = "/v1/attendance/" + id.String() + "/snapshot"
	}
	return resp
}

func (h *AttendanceHandler) List(c *gin.Context) {
	var q models.AttendanceQuery

	if s := c.Query("person_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid person_id"})
			return
		}
		q.PersonID = &id
	}
	for _, p := range []struct {
		name string
		dst  **time.Time
	}{{"from", &q.From}, {"to", &q.To}} {
		if s := c.Query(p.name); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + p.name + ", want RFC 3339"})
				return
			}
			*p.dst = &t
		}
	}
	q.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	q.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	if q.Offset < 0 {
		q.Offset = 0
	}

	records, total, err := h.db.QueryAttendance(c.Request.Context(), q)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := dto.AttendanceListResponse{
		Attendance: make([]dto.AttendanceResponse, 0, len(records)),
		Total:      total,
	}
	for _, r := range records {
		resp.Attendance = append(resp.Attendance,
			AttendanceResponse(r.ID, r.PersonID, r.Name(), r.Timestamp, r.Confidence, r.SnapshotKey))
	}
	c.JSON(http.StatusOK, resp)
}

// Snapshot serves the face crop stored for an attendance entry.
func (h *AttendanceHandler) Snapshot(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid attendance id"})
		return
	}

	rec, err := h.db.GetAttendance(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "attendance entry not found"})
		return
	}
	if rec.SnapshotKey == "" || h.objects == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot stored"})
		return
	}

	data, err := h.objects.GetObject(c.Request.Context(), rec.SnapshotKey)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/jpeg", data)
}
