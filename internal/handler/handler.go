package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"faceattend/internal/attendance"
	"faceattend/internal/audit"
	"faceattend/internal/auth"
	"faceattend/internal/cloudinary"
	"faceattend/internal/config"
	"faceattend/internal/face"
	"faceattend/internal/gallery"
	"faceattend/internal/logger"
	"faceattend/internal/queue"
	"faceattend/internal/recognition"
)

// Handler carries the wired dependencies for the HTTP API.
type Handler struct {
	cfg     config.App
	svc     *recognition.Service
	gallery *gallery.Gallery
	ledger  *attendance.Ledger
	queue   queue.Queue
	audits  *audit.Repository  // nil when the database is unreachable
	cloud   *cloudinary.Client // nil if Cloudinary not configured
}

// New builds a handler.
func New(cfg config.App, svc *recognition.Service, g *gallery.Gallery, l *attendance.Ledger, q queue.Queue, audits *audit.Repository, cloud *cloudinary.Client) *Handler {
	return &Handler{cfg: cfg, svc: svc, gallery: g, ledger: l, queue: q, audits: audits, cloud: cloud}
}

type registerRequest struct {
	Name       string   `json:"name" binding:"required"`
	RollNumber string   `json:"roll_number"`
	Images     []string `json:"images" binding:"required,min=1"`
}

// Register enrolls a new student from one or more data-URL images.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and images are required"})
		return
	}

	images := make([]image.Image, 0, len(req.Images))
	for _, data := range req.Images {
		img, err := face.DecodeDataURL(data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		images = append(images, img)
	}

	// Archive the first enrollment photo when Cloudinary is configured.
	// Archival failures don't block registration.
	var photoURL string
	if h.cloud != nil {
		raw, err := face.DataURLBytes(req.Images[0])
		if err == nil {
			if result, err := h.cloud.Upload(bytes.NewReader(raw), "enrollment.png", "faceattend/students"); err != nil {
				logger.WithError(err).Warn("cloudinary upload failed")
			} else {
				photoURL = result.SecureURL
			}
		}
	}

	student, err := h.svc.Register(c.Request.Context(), req.Name, req.RollNumber, photoURL, images, time.Now())
	if err != nil {
		if recognition.IsValidation(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.WithError(err).Error("registration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	logger.WithFields(logrus.Fields{"student_id": student.ID, "images": len(images)}).Info("student registered")
	c.JSON(http.StatusOK, gin.H{"success": true, "student": student})
}

type recognizeRequest struct {
	Image string `json:"image" binding:"required"`
}

// Recognize processes one frame and marks attendance for matched students.
func (h *Handler) Recognize(c *gin.Context) {
	var req recognizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is required"})
		return
	}

	img, err := face.DecodeDataURL(req.Image)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.svc.Recognize(c.Request.Context(), img, time.Now())
	if err != nil {
		logger.WithError(err).Error("recognition failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "recognition failed"})
		return
	}

	if len(result.Faces) == 0 {
		c.JSON(http.StatusOK, gin.H{"recognized": []recognition.Recognition{}, "message": recognition.MsgNoFaces})
		return
	}

	h.publishAudit(result)
	c.JSON(http.StatusOK, result)
}

// publishAudit queues one event per face decision, fire-and-forget.
func (h *Handler) publishAudit(result recognition.Result) {
	if h.queue == nil {
		return
	}
	now := time.Now().UTC()
	for _, rec := range result.Recognized {
		evt := audit.Event{
			StudentID:  rec.StudentID,
			Recognized: rec.Recognized,
			IsLive:     rec.IsLive,
			Confidence: rec.Confidence,
			OccurredAt: now,
		}
		body, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		if err := h.queue.Publish(context.Background(), queue.Message{Type: "recognition", Body: body}); err != nil {
			logger.WithError(err).Warn("queue publish failed")
		}
	}
}

// ListStudents returns all registered students.
func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.gallery.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

// GetAttendance returns the sheet for ?date=YYYY-MM-DD, defaulting to today.
func (h *Handler) GetAttendance(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		date = time.Now().Format(attendance.DateFormat)
	}
	if _, err := time.Parse(attendance.DateFormat, date); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
		return
	}

	sheet, err := h.ledger.ForDate(date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, sheet)
}

// AttendanceDates lists days with records, newest first.
func (h *Handler) AttendanceDates(c *gin.Context) {
	dates, err := h.ledger.Dates()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if dates == nil {
		dates = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"dates": dates})
}

// AuditEvents returns recent recognition decisions from the audit trail,
// optionally filtered by ?student_id=, paginated with ?limit= and ?offset=.
func (h *Handler) AuditEvents(c *gin.Context) {
	if h.audits == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit trail disabled"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	events, err := h.audits.ListEvents(c.Request.Context(), c.Query("student_id"), limit, offset)
	if err != nil {
		logger.WithError(err).Error("list audit events failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list audit events failed"})
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

type tokenRequest struct {
	Subject string `json:"subject" binding:"required"`
	Secret  string `json:"secret"`
}

// Token issues an operator access token. When TOKEN_ISSUE_SECRET is set,
// callers must present it; otherwise issuance is open, for dev setups.
func (h *Handler) Token(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if h.cfg.TokenIssueSecret != "" && req.Secret != h.cfg.TokenIssueSecret {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid issue secret"})
		return
	}
	token, expiresAt, err := auth.Issue(req.Subject, auth.RoleOperator, h.cfg.JWTIssuer, h.cfg.JWTSigningKey, h.cfg.AccessTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": token, "expires_at": expiresAt.Unix()})
}
