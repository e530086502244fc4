package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"telecrm/internal/apperr"
	"telecrm/internal/audit"
	"telecrm/internal/auth"
	"telecrm/internal/devices"
	"telecrm/internal/ingest"
	"telecrm/internal/reporting"
	"telecrm/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Devices *devices.Registry
	Ingest  *ingest.Service
	Reports *reporting.Service

	// MaxRecordingBytes bounds the multipart body of a recording upload.
	MaxRecordingBytes int64

	Clock func() time.Time
}

func (h Handlers) now() time.Time {
	if h.Clock != nil {
		return h.Clock()
	}
	return time.Now()
}

// requestContext adds the client IP for audit records.
func requestContext(c *gin.Context) context.Context {
	return audit.WithClientIP(c.Request.Context(), c.ClientIP())
}

// writeError maps err to its status and {"error","kind"} body.
func writeError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindServer {
		logger.FromGin(c).Error("request failed", "err", err)
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(apperr.HTTPStatus(kind), gin.H{"error": apperr.Message(err), "kind": kind})
}

func badJSON(c *gin.Context) {
	writeError(c, apperr.Validation("invalid json"))
}

// --- Device registry ---

type registerRequest struct {
	DeviceName string `json:"deviceName"`
}

// Register handles POST /register.
func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	d, err := h.Devices.Register(requestContext(c), req.DeviceName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "deviceId": d.ID, "token": d.Token})
}

type credentialsRequest struct {
	DeviceID string `json:"deviceId"`
	Token    string `json:"token"`
}

func (r credentialsRequest) credentials() ingest.Credentials {
	return ingest.Credentials{DeviceID: r.DeviceID, Token: r.Token}
}

// Heartbeat handles POST /heartbeat.
func (h Handlers) Heartbeat(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	reply, err := h.Devices.Heartbeat(requestContext(c), req.DeviceID, req.Token)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "status": reply.Status, "telecaller": reply.Telecaller})
}

type updateDeviceRequest struct {
	Token      string `json:"token"`
	Telecaller string `json:"telecaller"`
}

// UpdateDevice handles PATCH /device/:deviceId. Operators authenticate with a
// bearer token; devices send their own token in the body.
func (h Handlers) UpdateDevice(c *gin.Context) {
	var req updateDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	ctx := requestContext(c)
	role, _ := auth.Role(ctx)
	userID, _ := auth.UserID(ctx)

	d, err := h.Devices.UpdateTelecaller(ctx, c.Param("deviceId"), req.Telecaller, devices.Principal{
		UserID: userID,
		Role:   role,
		Token:  req.Token,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"device":  gin.H{"id": d.ID, "name": d.Name, "telecaller": d.Telecaller},
	})
}

// --- Ingestion ---

type callLogRequest struct {
	credentialsRequest
	CallID       flexString `json:"callId"`
	PhoneNumber  flexString `json:"phoneNumber"`
	CallStatus   string     `json:"callStatus"`
	Duration     *flexInt   `json:"duration"`
	Timestamp    flexString `json:"timestamp"`
	RecordingURL string     `json:"recordingUrl"`
}

// CallLog handles POST /call-log.
func (h Handlers) CallLog(c *gin.Context) {
	var req callLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	in := ingest.MetadataInput{
		CallID:       string(req.CallID),
		PhoneNumber:  string(req.PhoneNumber),
		CallStatus:   req.CallStatus,
		Timestamp:    string(req.Timestamp),
		RecordingURL: req.RecordingURL,
	}
	if req.Duration != nil {
		n := int(*req.Duration)
		in.Duration = &n
	}
	if _, err := h.Ingest.SubmitCallMetadata(requestContext(c), req.credentials(), in); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "message": "Call log saved"})
}

type callOutcomeRequest struct {
	credentialsRequest
	CallID            flexString         `json:"callId"`
	CustomerName      *string            `json:"customerName"`
	Outcome           *string            `json:"outcome"`
	Remarks           *string            `json:"remarks"`
	FollowUpDate      *string            `json:"followUpDate"`
	ProductQuantities map[string]flexInt `json:"productQuantities"`
	NeedBranding      any                `json:"needBranding"`
	ReasonForLoss     *string            `json:"reasonForLoss"`
	Distributor       *string            `json:"distributor"`
}

// CallOutcome handles POST /call-outcome.
func (h Handlers) CallOutcome(c *gin.Context) {
	var req callOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	pq := make(map[string]int, len(req.ProductQuantities))
	for k, v := range req.ProductQuantities {
		pq[k] = int(v)
	}
	in := ingest.OutcomeInput{
		CallID:            string(req.CallID),
		CustomerName:      req.CustomerName,
		Outcome:           req.Outcome,
		Remarks:           req.Remarks,
		FollowUpDate:      req.FollowUpDate,
		ReasonForLoss:     req.ReasonForLoss,
		Distributor:       req.Distributor,
		ProductQuantities: pq,
		NeedBranding:      req.NeedBranding,
	}
	if _, err := h.Ingest.SubmitCallOutcome(requestContext(c), req.credentials(), in); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Call outcome saved"})
}

// multipartOverhead leaves room for form fields and part headers around the file.
const multipartOverhead = 1 << 20

// UploadRecording handles POST /upload-recording (multipart: deviceId, token, callId, file).
func (h Handlers) UploadRecording(c *gin.Context) {
	if h.MaxRecordingBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.MaxRecordingBytes+multipartOverhead)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &tooBig):
			writeError(c, apperr.Validation("recording too large"))
		case errors.Is(err, http.ErrMissingFile):
			writeError(c, apperr.Validation("recording file is required"))
		default:
			writeError(c, apperr.Validation("invalid multipart form"))
		}
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, apperr.Server("failed to open upload", err))
		return
	}
	defer f.Close()

	cred := ingest.Credentials{DeviceID: c.PostForm("deviceId"), Token: c.PostForm("token")}
	e, err := h.Ingest.AttachRecording(requestContext(c), cred, ingest.RecordingInput{
		CallID:      c.PostForm("callId"),
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "recordingUrl": e.RecordingURL})
}

// --- Reporting ---

// ListDevices handles GET /devices for head-office dashboards.
func (h Handlers) ListDevices(c *gin.Context) {
	out, err := h.Reports.Dashboard(requestContext(c), h.now())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
