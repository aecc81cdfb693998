package usage

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/waygrid/wayfinder/pkg/eventbus"
	"github.com/waygrid/wayfinder/pkg/logger"
	"go.uber.org/zap"
)

const (
	// maxCapturedBody caps the request/response bodies stored per record.
	maxCapturedBody = 16 * 1024

	// persistTimeout bounds the detached write after the response is sent.
	persistTimeout = 10 * time.Second
)

// Store is the persistence port for tracked calls.
type Store interface {
	InsertRecord(ctx context.Context, rec *Record) error
	InsertAnalytics(ctx context.Context, a *Analytics) error
}

// Publisher emits usage events; satisfied by eventbus.Bus.
type Publisher interface {
	Publish(ctx context.Context, subject string, event *eventbus.Event) error
}

// Tracker records API calls as they pass through. Persistence runs after the
// response on a detached context and never fails the request.
type Tracker struct {
	store Store
	bus   Publisher
}

// NewTracker creates a usage tracker. bus may be nil when events are
// disabled.
func NewTracker(store Store, bus Publisher) *Tracker {
	return &Tracker{store: store, bus: bus}
}

type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (r *bodyRecorder) Write(data []byte) (int, error) {
	if r.body.Len() < maxCapturedBody {
		r.body.Write(data)
	}
	return r.ResponseWriter.Write(data)
}

func (r *bodyRecorder) WriteString(data string) (int, error) {
	if r.body.Len() < maxCapturedBody {
		r.body.WriteString(data)
	}
	return r.ResponseWriter.WriteString(data)
}

// Track binds an api_kind and endpoint name to the wrapped route.
func (t *Tracker) Track(apiKind, endpoint string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if t == nil || t.store == nil {
			c.Next()
			return
		}

		requestBody := readRequestBody(c)
		recorder := &bodyRecorder{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
		c.Writer = recorder

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		rec := &Record{
			ID:           uuid.New(),
			UserID:       identityFrom(c),
			APIKind:      apiKind,
			Endpoint:     endpoint,
			Method:       c.Request.Method,
			Path:         c.Request.URL.Path,
			StatusCode:   c.Writer.Status(),
			ClientIP:     c.ClientIP(),
			UserAgent:    c.Request.UserAgent(),
			RequestSize:  len(requestBody),
			ResponseSize: c.Writer.Size(),
			RequestBody:  capString(string(requestBody), maxCapturedBody),
			ResponseBody: capString(recorder.body.String(), maxCapturedBody),
			ResponseMs:   elapsed.Milliseconds(),
			CreatedAt:    time.Now().UTC(),
		}

		responseBody := make([]byte, recorder.body.Len())
		copy(responseBody, recorder.body.Bytes())

		go t.persist(rec, requestBody, responseBody)
	}
}

// persist writes the base record, the analytics row when eligible, and the
// usage event. Runs detached from the request.
func (t *Tracker) persist(rec *Record, requestBody, responseBody []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	if err := t.store.InsertRecord(ctx, rec); err != nil {
		logger.Warn("failed to persist usage record",
			zap.String("endpoint", rec.Endpoint), zap.Error(err))
		return
	}

	if rec.StatusCode < 400 && rec.UserID != uuid.Nil {
		a, err := extractAnalytics(rec.APIKind, requestBody, responseBody)
		if err != nil {
			logger.Warn("usage analytics extraction failed",
				zap.String("api_kind", rec.APIKind), zap.Error(err))
		} else if a != nil {
			a.ID = uuid.New()
			a.RecordID = rec.ID
			a.UserID = rec.UserID
			a.CreatedAt = rec.CreatedAt
			if err := t.store.InsertAnalytics(ctx, a); err != nil {
				logger.Warn("failed to persist usage analytics",
					zap.String("api_kind", rec.APIKind), zap.Error(err))
			}
		}
	}

	t.publish(ctx, rec)
}

func (t *Tracker) publish(ctx context.Context, rec *Record) {
	if t.bus == nil {
		return
	}

	event, err := eventbus.NewEvent(eventbus.SubjectUsageRecorded, "wayfinder", eventbus.UsageRecordedData{
		RecordID:     rec.ID,
		UserID:       rec.UserID,
		APIKind:      rec.APIKind,
		Endpoint:     rec.Endpoint,
		Method:       rec.Method,
		StatusCode:   rec.StatusCode,
		ResponseMs:   rec.ResponseMs,
		RequestSize:  rec.RequestSize,
		ResponseSize: rec.ResponseSize,
		RecordedAt:   rec.CreatedAt,
	})
	if err != nil {
		return
	}
	if err := t.bus.Publish(ctx, eventbus.SubjectUsageRecorded, event); err != nil {
		logger.Debug("usage event publish failed", zap.Error(err))
	}
}

// readRequestBody captures a JSON request body and restores it for the
// handler. Non-JSON bodies are skipped.
func readRequestBody(c *gin.Context) []byte {
	if c.Request == nil || c.Request.Body == nil {
		return nil
	}
	if !strings.Contains(c.ContentType(), "application/json") {
		return nil
	}

	bodyBytes, err := io.ReadAll(io.LimitReader(c.Request.Body, maxCapturedBody+1))
	if err != nil {
		return nil
	}
	c.Request.Body = io.NopCloser(io.MultiReader(bytes.NewReader(bodyBytes), c.Request.Body))

	if len(bodyBytes) > maxCapturedBody {
		bodyBytes = bodyBytes[:maxCapturedBody]
	}
	return bodyBytes
}

// identityFrom pulls the authenticated user from the auth middleware, if any.
func identityFrom(c *gin.Context) uuid.UUID {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uuid.UUID); ok {
			return id
		}
	}
	return uuid.Nil
}
