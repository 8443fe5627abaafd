// internal/app/features/status/handler.go
package status

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/dalemusser/researchportal/internal/app/system/jsonutil"
	"github.com/dalemusser/researchportal/internal/app/system/timeouts"
	"github.com/dalemusser/researchportal/internal/app/system/validators"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var startTime = time.Now()

// Handler serves the database status report.
type Handler struct {
	db  *mongo.Database
	log *zap.Logger
}

// NewHandler creates a new status Handler.
func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{db: db, log: logger}
}

// Report is the payload of GET /api/admin/db-status.
type Report struct {
	Connected    bool             `json:"connected"`
	Error        string           `json:"error,omitempty"`
	PingMS       int64            `json:"ping_ms"`
	Version      string           `json:"version,omitempty"`
	Database     string           `json:"database"`
	Collections  map[string]int64 `json:"collections,omitempty"`
	GoVersion    string           `json:"go_version"`
	Uptime       string           `json:"uptime"`
	NumGoroutine int              `json:"goroutines"`
}

// Report.Error values. Driver detail goes to the log only.
const (
	ErrUnreachable       = "database unreachable"
	ErrCountsUnavailable = "collection counts unavailable"
)

// Serve handles GET /api/admin/db-status.
// An unreachable database is reported in the payload with a 503.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rep := Report{
		Database:     h.db.Name(),
		GoVersion:    runtime.Version(),
		Uptime:       time.Since(startTime).Truncate(time.Second).String(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	pingStart := time.Now()
	if err := h.db.Client().Ping(ctx, readpref.Primary()); err != nil {
		h.log.Error("db status: ping failed", zap.String("database", rep.Database), zap.Error(err))
		rep.Error = ErrUnreachable
		jsonutil.JSON(w, http.StatusServiceUnavailable, jsonutil.Envelope{
			Success: false,
			Message: "Database unavailable",
			Code:    "DB_UNAVAILABLE",
			Data:    rep,
		})
		return
	}
	rep.Connected = true
	rep.PingMS = time.Since(pingStart).Milliseconds()

	var info bson.M
	if err := h.db.Client().Database("admin").RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&info); err == nil {
		if v, ok := info["version"].(string); ok {
			rep.Version = v
		}
	}

	counts, err := h.countAll(ctx)
	if err != nil {
		h.log.Error("db status: count failed", zap.String("database", rep.Database), zap.Error(err))
		rep.Error = ErrCountsUnavailable
	}
	rep.Collections = counts

	jsonutil.OK(w, "Database reachable", rep)
}

// countAll counts every application collection concurrently.
func (h *Handler) countAll(ctx context.Context) (map[string]int64, error) {
	colls := validators.Collections()
	counts := make([]int64, len(colls))

	g, gctx := errgroup.WithContext(ctx)
	for i, c := range colls {
		g.Go(func() error {
			n, err := h.db.Collection(c.Name).EstimatedDocumentCount(gctx)
			if err != nil {
				return err
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]int64, len(colls))
	for i, c := range colls {
		out[c.Name] = counts[i]
	}
	return out, nil
}
