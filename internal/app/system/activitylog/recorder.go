// internal/app/system/activitylog/recorder.go
package activitylog

import (
	"context"
	"net/http"

	"github.com/dalemusser/researchportal/internal/app/store/loginactivity"
	"github.com/dalemusser/researchportal/internal/app/system/metrics"
	"github.com/dalemusser/researchportal/internal/app/system/network"
	"github.com/dalemusser/researchportal/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Mirror settings.
const (
	MirrorLog = "log" // store the row and emit it through zap
	MirrorOff = "off" // store the row only
)

// Events distinguish how an attempt happened. They appear only in the
// zap mirror; the stored row has no event column.
const (
	EventLogin    = "login"
	EventRegister = "register"
)

// Config holds recorder options.
type Config struct {
	// Mirror is MirrorLog or MirrorOff.
	Mirror string
}

// Recorder writes exactly one LoginActivity row per authentication attempt.
type Recorder struct {
	store  *loginactivity.Store
	zapLog *zap.Logger
	config Config
}

// New creates a Recorder.
func New(store *loginactivity.Store, zapLog *zap.Logger, config Config) *Recorder {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Recorder{store: store, zapLog: zapLog, config: config}
}

// Client describes the caller of an authentication attempt.
type Client struct {
	IP        string
	UserAgent string
	Location  string
}

// ClientFrom reads the caller's details from the request. Non-empty ip or
// userAgent override what the request carries.
func ClientFrom(r *http.Request, ip, userAgent string) Client {
	c := Client{IP: ip, UserAgent: userAgent, Location: network.GetLocation(r)}
	if c.IP == "" {
		c.IP = network.GetClientIP(r)
	}
	if c.UserAgent == "" {
		c.UserAgent = r.UserAgent()
	}
	return c
}

// Attempt is one authentication attempt. UserID is nil when the email
// matched no account; Email is used only for the zap mirror.
type Attempt struct {
	Event   string
	UserID  *primitive.ObjectID
	Email   string
	Client  Client
	Success bool
}

// Record stores the attempt synchronously. A store failure is logged and
// counted and returned to the caller, which decides whether it matters.
// A nil Recorder records nothing.
func (l *Recorder) Record(ctx context.Context, a Attempt) (models.LoginActivity, error) {
	if l == nil {
		return models.LoginActivity{}, nil
	}

	row := models.LoginActivity{
		UserID:     a.UserID,
		IP:         a.Client.IP,
		UserAgent:  a.Client.UserAgent,
		Location:   a.Client.Location,
		Success:    a.Success,
		DeviceType: network.DeviceType(a.Client.UserAgent),
	}

	if l.config.Mirror == MirrorLog {
		l.logToZap(a, row.DeviceType)
	}

	stored, err := l.store.Create(ctx, row)
	if err != nil {
		metrics.ActivityWriteFailures.Inc()
		l.zapLog.Error("failed to store login activity",
			zap.Error(err),
			zap.String("event", a.Event),
			zap.Bool("success", a.Success),
			zap.String("ip", a.Client.IP))
		return row, err
	}
	return stored, nil
}

func (l *Recorder) logToZap(a Attempt, device string) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("event", a.Event),
		zap.Bool("success", a.Success),
		zap.String("ip", a.Client.IP),
		zap.String("device", device),
	}
	if a.UserID != nil {
		fields = append(fields, zap.String("user_id", a.UserID.Hex()))
	} else {
		fields = append(fields, zap.String("email", a.Email))
	}
	if a.Client.Location != "" {
		fields = append(fields, zap.String("location", a.Client.Location))
	}

	if a.Success {
		l.zapLog.Info("login activity", fields...)
	} else {
		l.zapLog.Warn("login activity", fields...)
	}
}
