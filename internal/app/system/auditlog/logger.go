// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/store/audit"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/auth"
	"github.com/ArturasMisevicius/vue-rent-counter-sub005/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for one category.
const (
	ToAll = "all" // MongoDB and zap
	ToDB  = "db"
	ToLog = "log"
	Off   = "off"
)

// Config selects where each category of event goes.
type Config struct {
	Auth    string
	Admin   string
	Billing string
}

// Logger records audit events to the audit store and the structured log.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a Logger. Empty config values mean ToAll.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	if zapLog == nil {
		zapLog = zap.NewNop()
	}
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.TargetID != nil {
		fields = append(fields, zap.String("target_id", event.TargetID.Hex()))
	}
	if event.OrganizationID != nil {
		fields = append(fields, zap.String("organization_id", event.OrganizationID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

func (l *Logger) destination(category string) string {
	var setting string
	switch category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	case audit.CategoryBilling:
		setting = l.config.Billing
	}
	if setting == "" {
		return ToAll
	}
	return setting
}

// Log records event according to its category's destination.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}
	dest := l.destination(event.Category)
	if dest == Off {
		return
	}
	if dest == ToAll || dest == ToLog {
		l.logToZap(event)
	}
	if (dest == ToAll || dest == ToDB) && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType))
		}
	}
}

func oidPtr(hex string) *primitive.ObjectID {
	if hex == "" {
		return nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil
	}
	return &id
}

func fromRequest(r *http.Request, category, eventType string) audit.Event {
	ev := audit.Event{Category: category, EventType: eventType, Success: true}
	if r != nil {
		ev.IP = ratelimit.ClientIP(r)
		ev.UserAgent = r.UserAgent()
	}
	return ev
}

// --- Authentication ---

// LoginSuccess records a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, u *auth.SessionUser) {
	if u == nil {
		return
	}
	ev := fromRequest(r, audit.CategoryAuth, audit.EventLoginSuccess)
	ev.ActorID = oidPtr(u.ID)
	ev.TargetID = ev.ActorID
	ev.OrganizationID = oidPtr(u.OrganizationID)
	ev.Details = map[string]string{"email": u.Email, "role": u.Role}
	l.Log(ctx, ev)
}

// LoginFailed records a rejected sign-in. userID is nil when no account
// matched the email.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, eventType, email, reason string, userID *primitive.ObjectID) {
	ev := fromRequest(r, audit.CategoryAuth, eventType)
	ev.Success = false
	ev.FailureReason = reason
	ev.TargetID = userID
	ev.Details = map[string]string{"email": email}
	l.Log(ctx, ev)
}

// Logout records a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, u *auth.SessionUser) {
	if u == nil {
		return
	}
	ev := fromRequest(r, audit.CategoryAuth, audit.EventLogout)
	ev.ActorID = oidPtr(u.ID)
	ev.TargetID = ev.ActorID
	ev.OrganizationID = oidPtr(u.OrganizationID)
	l.Log(ctx, ev)
}

// PasswordChanged records a user changing their own password.
func (l *Logger) PasswordChanged(ctx context.Context, r *http.Request, u *auth.SessionUser) {
	if u == nil {
		return
	}
	ev := fromRequest(r, audit.CategoryAuth, audit.EventPasswordChanged)
	ev.ActorID = oidPtr(u.ID)
	ev.TargetID = ev.ActorID
	ev.OrganizationID = oidPtr(u.OrganizationID)
	l.Log(ctx, ev)
}

// --- Administrative and billing actions ---

// Action describes a change made by a signed-in user.
type Action struct {
	EventType string
	// OrganizationID defaults to the actor's organization.
	OrganizationID primitive.ObjectID
	TargetID       primitive.ObjectID
	Details        map[string]string
}

func (l *Logger) action(ctx context.Context, r *http.Request, category string, actor *auth.SessionUser, a Action) {
	ev := fromRequest(r, category, a.EventType)
	ev.Details = a.Details
	if actor != nil {
		ev.ActorID = oidPtr(actor.ID)
		ev.OrganizationID = oidPtr(actor.OrganizationID)
	}
	if !a.OrganizationID.IsZero() {
		org := a.OrganizationID
		ev.OrganizationID = &org
	}
	if !a.TargetID.IsZero() {
		target := a.TargetID
		ev.TargetID = &target
	}
	l.Log(ctx, ev)
}

// Admin records an organization, user, tariff or tenant change.
func (l *Logger) Admin(ctx context.Context, r *http.Request, actor *auth.SessionUser, a Action) {
	l.action(ctx, r, audit.CategoryAdmin, actor, a)
}

// Billing records a reading, invoice or report event.
func (l *Logger) Billing(ctx context.Context, r *http.Request, actor *auth.SessionUser, a Action) {
	l.action(ctx, r, audit.CategoryBilling, actor, a)
}
