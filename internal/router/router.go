// Package router implements the session/role state machine. Every user
// intent takes the current session snapshot, consults the credential
// store, classifier or telemetry log as needed, and returns the next
// snapshot. Snapshots are values; nothing here mutates shared state
// except the stores at the edges.
package router

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/ashureev/emotext/internal/classifier"
	"github.com/ashureev/emotext/internal/credentials"
	"github.com/ashureev/emotext/internal/domain"
	"github.com/ashureev/emotext/internal/store"
)

// ErrInvalidAdminCredentials is returned when the fixed admin pair does
// not match. It reveals nothing beyond the mismatch.
var ErrInvalidAdminCredentials = errors.New("invalid admin credentials")

// ErrLoginRequired is returned for intents that need an authenticated
// user role, such as submitting text on the locked Home view.
var ErrLoginRequired = errors.New("login required")

// TelemetryNotifier receives a copy of every telemetry record as it is
// written, for live monitoring. Implementations must not block.
type TelemetryNotifier interface {
	VisitRecorded(rec domain.PageVisitRecord)
	PredictionRecorded(rec domain.PredictionRecord)
}

// PredictionResult is the payload returned for a Home prediction.
type PredictionResult struct {
	Text         string                        `json:"text"`
	Label        string                        `json:"label"`
	Emoji        string                        `json:"emoji"`
	Confidence   float64                       `json:"confidence"`
	Distribution []classifier.ClassProbability `json:"distribution"`
}

// Router routes intents through the state machine.
type Router struct {
	creds         *credentials.Store
	repo          store.Repository
	clf           *classifier.Classifier // nil when the artifact failed to load
	adminUsername string
	adminPassword string
	notifier      TelemetryNotifier
	now           func() time.Time
}

// New creates a router. clf may be nil, which disables the prediction
// intent while leaving every other view functional. notifier may be nil.
func New(creds *credentials.Store, repo store.Repository, clf *classifier.Classifier, adminUsername, adminPassword string, notifier TelemetryNotifier) *Router {
	return &Router{
		creds:         creds,
		repo:          repo,
		clf:           clf,
		adminUsername: adminUsername,
		adminPassword: adminPassword,
		notifier:      notifier,
		now:           time.Now,
	}
}

// PredictionEnabled reports whether the classifier loaded at startup.
func (r *Router) PredictionEnabled() bool {
	return r.clf != nil
}

// Login authenticates a username/password pair. On success the session
// becomes an authenticated user landing on Home; on failure it stays
// anonymous on the login view.
func (r *Router) Login(ctx context.Context, s domain.Session, username, password string) (domain.Session, error) {
	if s.Authenticated() {
		return s, nil
	}

	account, err := r.creds.Authenticate(ctx, username, password)
	if err != nil {
		return domain.Session{Role: domain.RoleAnonymous, View: domain.ViewLogin}, err
	}

	next := domain.Session{Role: domain.RoleUser, View: domain.ViewHome, Username: account.Username}
	r.recordVisit(ctx, next.View)
	return next, nil
}

// AdminLogin checks the fixed admin pair. The pair is configuration,
// never a credential-store row. On success the session becomes an
// authenticated admin landing on the user-data view.
func (r *Router) AdminLogin(ctx context.Context, s domain.Session, username, password string) (domain.Session, error) {
	if s.Authenticated() {
		return s, nil
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(r.adminUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(r.adminPassword)) == 1
	if !userOK || !passOK {
		return domain.Session{Role: domain.RoleAnonymous, View: domain.ViewAdmin}, ErrInvalidAdminCredentials
	}

	next := domain.Session{Role: domain.RoleAdmin, View: domain.ViewUserData, Username: username}
	r.recordVisit(ctx, next.View)
	return next, nil
}

// Register delegates to the credential store. On success the session
// moves to the login view, still anonymous: the user logs in separately.
// On failure it stays on the registration view with the specific
// validation error.
func (r *Router) Register(ctx context.Context, s domain.Session, form credentials.RegistrationForm) (domain.Session, error) {
	if s.Authenticated() {
		return s, nil
	}

	if _, err := r.creds.Register(ctx, form); err != nil {
		return domain.Session{Role: domain.RoleAnonymous, View: domain.ViewRegistration}, err
	}
	return domain.Session{Role: domain.RoleAnonymous, View: domain.ViewLogin}, nil
}

// Predict classifies raw text from the unlocked Home view. Exactly one
// prediction record and one page-visit record are written per success.
func (r *Router) Predict(ctx context.Context, s domain.Session, text string) (domain.Session, *PredictionResult, error) {
	if s.Role != domain.RoleUser {
		return s, nil, ErrLoginRequired
	}
	if r.clf == nil {
		return s, nil, classifier.ErrUnavailable
	}

	prediction := r.clf.Classify(text)

	emoji, err := classifier.EmojiFor(prediction.Label)
	if err != nil {
		// The request still succeeds; the display marker says the
		// label had no symbol.
		slog.Warn("classifier returned unmapped label", "label", prediction.Label)
		emoji = classifier.UnmappedMarker
	}

	now := r.now()
	r.recordPrediction(ctx, domain.PredictionRecord{
		RawText:        text,
		PredictedLabel: prediction.Label,
		Confidence:     prediction.Confidence,
		PredictedAt:    now,
	})

	next := domain.Session{Role: s.Role, View: domain.ViewHome, Username: s.Username}
	r.recordVisit(ctx, next.View)

	return next, &PredictionResult{
		Text:         text,
		Label:        prediction.Label,
		Emoji:        emoji,
		Confidence:   prediction.Confidence,
		Distribution: prediction.Distribution,
	}, nil
}

// Navigate moves the session to a view reachable from its role. A
// request for an unreachable view is a no-op that re-renders the
// current view, not a failure. Navigating to the logout view performs
// the logout transition.
func (r *Router) Navigate(ctx context.Context, s domain.Session, view domain.View) (domain.Session, error) {
	if view == domain.ViewLogout {
		return r.Logout(ctx, s)
	}
	if !Reachable(s.Role, view) {
		return s, nil
	}

	next := domain.Session{Role: s.Role, View: view, Username: s.Username}
	if Recorded(view) {
		r.recordVisit(ctx, view)
	}
	return next, nil
}

// Logout resets an authenticated session to the initial state.
func (r *Router) Logout(ctx context.Context, s domain.Session) (domain.Session, error) {
	if !s.Authenticated() {
		return s, nil
	}

	next := domain.NewSession()
	r.recordVisit(ctx, next.View)
	return next, nil
}

// recordVisit appends a page-visit row. Telemetry failures degrade: the
// view still renders, the event is logged and dropped.
func (r *Router) recordVisit(ctx context.Context, view domain.View) {
	rec := domain.PageVisitRecord{PageName: string(view), VisitedAt: r.now()}
	if err := r.repo.AddPageVisit(ctx, rec.PageName, rec.VisitedAt); err != nil {
		slog.Warn("failed to record page visit", "page", rec.PageName, "error", err)
		return
	}
	if r.notifier != nil {
		r.notifier.VisitRecorded(rec)
	}
}

func (r *Router) recordPrediction(ctx context.Context, rec domain.PredictionRecord) {
	if err := r.repo.AddPrediction(ctx, &rec); err != nil {
		slog.Warn("failed to record prediction", "label", rec.PredictedLabel, "error", err)
		return
	}
	if r.notifier != nil {
		r.notifier.PredictionRecorded(rec)
	}
}
