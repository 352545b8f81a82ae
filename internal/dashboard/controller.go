package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/relief/internal/disasters"
	"github.com/MarcoPoloResearchLab/relief/internal/reports"
	"github.com/MarcoPoloResearchLab/relief/internal/social"
	"go.uber.org/zap"
)

// Notification texts shown to the operator.
const (
	MessageDisasterUpdated = "Disaster updated successfully"
	MessageDisasterCreated = "Disaster created successfully"
	MessageDisasterDeleted = "Disaster deleted successfully"
	MessageSaveFailed      = "Failed to save disaster"
	MessageDeleteFailed    = "Failed to delete disaster"
	MessageReportSubmitted = "Report submitted successfully!"
	MessageReportFailed    = "Failed to submit report. Please try again."
	MessageExtractFailed   = "Location extraction failed"

	DeletePrompt = "Are you sure you want to delete this disaster?"
)

const (
	listKey   = "disasters:list"
	socialKey = "social:feed"
)

var noOpLogger = zap.NewNop()

// DataClient is the remote data surface the controller drives.
type DataClient interface {
	ListDisasters(ctx context.Context) []disasters.Disaster
	CreateDisaster(ctx context.Context, input disasters.Input) (disasters.Disaster, error)
	UpdateDisaster(ctx context.Context, id string, input disasters.Input) (disasters.Disaster, error)
	DeleteDisaster(ctx context.Context, id string) error
	ExtractLocation(ctx context.Context, description string) (string, error)
	VerifyImage(ctx context.Context, disasterID, imageURL string) (reports.Verification, error)
	CreateReport(ctx context.Context, submission reports.Submission) (json.RawMessage, error)
	SocialPosts(ctx context.Context, disasterID string, keywords []string) []social.Post
}

// Confirmer asks the operator to approve a destructive action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// ControllerConfig wires the controller's collaborators.
type ControllerConfig struct {
	Client          DataClient
	Store           *Store
	NotificationTTL time.Duration
	IDProvider      IDProvider
	Clock           func() time.Time
	Logger          *zap.Logger
}

// Controller owns the dashboard's view state transitions and orchestrates the remote data client.
type Controller struct {
	client   DataClient
	store    *Store
	tokens   *requestTokens
	notifier *notifier
	logger   *zap.Logger
}

func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Client == nil {
		return nil, newControllerError(opControllerNew, "missing_client", errMissingClient)
	}
	if cfg.Store == nil {
		return nil, newControllerError(opControllerNew, "missing_store", errMissingStore)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	ids := cfg.IDProvider
	if ids == nil {
		ids = NewUUIDProvider()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Controller{
		client:   cfg.Client,
		store:    cfg.Store,
		tokens:   newRequestTokens(),
		notifier: newNotifier(cfg.Store, cfg.NotificationTTL, ids, clock),
		logger:   logger,
	}, nil
}

// State returns a copy of the current view state.
func (c *Controller) State() State {
	return c.store.State()
}

// LoadAll fetches the full disaster collection and replaces the cache.
// Only the newest load is applied, and a successful create, update or delete that lands while
// the request is in flight makes its response stale. It reports whether this call's result was applied.
func (c *Controller) LoadAll(ctx context.Context) bool {
	token := c.tokens.begin(listKey)
	c.store.Dispatch(LoadStarted{})

	records := c.client.ListDisasters(ctx)
	applied := c.tokens.commit(listKey, token, func() {
		c.store.Dispatch(DisastersLoaded{Disasters: records})
	})
	if !applied {
		c.tokens.settle(listKey, func() {
			c.store.Dispatch(LoadSettled{})
		})
		c.logger.Debug("discarded stale disaster list", zap.String("operation", opLoad))
	}
	return applied
}

// SetTab switches the active view.
func (c *Controller) SetTab(name string) error {
	tab, err := ParseTab(name)
	if err != nil {
		return newControllerError(opSetTab, "invalid_tab", err)
	}
	c.store.Dispatch(SetTab{Tab: tab})
	return nil
}

// BeginEdit opens the editor pre-filled with the cached record.
func (c *Controller) BeginEdit(id string) (disasters.Disaster, error) {
	record, ok := c.store.State().FindDisaster(id)
	if !ok {
		return disasters.Disaster{}, newControllerError(opBeginEdit, "not_found", fmt.Errorf("%w: %s", ErrUnknownDisaster, id))
	}
	c.store.Dispatch(EditStarted{Disaster: record})
	return record, nil
}

// CancelEdit clears the edit target and returns to the disaster list.
func (c *Controller) CancelEdit() {
	c.store.Dispatch(EditCleared{})
}

// SetUpdatesVisible shows or hides the live updates panel.
func (c *Controller) SetUpdatesVisible(visible bool) {
	c.store.Dispatch(UpdatesPanelToggled{Visible: visible})
}

// ShowNotification displays a banner that clears itself after the configured TTL.
func (c *Controller) ShowNotification(message string, kind NotificationKind) Notification {
	return c.notifier.show(message, kind)
}

// DismissNotification clears the visible banner immediately.
func (c *Controller) DismissNotification() {
	c.notifier.dismiss()
}

// Save creates a record, or updates the current edit target when one is set.
func (c *Controller) Save(ctx context.Context, input disasters.Input) (disasters.Disaster, error) {
	if err := input.Validate(); err != nil {
		return disasters.Disaster{}, newControllerError(opSave, "invalid_input", err)
	}

	editing := c.store.State().Editing
	if editing == nil {
		return c.create(ctx, input)
	}
	return c.update(ctx, editing.ID, input)
}

func (c *Controller) create(ctx context.Context, input disasters.Input) (disasters.Disaster, error) {
	created, err := c.client.CreateDisaster(ctx, input)
	if err == nil && strings.TrimSpace(created.ID) == "" {
		err = errors.New("created record has no identifier")
	}
	if err != nil {
		c.logError(opSave, "create_failed", err)
		c.notifier.show(MessageSaveFailed, NotificationError)
		return disasters.Disaster{}, newControllerError(opSave, "create_failed", fmt.Errorf("%w: %w", ErrSaveFailed, err))
	}

	c.tokens.invalidate(listKey)
	c.store.Dispatch(DisasterSaved{Disaster: created})
	c.notifier.show(MessageDisasterCreated, NotificationSuccess)
	return created, nil
}

func (c *Controller) update(ctx context.Context, id string, input disasters.Input) (disasters.Disaster, error) {
	token := c.tokens.begin(id)
	updated, err := c.client.UpdateDisaster(ctx, id, input)
	if err != nil {
		c.tokens.commit(id, token, func() {})
		c.logError(opSave, "update_failed", err, zap.String("disaster_id", id))
		c.notifier.show(MessageSaveFailed, NotificationError)
		return disasters.Disaster{}, newControllerError(opSave, "update_failed", fmt.Errorf("%w: %w", ErrSaveFailed, err))
	}
	updated.ID = id
	c.tokens.invalidate(listKey)

	applied := c.tokens.commit(id, token, func() {
		c.store.Dispatch(DisasterSaved{Disaster: updated, EditID: id})
	})
	if !applied {
		c.logger.Debug("discarded stale update response",
			zap.String("operation", opSave),
			zap.String("disaster_id", id))
		return updated, nil
	}
	c.notifier.show(MessageDisasterUpdated, NotificationSuccess)
	return updated, nil
}

// Delete removes a record after the operator confirms. Without confirmation nothing is sent.
func (c *Controller) Delete(ctx context.Context, id string, confirmer Confirmer) error {
	if confirmer == nil || !confirmer.Confirm(ctx, DeletePrompt) {
		return newControllerError(opDelete, "declined", ErrDeleteDeclined)
	}

	token := c.tokens.begin(id)
	if err := c.client.DeleteDisaster(ctx, id); err != nil {
		c.tokens.commit(id, token, func() {})
		c.logError(opDelete, "delete_failed", err, zap.String("disaster_id", id))
		c.notifier.show(MessageDeleteFailed, NotificationError)
		return newControllerError(opDelete, "delete_failed", fmt.Errorf("%w: %w", ErrDeleteFailed, err))
	}
	c.tokens.invalidate(listKey)

	applied := c.tokens.commit(id, token, func() {
		c.store.Dispatch(DisasterRemoved{ID: id})
	})
	if !applied {
		c.logger.Debug("discarded stale delete response",
			zap.String("operation", opDelete),
			zap.String("disaster_id", id))
		return nil
	}
	c.notifier.show(MessageDisasterDeleted, NotificationSuccess)
	return nil
}

// ExtractLocation asks the backend for a location name found in description.
func (c *Controller) ExtractLocation(ctx context.Context, description string) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", newControllerError(opExtract, "missing_description", fmt.Errorf("%w: description", ErrMissingFields))
	}
	location, err := c.client.ExtractLocation(ctx, description)
	if err != nil {
		c.logError(opExtract, "extract_failed", err)
		return "", newControllerError(opExtract, "extract_failed", fmt.Errorf("%w: %w", ErrLocationExtraction, err))
	}
	return location, nil
}

// VerifyImage checks an image against a disaster. Backend failures yield a failed verification
// rather than an error.
func (c *Controller) VerifyImage(ctx context.Context, disasterID, imageURL string) (reports.Verification, error) {
	disasterID = strings.TrimSpace(disasterID)
	imageURL = strings.TrimSpace(imageURL)
	if disasterID == "" || imageURL == "" {
		return reports.Verification{}, newControllerError(opVerify, "missing_fields", fmt.Errorf("%w: disaster_id and image_url", ErrMissingFields))
	}
	verification, err := c.client.VerifyImage(ctx, disasterID, imageURL)
	if err != nil {
		c.logError(opVerify, "verify_failed", err, zap.String("disaster_id", disasterID))
		return reports.FailedVerification(), nil
	}
	return verification, nil
}

// SubmitReport sends a field report, carrying the verification outcome when one is supplied.
func (c *Controller) SubmitReport(ctx context.Context, draft reports.Draft, verification *reports.Verification) (json.RawMessage, error) {
	if err := draft.Validate(); err != nil {
		return nil, newControllerError(opSubmitReport, "invalid_draft", err)
	}
	submission := reports.NewSubmission(draft, verification)
	created, err := c.client.CreateReport(ctx, submission)
	if err != nil {
		c.logError(opSubmitReport, "create_failed", err, zap.String("disaster_id", submission.DisasterID))
		c.notifier.show(MessageReportFailed, NotificationError)
		return nil, newControllerError(opSubmitReport, "create_failed", fmt.Errorf("%w: %w", ErrReportFailed, err))
	}
	c.notifier.show(MessageReportSubmitted, NotificationSuccess)
	return created, nil
}

// SelectSocialDisaster changes the monitored disaster and loads matching posts.
// An empty id clears the feed. Responses for a superseded selection are dropped.
func (c *Controller) SelectSocialDisaster(ctx context.Context, id string) SocialFeed {
	id = strings.TrimSpace(id)
	if id == "" {
		c.tokens.invalidate(socialKey)
		return c.store.Dispatch(SocialSelected{}).Social
	}

	keywords := social.DefaultKeywords()
	if record, ok := c.store.State().FindDisaster(id); ok {
		keywords = social.KeywordsForTitle(record.Title)
	}

	token := c.tokens.begin(socialKey)
	c.store.Dispatch(SocialSelected{DisasterID: id, Keywords: keywords})

	posts := c.client.SocialPosts(ctx, id, keywords)
	applied := c.tokens.commit(socialKey, token, func() {
		c.store.Dispatch(SocialLoaded{DisasterID: id, Posts: posts})
	})
	if !applied {
		c.logger.Debug("discarded stale social feed",
			zap.String("operation", opSelectSocial),
			zap.String("disaster_id", id))
	}
	return c.store.State().Social
}

// Close cancels the pending notification timer.
func (c *Controller) Close() {
	c.notifier.stop()
}

func (c *Controller) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	c.logger.Error("dashboard controller error", attrs...)
}
