package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hooklinehq/hookline/eventtype"
	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/internal/entity"
	"github.com/hooklinehq/hookline/ratelimit"
	"github.com/hooklinehq/hookline/signature"
)

// TypeRegistry reports which event type names are not registered.
type TypeRegistry interface {
	Unknown(names []string) []string
}

// AuditTrail records subscription lifecycle transitions. Implementations
// must not fail the calling operation.
type AuditTrail interface {
	SubscriptionCreated(ctx context.Context, sub *Subscription)
	SubscriptionUpdated(ctx context.Context, sub *Subscription)
	SubscriptionDeleted(ctx context.Context, sub *Subscription)
	SecretRotated(ctx context.Context, sub *Subscription)
}

// Service provides owner-scoped subscription management.
type Service struct {
	store     Store
	registry  TypeRegistry
	validator *Validator
	limiter   ratelimit.Limiter
	audit     AuditTrail
	logger    *slog.Logger
}

// NewService creates a subscription service. registry, limiter, and audit
// may be nil, which disables the corresponding check or side effect.
func NewService(store Store, registry TypeRegistry, limiter ratelimit.Limiter, audit AuditTrail, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		registry:  registry,
		validator: NewValidator(),
		limiter:   limiter,
		audit:     audit,
		logger:    logger,
	}
}

// Create registers a new subscription for the owner and returns it with the
// plaintext secret populated. The secret is not retrievable afterwards.
func (svc *Service) Create(ctx context.Context, ownerID string, in Input) (*Subscription, error) {
	if ownerID == "" {
		return nil, &ValidationError{Field: "owner_id", Reason: "is required"}
	}
	if err := ratelimit.Check(ctx, svc.limiter, ownerID, ratelimit.ActionCreateSubscription, ratelimit.PolicyCreateSubscription); err != nil {
		return nil, err
	}
	if err := svc.validator.ValidateInput(ctx, in); err != nil {
		return nil, err
	}
	if err := svc.checkKnownTypes(in.EventTypes); err != nil {
		return nil, err
	}

	sub := &Subscription{
		Entity:      entity.New(),
		ID:          id.NewSubscriptionID(),
		OwnerID:     ownerID,
		URL:         in.URL,
		Description: in.Description,
		Secret:      signature.GenerateSecret(),
		EventTypes:  in.EventTypes,
		Active:      true,
	}

	if err := svc.store.CreateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "subscription created",
		slog.String("subscription_id", sub.ID.String()),
		slog.String("url", sub.URL),
		slog.Int("event_types", len(sub.EventTypes)))

	if svc.audit != nil {
		svc.audit.SubscriptionCreated(ctx, sub)
	}
	return sub, nil
}

// Get returns the owner's subscription by ID. A subscription owned by
// someone else is reported as not found.
func (svc *Service) Get(ctx context.Context, ownerID string, subID id.ID) (*Subscription, error) {
	sub, err := svc.store.GetSubscription(ctx, subID)
	if err != nil {
		return nil, err
	}
	if sub.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return sub, nil
}

// List returns the owner's subscriptions.
func (svc *Service) List(ctx context.Context, ownerID string, opts ListOpts) ([]*Subscription, error) {
	return svc.store.ListSubscriptions(ctx, ownerID, opts)
}

// Update applies a partial update to the owner's subscription. A changed
// URL is revalidated; changed event types are rechecked against the
// registry.
func (svc *Service) Update(ctx context.Context, ownerID string, subID id.ID, in UpdateInput) (*Subscription, error) {
	sub, err := svc.Get(ctx, ownerID, subID)
	if err != nil {
		return nil, err
	}

	if in.URL != nil {
		if err := svc.validator.ValidateURL(ctx, *in.URL); err != nil {
			return nil, err
		}
		sub.URL = *in.URL
	}
	if in.Description != nil {
		if len(*in.Description) > MaxDescriptionLength {
			return nil, &ValidationError{Field: "description", Reason: fmt.Sprintf("exceeds %d characters", MaxDescriptionLength)}
		}
		sub.Description = *in.Description
	}
	if in.EventTypes != nil {
		if err := ValidateEventTypes(in.EventTypes); err != nil {
			return nil, err
		}
		if err := svc.checkKnownTypes(in.EventTypes); err != nil {
			return nil, err
		}
		sub.EventTypes = in.EventTypes
	}
	if in.Active != nil {
		sub.Active = *in.Active
	}
	sub.UpdatedAt = time.Now().UTC()

	if err := svc.store.UpdateSubscription(ctx, sub); err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "subscription updated",
		slog.String("subscription_id", sub.ID.String()))

	if svc.audit != nil {
		svc.audit.SubscriptionUpdated(ctx, sub)
	}
	return sub, nil
}

// Delete removes the owner's subscription. Pending deliveries are
// abandoned when the engine next claims them.
func (svc *Service) Delete(ctx context.Context, ownerID string, subID id.ID) error {
	sub, err := svc.Get(ctx, ownerID, subID)
	if err != nil {
		return err
	}
	if err := svc.store.DeleteSubscription(ctx, sub.ID); err != nil {
		return err
	}

	svc.logger.InfoContext(ctx, "subscription deleted",
		slog.String("subscription_id", sub.ID.String()))

	if svc.audit != nil {
		svc.audit.SubscriptionDeleted(ctx, sub)
	}
	return nil
}

// RotateSecret replaces the subscription's signing secret and returns the
// new plaintext secret. The cutover is immediate: deliveries claimed after
// rotation are signed with the new secret only.
func (svc *Service) RotateSecret(ctx context.Context, ownerID string, subID id.ID) (string, error) {
	if err := ratelimit.Check(ctx, svc.limiter, ownerID, ratelimit.ActionRotateSecret, ratelimit.PolicyRotateSecret); err != nil {
		return "", err
	}

	sub, err := svc.Get(ctx, ownerID, subID)
	if err != nil {
		return "", err
	}

	secret := signature.GenerateSecret()
	rotatedAt := time.Now().UTC()
	if err := svc.store.UpdateSecret(ctx, sub.ID, secret, rotatedAt); err != nil {
		return "", err
	}
	sub.Secret = secret
	sub.SecretRotatedAt = rotatedAt

	svc.logger.InfoContext(ctx, "subscription secret rotated",
		slog.String("subscription_id", sub.ID.String()))

	if svc.audit != nil {
		svc.audit.SecretRotated(ctx, sub)
	}
	return secret, nil
}

func (svc *Service) checkKnownTypes(types []string) error {
	if svc.registry == nil {
		return nil
	}
	if missing := svc.registry.Unknown(types); len(missing) > 0 {
		return fmt.Errorf("%w: %s", eventtype.ErrUnknownType, strings.Join(missing, ", "))
	}
	return nil
}
