// Package postgres implements store.Store on PostgreSQL via the Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/hooklinehq/hookline/audit"
	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/event"
	"github.com/hooklinehq/hookline/id"
	hookstore "github.com/hooklinehq/hookline/store"
	"github.com/hooklinehq/hookline/subscription"
)

// compile-time interface check
var _ hookstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("hookline/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("hookline/postgres: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", subID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, subscription.ErrNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) ListSubscriptions(ctx context.Context, ownerID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.pg.NewSelect(&models).Where("owner_id = $1", ownerID)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	now := time.Now().UTC()
	res, err := s.pg.NewUpdate((*subscriptionModel)(nil)).
		Set("url = $1", sub.URL).
		Set("description = $2", sub.Description).
		Set("event_types = $3", sub.EventTypes).
		Set("active = $4", sub.Active).
		Set("updated_at = $5", now).
		Where("id = $6", sub.ID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateSecret(ctx context.Context, subID id.ID, secret string, rotatedAt time.Time) error {
	res, err := s.pg.NewUpdate((*subscriptionModel)(nil)).
		Set("secret = $1", secret).
		Set("secret_rotated_at = $2", rotatedAt).
		Set("updated_at = $3", rotatedAt).
		Where("id = $4", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	res, err := s.pg.NewDelete((*subscriptionModel)(nil)).
		Where("id = $1", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (s *Store) ResolveActive(ctx context.Context, eventType string) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	if err := s.pg.NewSelect(&models).
		Where("active = true").
		Where("$1 = ANY(event_types)", eventType).
		Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

func (s *Store) StampLastDelivery(ctx context.Context, subID id.ID, at time.Time) error {
	// Monotonic: never move the stamp backwards under concurrent workers.
	res, err := s.pg.NewUpdate((*subscriptionModel)(nil)).
		Set("last_delivery_at = $1", at).
		Where("id = $2", subID.String()).
		Where("last_delivery_at IS NULL OR last_delivery_at < $3", at).
		Exec(ctx)
	if err != nil {
		return err
	}
	if _, err := res.RowsAffected(); err != nil {
		return err
	}
	return nil
}

func (s *Store) CountActive(ctx context.Context) (int, error) {
	count, err := s.pg.NewSelect((*subscriptionModel)(nil)).
		Where("active = true").
		Count(ctx)
	return int(count), err
}

// ==================== Event Store ====================

func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)
	res, err := s.pg.NewInsert(m).
		OnConflict("(event_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return event.ErrDuplicate
	}
	return nil
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	m := new(eventModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", evtID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) GetEventByKey(ctx context.Context, key string) (*event.Event, error) {
	m := new(eventModel)
	err := s.pg.NewSelect(m).
		Where("event_key = $1", key).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.Type != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("type = $%d", argIdx), opts.Type)
	}
	if opts.From != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at >= $%d", argIdx), *opts.From)
	}
	if opts.To != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("created_at <= $%d", argIdx), *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*event.Event, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = evt
	}
	return result, nil
}

// ==================== Delivery Store ====================

func (s *Store) Enqueue(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	_, err := s.pg.NewInsert(m).
		OnConflict("(subscription_id, event_key) DO NOTHING").
		Exec(ctx)
	return err
}

func (s *Store) EnqueueBatch(ctx context.Context, ds []*delivery.Delivery) (int, error) {
	if len(ds) == 0 {
		return 0, nil
	}
	models := make([]deliveryModel, len(ds))
	for i, d := range ds {
		models[i] = *toDeliveryModel(d)
	}
	res, err := s.pg.NewInsert(&models).
		OnConflict("(subscription_id, event_key) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (s *Store) Claim(ctx context.Context, limit int, now time.Time) ([]*delivery.Delivery, error) {
	// FOR UPDATE SKIP LOCKED makes the claim exclusive under concurrent
	// pollers.
	var models []deliveryModel
	err := s.pg.NewRaw(`
		UPDATE hookline_deliveries
		SET state = 'delivering', claimed_at = $1, updated_at = $1
		WHERE id IN (
			SELECT id FROM hookline_deliveries
			WHERE state = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`, now, limit).Scan(ctx, &models)
	if err != nil {
		return nil, err
	}

	result := make([]*delivery.Delivery, len(models))
	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

func (s *Store) UpdateDelivery(ctx context.Context, d *delivery.Delivery) error {
	m := toDeliveryModel(d)
	m.UpdatedAt = time.Now().UTC()
	m.ClaimedAt = nil
	_, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	return err
}

func (s *Store) GetDelivery(ctx context.Context, dID id.ID) (*delivery.Delivery, error) {
	m := new(deliveryModel)
	err := s.pg.NewSelect(m).
		Where("id = $1", dID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, delivery.ErrNotFound
		}
		return nil, err
	}
	return fromDeliveryModel(m)
}

func (s *Store) ListDeliveries(ctx context.Context, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	var models []deliveryModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.SubscriptionID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("subscription_id = $%d", argIdx), opts.SubscriptionID.String())
	}
	if opts.State != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("state = $%d", argIdx), string(*opts.State))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*delivery.Delivery, len(models))
	for i := range models {
		d, err := fromDeliveryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = d
	}
	return result, nil
}

func (s *Store) CountByState(ctx context.Context) (map[delivery.State]int, error) {
	var rows []struct {
		State string `grove:"state"`
		Count int    `grove:"count"`
	}
	if err := s.pg.NewRaw(`
		SELECT state, COUNT(*) AS count
		FROM hookline_deliveries
		GROUP BY state
	`).Scan(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[delivery.State]int, len(rows))
	for _, r := range rows {
		counts[delivery.State(r.State)] = r.Count
	}
	return counts, nil
}

func (s *Store) ReleaseStale(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.pg.NewUpdate((*deliveryModel)(nil)).
		Set("state = 'pending'").
		Set("claimed_at = NULL").
		Set("updated_at = $1", time.Now().UTC()).
		Where("state = 'delivering'").
		Where("claimed_at < $2", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

func (s *Store) Requeue(ctx context.Context, dID id.ID, now time.Time) error {
	res, err := s.pg.NewUpdate((*deliveryModel)(nil)).
		Set("state = 'pending'").
		Set("attempt_count = 0").
		Set("next_attempt_at = $1", now).
		Set("completed_at = NULL").
		Set("updated_at = $2", now).
		Where("id = $3", dID.String()).
		Where("state = $4", string(delivery.StateDeadLettered)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		// Distinguish a missing row from one in the wrong state.
		if _, getErr := s.GetDelivery(ctx, dID); getErr != nil {
			return getErr
		}
		return delivery.ErrNotDeadLettered
	}
	return nil
}

func (s *Store) PurgeDeadLettered(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.pg.NewDelete((*deliveryModel)(nil)).
		Where("state = $1", string(delivery.StateDeadLettered)).
		Where("completed_at < $2", cutoff).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(rows), nil
}

// ==================== Audit Store ====================

func (s *Store) AppendEntry(ctx context.Context, entry *audit.Entry) error {
	m := toAuditEntryModel(entry)
	_, err := s.pg.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) ListEntries(ctx context.Context, opts audit.ListOpts) ([]*audit.Entry, error) {
	var models []auditEntryModel
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if !opts.SubscriptionID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("subscription_id = $%d", argIdx), opts.SubscriptionID.String())
	}
	if !opts.DeliveryID.IsNil() {
		argIdx++
		q = q.Where(fmt.Sprintf("delivery_id = $%d", argIdx), opts.DeliveryID.String())
	}
	if opts.Kind != "" {
		argIdx++
		q = q.Where(fmt.Sprintf("kind = $%d", argIdx), string(opts.Kind))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*audit.Entry, len(models))
	for i := range models {
		e, err := fromAuditEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
