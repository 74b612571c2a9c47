package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/allisson/keyguard/internal/apikey/cache"
	apikeyDomain "github.com/allisson/keyguard/internal/apikey/domain"
	"github.com/allisson/keyguard/internal/apikey/service"
	cryptoService "github.com/allisson/keyguard/internal/crypto/service"
	"github.com/allisson/keyguard/internal/database"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

// Config tunes the key lifecycle manager.
type Config struct {
	// DefaultExpiryDays applies when an input doesn't set ExpiryDays (0 = never expires).
	DefaultExpiryDays int
	// DefaultGracePeriod applies to rotations that don't set one.
	DefaultGracePeriod time.Duration
	// StorageTimeout bounds each storage call; on timeout the operation fails closed.
	StorageTimeout time.Duration
	// LastUsedInterval skips last_used_at writes for keys used more recently than this.
	LastUsedInterval time.Duration
}

// keyUseCase implements KeyUseCase.
//
// mu orders validations against mutations: Validate holds the read lock from
// lookup through cache backfill, while Revoke, rotation and lazy expiry hold
// the write lock from the storage write through cache invalidation. Once a
// mutation returns, no validation can observe or re-cache the old state.
type keyUseCase struct {
	mu           sync.RWMutex
	txManager    database.TxManager
	keyRepo      APIKeyRepository
	linkRepo     RotationLinkRepository
	tokenService service.TokenService
	cache        *cache.TwoTierCache
	auditSink    AuditSink
	clock        clockwork.Clock
	logger       *slog.Logger
	cfg          Config
	touches      sync.WaitGroup
}

// Generate issues a new API key and writes it through to the cache.
func (k *keyUseCase) Generate(
	ctx context.Context,
	input *apikeyDomain.GenerateKeyInput,
) (*apikeyDomain.IssuedKey, error) {
	plainToken, key, err := k.newKey(input.Role, input.Name, input.ExpiryDays)
	if err != nil {
		k.emit(ctx, apikeyDomain.EventKeyGenerated, nil, err, nil)
		return nil, err
	}

	storageCtx, cancel := k.storageContext(ctx)
	defer cancel()

	if err := k.keyRepo.Create(storageCtx, key); err != nil {
		err = k.storageError(err)
		k.emit(ctx, apikeyDomain.EventKeyGenerated, &key.ID, err, nil)
		return nil, err
	}

	k.cache.Set(ctx, &apikeyDomain.CachedKey{Key: key})
	k.emit(ctx, apikeyDomain.EventKeyGenerated, &key.ID, nil, map[string]any{"role": string(key.Role)})

	return &apikeyDomain.IssuedKey{PlainToken: plainToken, Key: key.Redacted()}, nil
}

// Validate resolves a raw token. The cache is consulted first and storage on a
// miss; every candidate's hash is re-checked in constant time. Expired keys and
// elapsed rotations are transitioned lazily before the failure is returned.
func (k *keyUseCase) Validate(ctx context.Context, rawToken string) (*apikeyDomain.APIKey, error) {
	if rawToken == "" {
		k.emit(ctx, apikeyDomain.EventKeyValidated, nil, apikeyDomain.ErrKeyNotFound, nil)
		return nil, apikeyDomain.ErrKeyNotFound
	}
	hash := k.tokenService.HashToken(rawToken)

	k.mu.RLock()
	entry, err := k.lookup(ctx, hash)
	if err != nil {
		k.mu.RUnlock()
		k.emit(ctx, apikeyDomain.EventKeyValidated, nil, err, nil)
		return nil, err
	}
	now := k.now()
	needsTransition, verdict := evaluate(entry, now)
	k.mu.RUnlock()

	key := entry.Key
	if needsTransition {
		key, verdict = k.transitionLazily(ctx, entry.Key.ID, now)
	}
	if verdict != nil {
		k.emit(ctx, apikeyDomain.EventKeyValidated, &entry.Key.ID, verdict, nil)
		return nil, verdict
	}

	k.recordUse(ctx, key, now)
	k.emit(ctx, apikeyDomain.EventKeyValidated, &key.ID, nil, nil)

	return key.Redacted(), nil
}

// Revoke sets the key to revoked, removes any rotation link and purges both cache tiers.
func (k *keyUseCase) Revoke(ctx context.Context, keyID uuid.UUID) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	key, err := k.getKey(ctx, keyID)
	if err != nil {
		k.emit(ctx, apikeyDomain.EventKeyRevoked, &keyID, err, nil)
		return false, err
	}

	switch key.Status {
	case apikeyDomain.StatusRevoked, apikeyDomain.StatusExpired:
		// Already unusable; purge anyway in case an older instance cached it.
		k.invalidate(ctx, key)
		k.emit(ctx, apikeyDomain.EventKeyRevoked, &keyID, nil, map[string]any{"already": string(key.Status)})
		return true, nil
	}

	if err := k.revokeLocked(ctx, key); err != nil {
		k.emit(ctx, apikeyDomain.EventKeyRevoked, &keyID, err, nil)
		return false, err
	}

	k.emit(ctx, apikeyDomain.EventKeyRevoked, &keyID, nil, nil)
	return true, nil
}

// RotateWithGracePeriod issues a replacement key and puts the old key into the
// rotating state until the grace period ends.
func (k *keyUseCase) RotateWithGracePeriod(
	ctx context.Context,
	input *apikeyDomain.RotateKeyInput,
) (*apikeyDomain.IssuedKey, error) {
	oldKeyID := input.OldKeyID

	gracePeriod := input.GracePeriod
	if gracePeriod == 0 {
		gracePeriod = k.cfg.DefaultGracePeriod
	}
	if gracePeriod < 0 {
		err := apperrors.Wrap(apperrors.ErrInvalidInput, "grace period must not be negative")
		k.emit(ctx, apikeyDomain.EventKeyRotated, &oldKeyID, err, nil)
		return nil, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	oldKey, err := k.getKey(ctx, oldKeyID)
	if err == nil {
		err = k.checkRotatable(ctx, oldKey)
	}
	if err != nil {
		k.emit(ctx, apikeyDomain.EventKeyRotated, &oldKeyID, err, nil)
		return nil, err
	}

	role := oldKey.Role
	if input.NewRole != nil {
		role = *input.NewRole
	}
	name := input.Name
	if name == "" {
		name = oldKey.Name
	}

	plainToken, newKey, err := k.newKey(role, name, input.ExpiryDays)
	if err != nil {
		k.emit(ctx, apikeyDomain.EventKeyRotated, &oldKeyID, err, nil)
		return nil, err
	}

	now := k.now()
	graceEnd := now.Add(gracePeriod)
	link := &apikeyDomain.RotationLink{
		OldKeyID:       oldKey.ID,
		NewKeyID:       newKey.ID,
		GracePeriodEnd: graceEnd,
		CreatedAt:      now,
	}
	if err := oldKey.TransitionTo(apikeyDomain.StatusRotating); err != nil {
		k.emit(ctx, apikeyDomain.EventKeyRotated, &oldKeyID, err, nil)
		return nil, err
	}

	storageCtx, cancel := k.storageContext(ctx)
	defer cancel()

	err = k.txManager.WithTx(storageCtx, func(txCtx context.Context) error {
		if err := k.keyRepo.Create(txCtx, newKey); err != nil {
			return err
		}
		if err := k.keyRepo.Update(txCtx, oldKey); err != nil {
			return err
		}
		return k.linkRepo.Create(txCtx, link)
	})
	if err != nil {
		err = k.storageError(err)
		k.emit(ctx, apikeyDomain.EventKeyRotated, &oldKeyID, err, nil)
		return nil, err
	}

	k.cache.Set(ctx, &apikeyDomain.CachedKey{Key: newKey})
	k.cache.Set(ctx, &apikeyDomain.CachedKey{Key: oldKey, GraceEndsAt: &graceEnd})

	k.emit(ctx, apikeyDomain.EventKeyRotated, &oldKeyID, nil, map[string]any{
		"new_key_id":       newKey.ID.String(),
		"grace_period_end": graceEnd.Format(time.RFC3339),
	})

	return &apikeyDomain.IssuedKey{
		PlainToken:     plainToken,
		Key:            newKey.Redacted(),
		RotatedFrom:    &oldKey.ID,
		GracePeriodEnd: &graceEnd,
	}, nil
}

// CompleteRotation revokes a rotating key before its grace period ends.
func (k *keyUseCase) CompleteRotation(ctx context.Context, oldKeyID uuid.UUID) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	key, err := k.getKey(ctx, oldKeyID)
	if err == nil && key.Status != apikeyDomain.StatusRotating {
		err = apikeyDomain.ErrRotationNotFound
	}
	if err == nil {
		err = k.revokeLocked(ctx, key)
	}

	k.emit(ctx, apikeyDomain.EventKeyRotationCompleted, &oldKeyID, err, map[string]any{"trigger": "explicit"})
	return err
}

// ListKeys returns keys matching filter, newest first, without secret hashes.
func (k *keyUseCase) ListKeys(
	ctx context.Context,
	filter apikeyDomain.KeyFilter,
) ([]*apikeyDomain.APIKey, error) {
	if filter.Role != "" && !filter.Role.IsValid() {
		return nil, apikeyDomain.ErrInvalidRole
	}
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown status %q", filter.Status)
	}

	storageCtx, cancel := k.storageContext(ctx)
	defer cancel()

	keys, err := k.keyRepo.List(storageCtx, filter)
	if err != nil {
		return nil, k.storageError(err)
	}

	result := make([]*apikeyDomain.APIKey, 0, len(keys))
	for _, key := range keys {
		result = append(result, key.Redacted())
	}
	return result, nil
}

// GetKey returns a key without its secret hash.
func (k *keyUseCase) GetKey(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error) {
	key, err := k.getKey(ctx, keyID)
	if err != nil {
		return nil, err
	}
	return key.Redacted(), nil
}

// SweepRotations completes elapsed rotations. Correctness doesn't depend on it
// since Validate performs the same transition lazily.
func (k *keyUseCase) SweepRotations(ctx context.Context) (int, error) {
	now := k.now()

	storageCtx, cancel := k.storageContext(ctx)
	links, err := k.linkRepo.ListElapsed(storageCtx, now)
	cancel()
	if err != nil {
		return 0, k.storageError(err)
	}

	completed := 0
	var errs []error
	for _, link := range links {
		done, err := k.completeElapsedRotation(ctx, link.OldKeyID, now)
		if err != nil {
			k.logger.Warn("failed to complete elapsed rotation",
				slog.String("key_id", link.OldKeyID.String()),
				slog.Any("error", err),
			)
			errs = append(errs, err)
			continue
		}
		if done {
			completed++
		}
	}

	return completed, errors.Join(errs...)
}

// Authorize gates an action through the role permission table.
func (k *keyUseCase) Authorize(
	ctx context.Context,
	key *apikeyDomain.APIKey,
	permission apikeyDomain.Permission,
) error {
	var err error
	if key == nil || !apikeyDomain.HasPermission(key.Role, permission) {
		err = apikeyDomain.ErrPermissionDenied
	}

	var keyID *uuid.UUID
	metadata := map[string]any{"permission": string(permission)}
	if key != nil {
		keyID = &key.ID
		metadata["role"] = string(key.Role)
	}
	k.emit(ctx, apikeyDomain.EventPermissionChecked, keyID, err, metadata)

	return err
}

// newKey builds a fresh active key. Nothing is persisted.
func (k *keyUseCase) newKey(
	role apikeyDomain.Role,
	name string,
	expiryDays *int,
) (string, *apikeyDomain.APIKey, error) {
	if !role.IsValid() {
		return "", nil, fmt.Errorf("%w: %q", apikeyDomain.ErrInvalidRole, role)
	}

	days := k.cfg.DefaultExpiryDays
	if expiryDays != nil {
		days = *expiryDays
	}
	if days < 0 {
		return "", nil, apperrors.Wrap(apperrors.ErrInvalidInput, "expiry days must not be negative")
	}

	plainToken, secretHash, err := k.tokenService.GenerateToken()
	if err != nil {
		return "", nil, err
	}

	now := k.now()
	key := &apikeyDomain.APIKey{
		ID:         uuid.Must(uuid.NewV7()),
		SecretHash: secretHash,
		KeyPrefix:  k.tokenService.Prefix(plainToken),
		Role:       role,
		Name:       name,
		Status:     apikeyDomain.StatusActive,
		CreatedAt:  now,
	}
	if days > 0 {
		expiresAt := now.AddDate(0, 0, days)
		key.ExpiresAt = &expiresAt
	}

	return plainToken, key, nil
}

// lookup resolves a hash through the cache tiers, then storage, backfilling the cache.
// Callers must hold at least the read lock.
func (k *keyUseCase) lookup(ctx context.Context, hash string) (*apikeyDomain.CachedKey, error) {
	if entry, ok := k.cache.GetByHash(ctx, hash); ok {
		return entry, nil
	}

	storageCtx, cancel := k.storageContext(ctx)
	defer cancel()

	key, err := k.keyRepo.GetBySecretHash(storageCtx, hash)
	if err != nil {
		return nil, k.storageError(err)
	}
	if !cryptoService.ConstantTimeEqual(key.SecretHash, hash) {
		return nil, apikeyDomain.ErrKeyNotFound
	}

	entry := &apikeyDomain.CachedKey{Key: key}
	if key.Status == apikeyDomain.StatusRotating {
		link, err := k.linkRepo.Get(storageCtx, key.ID)
		switch {
		case err == nil:
			entry.GraceEndsAt = &link.GracePeriodEnd
		case !errors.Is(err, apikeyDomain.ErrRotationNotFound):
			return nil, k.storageError(err)
		}
	}

	k.cache.Set(ctx, entry)
	return entry, nil
}

// evaluate decides a cached key's validity at now. When needsTransition is
// true the key needs a durable transition before a verdict can be returned.
func evaluate(entry *apikeyDomain.CachedKey, now time.Time) (needsTransition bool, verdict error) {
	key := entry.Key
	switch key.Status {
	case apikeyDomain.StatusRevoked:
		return false, apikeyDomain.ErrKeyRevoked
	case apikeyDomain.StatusExpired:
		return false, apikeyDomain.ErrKeyExpired
	case apikeyDomain.StatusRotating:
		// The grace period alone governs a rotating key; its own expiry is ignored.
		return entry.GraceEndsAt == nil || !now.Before(*entry.GraceEndsAt), nil
	case apikeyDomain.StatusActive:
		return key.IsExpiredAt(now), nil
	default:
		return false, apikeyDomain.ErrKeyNotFound
	}
}

// transitionLazily re-reads the key under the write lock and applies the
// expiry or rotation completion evaluate asked for. A nil error means storage
// still considers the key valid; the returned key is then the fresh copy.
func (k *keyUseCase) transitionLazily(
	ctx context.Context,
	keyID uuid.UUID,
	now time.Time,
) (*apikeyDomain.APIKey, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	key, err := k.getKey(ctx, keyID)
	if err != nil {
		return nil, err
	}

	switch key.Status {
	case apikeyDomain.StatusActive:
		if !key.IsExpiredAt(now) {
			k.cache.Set(ctx, &apikeyDomain.CachedKey{Key: key})
			return key, nil
		}
		if err := k.expireLocked(ctx, key); err != nil {
			return nil, err
		}
		return nil, apikeyDomain.ErrKeyExpired
	case apikeyDomain.StatusRotating:
		done, graceEnd, err := k.completeRotationIfElapsed(ctx, key, now)
		if err != nil {
			return nil, err
		}
		if done {
			return nil, apikeyDomain.ErrKeyRevoked
		}
		k.cache.Set(ctx, &apikeyDomain.CachedKey{Key: key, GraceEndsAt: graceEnd})
		return key, nil
	case apikeyDomain.StatusRevoked:
		k.invalidate(ctx, key)
		return nil, apikeyDomain.ErrKeyRevoked
	default:
		k.invalidate(ctx, key)
		return nil, apikeyDomain.ErrKeyExpired
	}
}

// completeElapsedRotation is the sweeper's entry point for a single link.
func (k *keyUseCase) completeElapsedRotation(ctx context.Context, oldKeyID uuid.UUID, now time.Time) (bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	key, err := k.getKey(ctx, oldKeyID)
	if err != nil {
		return false, err
	}

	if key.Status != apikeyDomain.StatusRotating {
		// Orphaned link: the key left the rotating state some other way.
		storageCtx, cancel := k.storageContext(ctx)
		defer cancel()
		if err := k.linkRepo.Delete(storageCtx, oldKeyID); err != nil {
			return false, k.storageError(err)
		}
		return false, nil
	}

	done, _, err := k.completeRotationIfElapsed(ctx, key, now)
	return done, err
}

// completeRotationIfElapsed revokes a rotating key whose grace period ended.
// When the grace period is still open it returns its end instead.
// Callers must hold the write lock.
func (k *keyUseCase) completeRotationIfElapsed(
	ctx context.Context,
	key *apikeyDomain.APIKey,
	now time.Time,
) (bool, *time.Time, error) {
	storageCtx, cancel := k.storageContext(ctx)
	link, err := k.linkRepo.Get(storageCtx, key.ID)
	cancel()
	if err != nil && !errors.Is(err, apikeyDomain.ErrRotationNotFound) {
		return false, nil, k.storageError(err)
	}

	// A rotating key without a link has no grace period left to honor.
	if link != nil && !link.IsElapsedAt(now) {
		return false, &link.GracePeriodEnd, nil
	}

	if err := k.revokeLocked(ctx, key); err != nil {
		return false, nil, err
	}

	k.emit(ctx, apikeyDomain.EventKeyRotationCompleted, &key.ID, nil, map[string]any{"trigger": "grace_period_elapsed"})
	return true, nil, nil
}

// revokeLocked persists the revoked status, deletes any rotation link and
// purges the caches. Callers must hold the write lock.
func (k *keyUseCase) revokeLocked(ctx context.Context, key *apikeyDomain.APIKey) error {
	wasRotating := key.Status == apikeyDomain.StatusRotating
	if err := key.TransitionTo(apikeyDomain.StatusRevoked); err != nil {
		return err
	}

	storageCtx, cancel := k.storageContext(ctx)
	defer cancel()

	err := k.txManager.WithTx(storageCtx, func(txCtx context.Context) error {
		if err := k.keyRepo.Update(txCtx, key); err != nil {
			return err
		}
		if wasRotating {
			return k.linkRepo.Delete(txCtx, key.ID)
		}
		return nil
	})
	if err != nil {
		return k.storageError(err)
	}

	k.invalidate(ctx, key)
	return nil
}

// expireLocked persists the expired status and purges the caches.
// Callers must hold the write lock.
func (k *keyUseCase) expireLocked(ctx context.Context, key *apikeyDomain.APIKey) error {
	if err := key.TransitionTo(apikeyDomain.StatusExpired); err != nil {
		return err
	}

	storageCtx, cancel := k.storageContext(ctx)
	defer cancel()

	if err := k.keyRepo.Update(storageCtx, key); err != nil {
		return k.storageError(err)
	}

	k.invalidate(ctx, key)
	k.emit(ctx, apikeyDomain.EventKeyExpired, &key.ID, nil, nil)
	return nil
}

// checkRotatable enforces that only active, unexpired keys can be rotated.
// Callers must hold the write lock.
func (k *keyUseCase) checkRotatable(ctx context.Context, key *apikeyDomain.APIKey) error {
	switch key.Status {
	case apikeyDomain.StatusRevoked:
		return apikeyDomain.ErrKeyNotFound
	case apikeyDomain.StatusExpired:
		return apikeyDomain.ErrKeyExpired
	case apikeyDomain.StatusRotating:
		return fmt.Errorf("%w: key is already rotating", apikeyDomain.ErrInvalidTransition)
	}

	if key.IsExpiredAt(k.now()) {
		if err := k.expireLocked(ctx, key); err != nil {
			return err
		}
		return apikeyDomain.ErrKeyExpired
	}
	return nil
}

func (k *keyUseCase) getKey(ctx context.Context, keyID uuid.UUID) (*apikeyDomain.APIKey, error) {
	storageCtx, cancel := k.storageContext(ctx)
	defer cancel()

	key, err := k.keyRepo.Get(storageCtx, keyID)
	if err != nil {
		return nil, k.storageError(err)
	}
	return key, nil
}

func (k *keyUseCase) invalidate(ctx context.Context, key *apikeyDomain.APIKey) {
	if err := k.cache.Invalidate(ctx, key.SecretHash, key.ID); err != nil {
		k.logger.Warn("distributed cache invalidation failed, entry may be served until its ttl",
			slog.String("key_id", key.ID.String()),
			slog.Any("error", err),
		)
	}
}

// recordUse updates last_used_at in the background. It never affects the verdict.
func (k *keyUseCase) recordUse(ctx context.Context, key *apikeyDomain.APIKey, now time.Time) {
	if key.LastUsedAt != nil && now.Sub(*key.LastUsedAt) < k.cfg.LastUsedInterval {
		return
	}
	k.cache.Touch(key.SecretHash, now)

	k.touches.Add(1)
	go func() {
		defer k.touches.Done()

		storageCtx, cancel := k.storageContext(context.WithoutCancel(ctx))
		defer cancel()

		if err := k.keyRepo.UpdateLastUsed(storageCtx, key.ID, now); err != nil {
			k.logger.Debug("failed to update last used time",
				slog.String("key_id", key.ID.String()),
				slog.Any("error", err),
			)
		}
	}()
}

// waitForTouches blocks until pending last_used_at writes finish.
func (k *keyUseCase) waitForTouches() {
	k.touches.Wait()
}

// emit sends an audit event to the sink. err == nil records a success.
func (k *keyUseCase) emit(
	ctx context.Context,
	eventType apikeyDomain.AuditEventType,
	keyID *uuid.UUID,
	err error,
	metadata map[string]any,
) {
	ac := auditContextFrom(ctx)
	event := &apikeyDomain.AuditEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: eventType,
		KeyID:     keyID,
		Actor:     ac.actor,
		Outcome:   apikeyDomain.OutcomeSuccess,
		RequestID: ac.requestID,
		Metadata:  metadata,
		CreatedAt: k.now(),
	}
	if err != nil {
		event.Outcome = apikeyDomain.OutcomeFailure
		event.Reason = reasonFor(err)
	}
	k.auditSink.Log(ctx, event)
}

// storageError keeps domain lookup errors and maps everything else to
// ErrStorageUnavailable so callers fail closed.
func (k *keyUseCase) storageError(err error) error {
	for _, domainErr := range []error{
		apikeyDomain.ErrKeyNotFound,
		apikeyDomain.ErrRotationNotFound,
		apikeyDomain.ErrInvalidTransition,
	} {
		if errors.Is(err, domainErr) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", apikeyDomain.ErrStorageUnavailable, err)
}

func (k *keyUseCase) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if k.cfg.StorageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, k.cfg.StorageTimeout)
}

// now truncates to microseconds so values survive a database round trip unchanged.
func (k *keyUseCase) now() time.Time {
	return k.clock.Now().UTC().Truncate(time.Microsecond)
}

// reasonFor maps an error to a stable audit reason code.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, apikeyDomain.ErrKeyNotFound):
		return "key_not_found"
	case errors.Is(err, apikeyDomain.ErrKeyRevoked):
		return "key_revoked"
	case errors.Is(err, apikeyDomain.ErrKeyExpired):
		return "key_expired"
	case errors.Is(err, apikeyDomain.ErrStorageUnavailable):
		return "storage_unavailable"
	case errors.Is(err, apikeyDomain.ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, apikeyDomain.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, apikeyDomain.ErrRotationNotFound):
		return "rotation_not_found"
	case errors.Is(err, apikeyDomain.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, apperrors.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal_error"
	}
}

// NewKeyUseCase creates the API key lifecycle manager.
func NewKeyUseCase(
	txManager database.TxManager,
	keyRepo APIKeyRepository,
	linkRepo RotationLinkRepository,
	tokenService service.TokenService,
	keyCache *cache.TwoTierCache,
	auditSink AuditSink,
	clock clockwork.Clock,
	logger *slog.Logger,
	cfg Config,
) KeyUseCase {
	if cfg.DefaultGracePeriod <= 0 {
		cfg.DefaultGracePeriod = apikeyDomain.DefaultGracePeriod
	}
	return &keyUseCase{
		txManager:    txManager,
		keyRepo:      keyRepo,
		linkRepo:     linkRepo,
		tokenService: tokenService,
		cache:        keyCache,
		auditSink:    auditSink,
		clock:        clock,
		logger:       logger,
		cfg:          cfg,
	}
}
