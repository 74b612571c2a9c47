package app

import (
	"fmt"
	"time"

	apikeyCache "github.com/allisson/keyguard/internal/apikey/cache"
	apikeyHTTP "github.com/allisson/keyguard/internal/apikey/http"
	apikeyRepository "github.com/allisson/keyguard/internal/apikey/repository"
	apikeyService "github.com/allisson/keyguard/internal/apikey/service"
	apikeyUseCase "github.com/allisson/keyguard/internal/apikey/usecase"
	cryptoDomain "github.com/allisson/keyguard/internal/crypto/domain"
	"github.com/allisson/keyguard/internal/database"
	"github.com/allisson/keyguard/internal/metrics"
)

// lastUsedInterval throttles last_used_at writes on hot keys.
const lastUsedInterval = time.Minute

// TokenService returns the token service used to mint and hash API keys.
func (c *Container) TokenService() apikeyService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = apikeyService.NewTokenService()
	})
	return c.tokenService
}

// AuditSigner returns the audit event signer.
func (c *Container) AuditSigner() apikeyService.AuditSigner {
	c.auditSignerInit.Do(func() {
		c.auditSigner = apikeyService.NewAuditSigner()
	})
	return c.auditSigner
}

// AuditSigningKey returns the key used to sign audit events, or nil when signing is disabled.
func (c *Container) AuditSigningKey() (*cryptoDomain.SigningKey, error) {
	var err error
	c.auditSigningKeyInit.Do(func() {
		c.auditSigningKey, err = cryptoDomain.ParseSigningKey(c.config.AuditSigningKey)
		if err != nil {
			err = fmt.Errorf("failed to parse audit signing key: %w", err)
			c.initErrors["auditSigningKey"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSigningKey"]; exists {
		return nil, storedErr
	}
	return c.auditSigningKey, nil
}

// APIKeyRepository returns the API key repository based on database driver.
func (c *Container) APIKeyRepository() (apikeyUseCase.APIKeyRepository, error) {
	var err error
	c.apiKeyRepositoryInit.Do(func() {
		c.apiKeyRepository, err = c.initAPIKeyRepository()
		if err != nil {
			c.initErrors["apiKeyRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["apiKeyRepository"]; exists {
		return nil, storedErr
	}
	return c.apiKeyRepository, nil
}

// RotationLinkRepository returns the rotation link repository based on database driver.
func (c *Container) RotationLinkRepository() (apikeyUseCase.RotationLinkRepository, error) {
	var err error
	c.rotationLinkRepositoryInit.Do(func() {
		c.rotationLinkRepository, err = c.initRotationLinkRepository()
		if err != nil {
			c.initErrors["rotationLinkRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationLinkRepository"]; exists {
		return nil, storedErr
	}
	return c.rotationLinkRepository, nil
}

// AuditEventRepository returns the audit event repository based on database driver.
func (c *Container) AuditEventRepository() (apikeyUseCase.AuditEventRepository, error) {
	var err error
	c.auditEventRepositoryInit.Do(func() {
		c.auditEventRepository, err = c.initAuditEventRepository()
		if err != nil {
			c.initErrors["auditEventRepository"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditEventRepository"]; exists {
		return nil, storedErr
	}
	return c.auditEventRepository, nil
}

// SQLCache returns the SQL-backed distributed cache tier.
// It is created regardless of CacheDistributedEnabled so clean-cache can purge leftovers.
func (c *Container) SQLCache() (*apikeyCache.SQLCache, error) {
	var err error
	c.sqlCacheInit.Do(func() {
		c.sqlCache, err = c.initSQLCache()
		if err != nil {
			c.initErrors["sqlCache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sqlCache"]; exists {
		return nil, storedErr
	}
	return c.sqlCache, nil
}

// KeyCache returns the two-tier key cache.
func (c *Container) KeyCache() (*apikeyCache.TwoTierCache, error) {
	var err error
	c.keyCacheInit.Do(func() {
		c.keyCache, err = c.initKeyCache()
		if err != nil {
			c.initErrors["keyCache"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyCache"]; exists {
		return nil, storedErr
	}
	return c.keyCache, nil
}

// AuditSink returns the sink every audit event is sent to: the application
// log plus the asynchronous, signed repository writer.
func (c *Container) AuditSink() (apikeyUseCase.AuditSink, error) {
	var err error
	c.auditSinkInit.Do(func() {
		c.auditSink, err = c.initAuditSink()
		if err != nil {
			c.initErrors["auditSink"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditSink"]; exists {
		return nil, storedErr
	}
	return c.auditSink, nil
}

// KeyUseCase returns the API key lifecycle manager.
func (c *Container) KeyUseCase() (apikeyUseCase.KeyUseCase, error) {
	var err error
	c.keyUseCaseInit.Do(func() {
		c.keyUseCase, err = c.initKeyUseCase()
		if err != nil {
			c.initErrors["keyUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyUseCase, nil
}

// AuditEventUseCase returns the audit event use case.
func (c *Container) AuditEventUseCase() (apikeyUseCase.AuditEventUseCase, error) {
	var err error
	c.auditEventUseCaseInit.Do(func() {
		c.auditEventUseCase, err = c.initAuditEventUseCase()
		if err != nil {
			c.initErrors["auditEventUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditEventUseCase"]; exists {
		return nil, storedErr
	}
	return c.auditEventUseCase, nil
}

// RotationSweeper returns the background worker that completes elapsed rotations.
func (c *Container) RotationSweeper() (*apikeyUseCase.RotationSweeper, error) {
	var err error
	c.rotationSweeperInit.Do(func() {
		var keyUseCase apikeyUseCase.KeyUseCase
		keyUseCase, err = c.KeyUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get key use case for rotation sweeper: %w", err)
			c.initErrors["rotationSweeper"] = err
			return
		}
		c.rotationSweeper = apikeyUseCase.NewRotationSweeper(
			keyUseCase,
			c.config.RotationSweepInterval,
			c.Clock(),
			c.Logger(),
		)
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["rotationSweeper"]; exists {
		return nil, storedErr
	}
	return c.rotationSweeper, nil
}

// KeyHandler returns the HTTP handler for API key management.
func (c *Container) KeyHandler() (*apikeyHTTP.KeyHandler, error) {
	var err error
	c.keyHandlerInit.Do(func() {
		var keyUseCase apikeyUseCase.KeyUseCase
		keyUseCase, err = c.KeyUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get key use case for key handler: %w", err)
			c.initErrors["keyHandler"] = err
			return
		}
		c.keyHandler = apikeyHTTP.NewKeyHandler(keyUseCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyHandler"]; exists {
		return nil, storedErr
	}
	return c.keyHandler, nil
}

// AuditEventHandler returns the HTTP handler for audit event queries.
func (c *Container) AuditEventHandler() (*apikeyHTTP.AuditEventHandler, error) {
	var err error
	c.auditEventHandlerInit.Do(func() {
		var auditEventUseCase apikeyUseCase.AuditEventUseCase
		auditEventUseCase, err = c.AuditEventUseCase()
		if err != nil {
			err = fmt.Errorf("failed to get audit event use case for audit event handler: %w", err)
			c.initErrors["auditEventHandler"] = err
			return
		}
		c.auditEventHandler = apikeyHTTP.NewAuditEventHandler(auditEventUseCase, c.Logger())
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["auditEventHandler"]; exists {
		return nil, storedErr
	}
	return c.auditEventHandler, nil
}

// initAPIKeyRepository creates the API key repository based on the database driver.
func (c *Container) initAPIKeyRepository() (apikeyUseCase.APIKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for api key repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return apikeyRepository.NewPostgreSQLAPIKeyRepository(db), nil
	case database.DriverMySQL:
		return apikeyRepository.NewMySQLAPIKeyRepository(db), nil
	case database.DriverSQLite:
		return apikeyRepository.NewSQLiteAPIKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRotationLinkRepository creates the rotation link repository based on the database driver.
func (c *Container) initRotationLinkRepository() (apikeyUseCase.RotationLinkRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for rotation link repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return apikeyRepository.NewPostgreSQLRotationLinkRepository(db), nil
	case database.DriverMySQL:
		return apikeyRepository.NewMySQLRotationLinkRepository(db), nil
	case database.DriverSQLite:
		return apikeyRepository.NewSQLiteRotationLinkRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAuditEventRepository creates the audit event repository based on the database driver.
func (c *Container) initAuditEventRepository() (apikeyUseCase.AuditEventRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for audit event repository: %w", err)
	}

	switch c.config.DBDriver {
	case database.DriverPostgres:
		return apikeyRepository.NewPostgreSQLAuditEventRepository(db), nil
	case database.DriverMySQL:
		return apikeyRepository.NewMySQLAuditEventRepository(db), nil
	case database.DriverSQLite:
		return apikeyRepository.NewSQLiteAuditEventRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSQLCache creates the SQL cache for the configured driver.
func (c *Container) initSQLCache() (*apikeyCache.SQLCache, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for sql cache: %w", err)
	}
	return apikeyCache.NewSQLCache(db, c.config.DBDriver, c.Clock())
}

// initKeyCache creates the two-tier cache, with the SQL tier only when enabled.
func (c *Container) initKeyCache() (*apikeyCache.TwoTierCache, error) {
	var distributed apikeyCache.DistributedCache
	if c.config.CacheDistributedEnabled {
		sqlCache, err := c.SQLCache()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql cache for key cache: %w", err)
		}
		distributed = sqlCache
	}

	cfg := apikeyCache.Config{
		TTL:         c.config.CacheTTL,
		LocalMaxAge: c.config.CacheLocalMaxAge,
		Timeout:     c.config.StorageTimeout,
	}
	keyCache := apikeyCache.NewTwoTierCache(distributed, cfg, c.Clock(), c.Logger())

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for key cache: %w", err)
		}
		cacheMetrics, err := metrics.NewCacheMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create cache metrics: %w", err)
		}
		keyCache.SetObserver(cacheMetrics)
	}

	return keyCache, nil
}

// initAuditSink creates and starts the asynchronous audit writer.
func (c *Container) initAuditSink() (apikeyUseCase.AuditSink, error) {
	auditEventRepository, err := c.AuditEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event repository for audit sink: %w", err)
	}

	signingKey, err := c.AuditSigningKey()
	if err != nil {
		return nil, err
	}

	logger := c.Logger()
	if signingKey == nil {
		logger.Warn("audit signing key not configured, audit events will be stored unsigned")
	}

	c.asyncAuditSink = apikeyUseCase.NewAsyncAuditSink(
		auditEventRepository,
		c.AuditSigner(),
		signingKey,
		c.config.AuditBufferSize,
		c.config.StorageTimeout,
		logger,
	)
	c.asyncAuditSink.Start()

	if c.config.MetricsEnabled {
		provider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for audit sink: %w", err)
		}
		if err := metrics.ObserveAuditQueue(
			provider.MeterProvider(),
			c.config.MetricsNamespace,
			c.asyncAuditSink,
		); err != nil {
			return nil, err
		}
	}

	return apikeyUseCase.NewMultiAuditSink(apikeyUseCase.NewLoggerAuditSink(logger), c.asyncAuditSink), nil
}

// initKeyUseCase creates the key use case with all its dependencies.
func (c *Container) initKeyUseCase() (apikeyUseCase.KeyUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key use case: %w", err)
	}

	apiKeyRepository, err := c.APIKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get api key repository for key use case: %w", err)
	}

	rotationLinkRepository, err := c.RotationLinkRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation link repository for key use case: %w", err)
	}

	keyCache, err := c.KeyCache()
	if err != nil {
		return nil, fmt.Errorf("failed to get key cache for key use case: %w", err)
	}

	auditSink, err := c.AuditSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit sink for key use case: %w", err)
	}

	baseUseCase := apikeyUseCase.NewKeyUseCase(
		txManager,
		apiKeyRepository,
		rotationLinkRepository,
		c.TokenService(),
		keyCache,
		auditSink,
		c.Clock(),
		c.Logger(),
		apikeyUseCase.Config{
			DefaultExpiryDays:  c.config.APIKeyDefaultExpiryDays,
			DefaultGracePeriod: c.config.APIKeyDefaultGracePeriod,
			StorageTimeout:     c.config.StorageTimeout,
			LastUsedInterval:   lastUsedInterval,
		},
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for key use case: %w", err)
		}
		return apikeyUseCase.NewKeyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAuditEventUseCase creates the audit event use case with all its dependencies.
func (c *Container) initAuditEventUseCase() (apikeyUseCase.AuditEventUseCase, error) {
	auditEventRepository, err := c.AuditEventRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit event repository for audit event use case: %w", err)
	}

	signingKey, err := c.AuditSigningKey()
	if err != nil {
		return nil, err
	}

	baseUseCase := apikeyUseCase.NewAuditEventUseCase(auditEventRepository, c.AuditSigner(), signingKey)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for audit event use case: %w", err)
		}
		return apikeyUseCase.NewAuditEventUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
