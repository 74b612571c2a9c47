package app

import (
	"fmt"

	"github.com/allisson/keyguard/internal/config"
	webhookDomain "github.com/allisson/keyguard/internal/webhook/domain"
	webhookHTTP "github.com/allisson/keyguard/internal/webhook/http"
	webhookService "github.com/allisson/keyguard/internal/webhook/service"
)

// WebhookSecurityConfig returns the parsed webhook security configuration.
// Malformed CIDRs or a required check without its secret fail here, at startup.
func (c *Container) WebhookSecurityConfig() (*webhookDomain.SecurityConfig, error) {
	var err error
	c.webhookSecurityConfigInit.Do(func() {
		c.webhookSecurityConfig, err = webhookDomain.NewSecurityConfig(webhookDomain.SecurityConfigInput{
			AllowedCIDRs:     config.SplitList(c.config.WebhookAllowedCIDRs),
			DeniedCIDRs:      config.SplitList(c.config.WebhookDeniedCIDRs),
			EnforceAllowlist: c.config.WebhookEnforceAllowlist,
			SharedSecret:     c.config.WebhookSharedSecret,
			RequireSecret:    c.config.WebhookRequireSecret,
			SigningSecret:    c.config.WebhookSigningSecret,
			RequireSignature: c.config.WebhookRequireSignature,
		})
		if err != nil {
			err = fmt.Errorf("invalid webhook security configuration: %w", err)
			c.initErrors["webhookSecurityConfig"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["webhookSecurityConfig"]; exists {
		return nil, storedErr
	}
	return c.webhookSecurityConfig, nil
}

// WebhookAuthenticator returns the webhook authentication pipeline.
func (c *Container) WebhookAuthenticator() (webhookService.Authenticator, error) {
	var err error
	c.webhookAuthenticatorInit.Do(func() {
		c.webhookAuthenticator, err = c.initWebhookAuthenticator()
		if err != nil {
			c.initErrors["webhookAuthenticator"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["webhookAuthenticator"]; exists {
		return nil, storedErr
	}
	return c.webhookAuthenticator, nil
}

// WebhookHandler returns the handler that acknowledges authenticated webhooks.
func (c *Container) WebhookHandler() *webhookHTTP.ReceiveHandler {
	c.webhookHandlerInit.Do(func() {
		c.webhookHandler = webhookHTTP.NewReceiveHandler(c.Logger())
	})
	return c.webhookHandler
}

// initWebhookAuthenticator creates the authenticator with all its dependencies.
func (c *Container) initWebhookAuthenticator() (webhookService.Authenticator, error) {
	securityConfig, err := c.WebhookSecurityConfig()
	if err != nil {
		return nil, err
	}

	auditSink, err := c.AuditSink()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit sink for webhook authenticator: %w", err)
	}

	baseAuthenticator := webhookService.NewAuthenticator(securityConfig, auditSink, c.Clock(), c.Logger())

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for webhook authenticator: %w", err)
		}
		return webhookService.NewAuthenticatorWithMetrics(baseAuthenticator, businessMetrics), nil
	}

	return baseAuthenticator, nil
}
