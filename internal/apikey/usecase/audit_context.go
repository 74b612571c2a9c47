package usecase

import "context"

type auditContextKey struct{}

type auditContext struct {
	actor     string
	requestID string
}

// WithAuditContext attaches the acting principal and request id to ctx so
// audit events emitted further down carry them.
func WithAuditContext(ctx context.Context, actor, requestID string) context.Context {
	return context.WithValue(ctx, auditContextKey{}, auditContext{actor: actor, requestID: requestID})
}

func auditContextFrom(ctx context.Context) auditContext {
	if ac, ok := ctx.Value(auditContextKey{}).(auditContext); ok {
		return ac
	}
	return auditContext{actor: "system"}
}
