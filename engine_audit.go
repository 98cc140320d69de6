package goAuthz

import (
	"context"
	"errors"

	internalaudit "github.com/MrEthical07/goAuthz/internal/audit"
	"github.com/google/uuid"
)

const (
	auditEventAuthorizeAllowed = internalaudit.TypeAuthorizeAllowed
	auditEventAuthorizeDenied  = internalaudit.TypeAuthorizeDenied
	auditEventAuthorizeFault   = internalaudit.TypeAuthorizeFault
	auditEventTokenRefreshed   = internalaudit.TypeTokenRefreshed
)

// AuditErrorCode is the stable error label written to audit events.
type AuditErrorCode string

const (
	auditErrUnauthorized    AuditErrorCode = "unauthorized"
	auditErrNotAcceptable   AuditErrorCode = "not_acceptable"
	auditErrForbidden       AuditErrorCode = "forbidden"
	auditErrUnknownResolver AuditErrorCode = "unknown_resolver"
	auditErrUnknownRole     AuditErrorCode = "unknown_role"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	req Request,
	identity Identity,
	role RoleType,
	err error,
) {
	if e == nil || e.audit == nil {
		return
	}

	if role == "" {
		role = identity.Role
	}
	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    identity.ID,
		Role:      string(role),
		Method:    req.Method,
		Path:      req.Path,
		Success:   success,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return auditErrUnauthorized
	case errors.Is(err, ErrNotAcceptable):
		return auditErrNotAcceptable
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrUnknownResolver):
		return auditErrUnknownResolver
	case errors.Is(err, ErrUnknownRole):
		return auditErrUnknownRole
	default:
		return auditErrInternal
	}
}
