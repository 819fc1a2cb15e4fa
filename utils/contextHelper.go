package utils

import (
	"context"

	"bitbucket.org/showbooker/booking_backend/appctx"
)

var (
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
	ContextKeyTriggerMode   = appctx.ContextKeyTriggerMode
)

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}

func GetTriggerModeFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyTriggerMode)
}

func SetTriggerModeInContext(ctx context.Context, mode string) context.Context {
	return appctx.Set(ctx, ContextKeyTriggerMode, mode)
}
