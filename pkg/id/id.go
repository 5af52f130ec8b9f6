package id

import (
	"context"
	"crypto/md5"
	"io"
	"strings"

	"github.com/gofrs/uuid"
)

// New random uuid
func New() string {
	return uuid.Must(uuid.NewV4()).String()
}

// FromString deterministic uuid from text
func FromString(text string) string {
	h := md5.New()
	io.WriteString(h, text)
	sum := h.Sum(nil)
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80
	return uuid.FromBytesOrNil(sum).String()
}

// ByName uuid v5 of name under namespace, namespace must be a valid uuid
func ByName(namespace, name string) string {
	ns, err := uuid.FromString(namespace)
	if err != nil {
		panic(err)
	}

	return uuid.NewV5(ns, name).String()
}

// Reserve stable reserve id for a symbol
func Reserve(symbol string) string {
	return FromString("reserve:" + strings.ToUpper(symbol))
}

// TraceID operation trace id derived from a request id and the records it
// targets, so a retried request maps to the same trace whatever the slot
func TraceID(requestID string, scope ...string) string {
	return ByName(FromString(requestID), strings.Join(scope, ":"))
}

// IsUUID valid uuid string
func IsUUID(s string) bool {
	_, err := uuid.FromString(s)
	return err == nil
}

type requestIDKey struct{}

// WithRequestID attach the caller request id to ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID request id attached to ctx, a new random one if none
func RequestID(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok && v != "" {
		return v
	}

	return New()
}
