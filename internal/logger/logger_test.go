package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		env, level string
		wantErr    bool
	}{
		{env: "prod"},
		{env: "local", level: "debug"},
		{env: "test", level: "warn"},
		{env: "staging", wantErr: true},
		{env: "dev", level: "loud", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.env+"/"+tt.level, func(t *testing.T) {
			l, err := NewLogger(tt.env, tt.level)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if l != nil {
				_ = l.Sync()
			}
		})
	}
}

func TestFromContextOr(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	reqLogger := zap.New(core)
	fallbackCore, fallbackLogs := observer.New(zap.InfoLevel)
	fallback := zap.New(fallbackCore)

	FromContextOr(context.Background(), fallback).Info("no request logger")
	if fallbackLogs.Len() != 1 {
		t.Errorf("fallback should receive the entry, got %d", fallbackLogs.Len())
	}

	ctx := ContextWithLogger(context.Background(), reqLogger)
	FromContextOr(ctx, fallback).Info("with request logger")
	if logs.Len() != 1 || fallbackLogs.Len() != 1 {
		t.Errorf("request logger should win: req=%d fallback=%d", logs.Len(), fallbackLogs.Len())
	}

	if FromContextOr(context.Background(), nil) == nil {
		t.Error("nil fallback must yield a usable logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext must never return nil")
	}
}
