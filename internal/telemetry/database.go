package telemetry

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const (
	spanKey       = "otel:span"
	maxStatement  = 500
	dbSystemValue = "postgresql"
)

// GORMTracingPlugin returns a GORM plugin that opens one span per statement
func GORMTracingPlugin() gorm.Plugin {
	return &tracingPlugin{tracer: otel.Tracer("gorm")}
}

type tracingPlugin struct {
	tracer trace.Tracer
}

func (p *tracingPlugin) Name() string {
	return "telemetry:tracing"
}

func (p *tracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	register := []struct {
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
		op     string
	}{
		{cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "SELECT"},
		{cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "INSERT"},
		{cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "UPDATE"},
		{cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "DELETE"},
		{cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "RAW"},
		{cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "ROW"},
	}
	for _, r := range register {
		op := r.op
		name := strings.ToLower(op)
		if err := r.before("telemetry:before_"+name, func(db *gorm.DB) { p.startSpan(db, op) }); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", name, err)
		}
		if err := r.after("telemetry:after_"+name, p.endSpan); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", name, err)
		}
	}
	return nil
}

func (p *tracingPlugin) startSpan(db *gorm.DB, operation string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}
	_, span := p.tracer.Start(ctx, "db."+strings.ToLower(operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", dbSystemValue),
			attribute.String("db.table", table),
			attribute.String("db.operation", operation),
		),
	)
	db.InstanceSet(spanKey, span)
}

func (p *tracingPlugin) endSpan(db *gorm.DB) {
	raw, ok := db.InstanceGet(spanKey)
	if !ok {
		return
	}
	span, ok := raw.(trace.Span)
	if !ok {
		return
	}
	defer span.End()

	if sql := db.Statement.SQL.String(); sql != "" {
		if len(sql) > maxStatement {
			sql = sql[:maxStatement] + "... (truncated)"
		}
		span.SetAttributes(attribute.String("db.statement", sql))
	}
	if db.RowsAffected > 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.RowsAffected))
	}
	if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
}
