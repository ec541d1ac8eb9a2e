package metrics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

const startKey = "metrics:start"

// GORMPlugin times every statement into DatabaseQueryDuration and counts it
// in DatabaseQueriesTotal, labelled by operation and table
func GORMPlugin() gorm.Plugin {
	return &queryPlugin{}
}

type queryPlugin struct{}

func (p *queryPlugin) Name() string {
	return "metrics:queries"
}

func (p *queryPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	register := []struct {
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
		op     string
	}{
		{cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register, "select"},
		{cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register, "insert"},
		{cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register, "update"},
		{cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register, "delete"},
		{cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register, "raw"},
		{cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register, "row"},
	}
	for _, r := range register {
		op := r.op
		if err := r.before("metrics:before_"+op, start); err != nil {
			return fmt.Errorf("failed to register before_%s callback: %w", op, err)
		}
		if err := r.after("metrics:after_"+op, func(db *gorm.DB) { observe(db, op) }); err != nil {
			return fmt.Errorf("failed to register after_%s callback: %w", op, err)
		}
	}
	return nil
}

func start(db *gorm.DB) {
	db.InstanceSet(startKey, time.Now())
}

func observe(db *gorm.DB, op string) {
	raw, ok := db.InstanceGet(startKey)
	if !ok {
		return
	}
	began, ok := raw.(time.Time)
	if !ok {
		return
	}

	table := db.Statement.Table
	if table == "" {
		table = "unknown"
	}
	err := db.Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}
	RecordDatabaseQuery(op, strings.ToLower(table), time.Since(began), err)
}
