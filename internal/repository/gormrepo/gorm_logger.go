package gormrepo

import (
	"fmt"
	"strings"
	"time"

	gorm_logger "gorm.io/gorm/logger"

	"github.com/openihd/feedmart/internal/support/logger"
)

// NewGormLogger creates a gorm logger that redirects output into the
// service logger. SQL statements are demoted to DEBUG.
func NewGormLogger() gorm_logger.Interface {
	return gorm_logger.New(
		&gormWriter{},
		gorm_logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gorm_logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// gormWriter adapts gorm's log writer to the service logger.
type gormWriter struct{}

// Printf implements gorm_logger.Writer.
func (w *gormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if strings.Contains(msg, "SELECT") || strings.Contains(msg, "INSERT") ||
		strings.Contains(msg, "UPDATE") || strings.Contains(msg, "DELETE") {
		logger.Debugf("[GORM] %s", msg)
	} else {
		logger.Infof("[GORM] %s", msg)
	}
}
