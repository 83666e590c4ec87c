package errprocess

import (
	"fmt"

	"service_marketplace/pkg/logger"

	"go.uber.org/zap"
)

// Set log err info and wrap it with kind, so callers can still errors.Is(err, kind)
func Set(kind error, errMsg string, fields ...zap.Field) error {
	logger.Log.Error(errMsg, append(fields, zap.String("kind", kind.Error()))...)
	return fmt.Errorf("%w: %s", kind, errMsg)
}

// Wrap attach kind to a lower layer error without logging it
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", kind, err)
}
