// Package common holds small helpers shared across the catalog packages.
package common

import (
	"errors"

	"github.com/thucvatbm/species-catalog/logger"
)

// Combine joins the non-nil errors, returning nil when all of them are nil.
func Combine(errs ...error) error {
	return errors.Join(errs...)
}

// Recover must be deferred directly. It stops a panic and logs it under msg.
func Recover(msg string) any {
	panicErr := recover()
	if panicErr != nil {
		if msg != "" {
			logger.Error(msg, "panic:", panicErr)
		}
	}
	return panicErr
}
