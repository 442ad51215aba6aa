package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/patric-chuzhbe/usersapi/internal/logger"
)

func TestRunReportsConfigErrorBeforeLoggerInit(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")

	err := run()

	assert.Error(t, err)
	assert.False(t, logger.Initialized())
}
