package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnalyzers(t *testing.T) {
	checks := analyzers(ConfigData{Staticcheck: []string{"SA4006"}})

	names := make(map[string]bool, len(checks))
	for _, a := range checks {
		names[a.Name] = true
	}

	assert.True(t, names["noosexit"])
	assert.True(t, names["nohttperror"])
	assert.True(t, names["ineffassign"])
	assert.True(t, names["SA4006"])
	assert.False(t, names["SA1019"])
}
