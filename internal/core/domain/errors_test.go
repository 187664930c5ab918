package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/buildrules/internal/core/domain"
	"go.trai.ch/zerr"
)

func TestConfigurationErrorClass(t *testing.T) {
	// Structural and reference violations all match the configuration
	// sentinel, so callers can test the class with a single errors.Is.
	for _, err := range []error{
		domain.ErrDuplicateRule,
		domain.ErrMissingDependency,
		domain.ErrUnknownTarget,
		domain.ErrCycleDetected,
	} {
		assert.ErrorIs(t, err, domain.ErrConfiguration, err.Error())
	}
}

func TestSentinelSurvivesMetadata(t *testing.T) {
	// Attaching metadata must not detach the sentinel from the chain;
	// zerr.With on a bare sentinel copies it, so call sites wrap first.
	err := zerr.With(
		zerr.Wrap(domain.ErrTargetUnavailable, "failed to reach build tool"),
		"target", "t1",
	)
	err = zerr.With(err, "exec_error", "connection refused")

	require.ErrorIs(t, err, domain.ErrTargetUnavailable)
	assert.Contains(t, err.Error(), "target unavailable")
}
