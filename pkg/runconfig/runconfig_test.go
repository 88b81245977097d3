package runconfig_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trifab/trifab/pkg/apperr"
	"github.com/trifab/trifab/pkg/runconfig"
)

func validConfig() runconfig.EstimatorConfig {
	cfg := runconfig.Default()
	cfg.Colors = 3
	cfg.SampleSize = 1024
	cfg.UpdateFiles = []string{"graph.mtx"}
	return cfg
}

func TestValidate_DefaultPlusRequiredFieldsPasses(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_RejectsZeroColors(t *testing.T) {
	cfg := validConfig()
	cfg.Colors = 0
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Equal(t, apperr.CodeArgument, apperr.CodeOf(err))
}

func TestValidate_RejectsSampleSizeAboveMax(t *testing.T) {
	cfg := validConfig()
	cfg.SampleSize = runconfig.MaxSampleSize + 1
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Equal(t, apperr.CodeCapacity, apperr.CodeOf(err))
}

func TestValidate_RejectsPOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.P = 1.5
	assert.Error(t, cfg.Validate())

	cfg.P = -0.1
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsTopTAboveMisraGriesK(t *testing.T) {
	cfg := validConfig()
	cfg.MisraGriesK = 4
	cfg.TopT = 5
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Equal(t, apperr.CodeArgument, apperr.CodeOf(err))
}

func TestValidate_IgnoresTopTWhenHeavyHittersDisabled(t *testing.T) {
	cfg := validConfig()
	cfg.MisraGriesK = 0
	cfg.TopT = 999
	assert.NoError(t, cfg.Validate())
}

func TestValidate_RequiresAtLeastOneUpdateFile(t *testing.T) {
	cfg := validConfig()
	cfg.UpdateFiles = nil
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Equal(t, apperr.CodeArgument, apperr.CodeOf(err))
}

func TestValidate_RejectsTooManyTripletsForMaxAccelerators(t *testing.T) {
	cfg := validConfig()
	cfg.Colors = 20 // binom(22,3) = 1540
	cfg.MaxAccelerators = 10
	err := cfg.Validate()
	assert.Error(t, err)
	assert.Equal(t, apperr.CodeCapacity, apperr.CodeOf(err))
}

func TestDefault_SampleSizeSentinelMeansCallerResolves(t *testing.T) {
	cfg := runconfig.Default()
	assert.Equal(t, -1, cfg.SampleSize)
}
