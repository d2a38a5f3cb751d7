package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateWorkflowConfig(t *testing.T) {
	assert.NoError(t, validateWorkflowConfig(DefaultWorkflowConfig()))

	assert.Error(t, validateWorkflowConfig(WorkflowConfig{
		WarnAfterDays:     0,
		EscalateAfterDays: 4,
	}))

	assert.Error(t, validateWorkflowConfig(WorkflowConfig{
		WarnAfterDays:     5,
		EscalateAfterDays: 4,
	}))

	// Equal thresholds collapse the warn window but stay valid.
	assert.NoError(t, validateWorkflowConfig(WorkflowConfig{
		WarnAfterDays:     3,
		EscalateAfterDays: 3,
	}))
}

func TestWorkflowConfigHolderSwap(t *testing.T) {
	holder := &WorkflowConfigHolder{}
	holder.current.Store(DefaultWorkflowConfig())

	assert.Equal(t, 2, holder.Get().WarnAfterDays)
	assert.Equal(t, 4, holder.Get().EscalateAfterDays)

	holder.current.Store(WorkflowConfig{WarnAfterDays: 1, EscalateAfterDays: 7})
	assert.Equal(t, 1, holder.Get().WarnAfterDays)
	assert.Equal(t, 7, holder.Get().EscalateAfterDays)
}
