package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoctorCommand_Healthy(t *testing.T) {
	seedHistory(t, 4)

	out, _, err := runCommand(t, NewDoctorCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "# korika doctor")
	assert.Contains(t, out, "## Configuration")
	assert.Contains(t, out, "## Service")
	assert.Contains(t, out, "- **[PASS]** Reachable:")
	assert.Contains(t, out, "## History")
	assert.Contains(t, out, "(schema version 1)")
	assert.Contains(t, out, "- **[PASS]** Batches: 1 stored")
}

func TestDoctorCommand_NoHistory(t *testing.T) {
	setup(t)

	out, _, err := runCommand(t, NewDoctorCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "- **[WARN]** Database: not created yet")
	assert.NotContains(t, out, "Batches")
}

func TestDoctorCommand_ServiceDown(t *testing.T) {
	backend, _ := setup(t)
	backend.Fail("model not loaded")

	out, _, err := runCommand(t, NewDoctorCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 check(s) failed")
	assert.Contains(t, out, "- **[ERROR]** Reachable:")
	assert.Contains(t, out, "model not loaded")
}

func TestDoctorCommand_JSON(t *testing.T) {
	setup(t, "KORIKA_OUTPUT", "json")

	out, _, err := runCommand(t, NewDoctorCommand())
	require.NoError(t, err)

	var got DoctorOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Zero(t, got.IssueCount)
	require.NotEmpty(t, got.Checks)
	assert.Equal(t, "configuration", got.Checks[0].Group)
}
