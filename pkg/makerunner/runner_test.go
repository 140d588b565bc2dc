package makerunner

import (
	"bytes"
	"context"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/titanic-mlops/titanic-survival/pkg/logging"
)

func TestRunPassesTarget(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{Command: "echo", Stdout: &out, Logger: logging.Discard()}

	require.NoError(t, r.Run(context.Background(), "train"))
	assert.Equal(t, "train\n", out.String())
}

func TestRunReportsFailure(t *testing.T) {
	r := &Runner{Command: "false", Logger: logging.Discard()}

	err := r.Run(context.Background(), "test")
	require.Error(t, err)
	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
	assert.Contains(t, err.Error(), `"test"`)
}

func TestRunMissingCommand(t *testing.T) {
	r := &Runner{Command: "definitely-not-a-command-xyz", Logger: logging.Discard()}
	assert.Error(t, r.Run(context.Background(), "train"))
}
