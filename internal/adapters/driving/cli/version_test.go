package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd_Metadata(t *testing.T) {
	assert.Equal(t, "version", versionCmd.Use)
	assert.Equal(t, "Print the version number", versionCmd.Short)
	assert.NotEmpty(t, versionCmd.Annotations[annotationNoServices])
}

func TestVersionCmd_Executes(t *testing.T) {
	for _, v := range []string{"dev", "v1.4.0"} {
		t.Run(v, func(t *testing.T) {
			originalVersion := version
			version = v
			defer func() { version = originalVersion }()

			out, err := executeCommand(t, "version")
			require.NoError(t, err)
			assert.Contains(t, out, "coursedex version "+v)
		})
	}
}

func TestVersionCmd_DoesNotBuildServices(t *testing.T) {
	built := false
	SetBuilder(func(_ context.Context, _ string) (*Services, error) {
		built = true
		return &Services{}, nil
	})
	defer SetBuilder(nil)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"version"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.False(t, built)
}
