package version

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

// TestFull checks the long form names the binary, release and API.
func TestFull(t *testing.T) {
	t.Parallel()

	full := Full("orchestra-server")
	require.Contains(t, full, "orchestra-server "+Short())
	require.Contains(t, full, "api "+APIVersion)
}

// TestAttachCobraVersionCommand runs the subcommand in both forms.
func TestAttachCobraVersionCommand(t *testing.T) {
	t.Parallel()

	root := &cobra.Command{Use: "orchestra-ctl"}
	AttachCobraVersionCommand(root)

	var out bytes.Buffer

	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	require.Contains(t, out.String(), "orchestra-ctl "+Short())

	out.Reset()
	root.SetArgs([]string{"version", "--short"})
	require.NoError(t, root.Execute())
	require.Equal(t, Short()+"\n", out.String())
}
