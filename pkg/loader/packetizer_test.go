package loader

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeHexFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.hex")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestPacketizeIntelHexFileSinglePacket(t *testing.T) {
	path := writeHexFile(t, ":04000000DEADBEEF9A\n:00000001FF\n")

	packets, err := PacketizeIntelHexFile(path, 4096)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	require.EqualValues(t, 2, packets[0].RecordCount)
	require.Equal(t, "04000000DEADBEEF9A\n00000001FF\n", string(packets[0].Body))
}

func TestPacketizeIntelHexFileSplitsOnSize(t *testing.T) {
	path := writeHexFile(t, ":04000000DEADBEEF9A\n:04000400C0FFEE0012\n:00000001FF\n")

	packets, err := PacketizeIntelHexFile(path, 20)
	require.NoError(t, err)
	require.Len(t, packets, 3, "one record per packet at this size cap")
	for i, p := range packets {
		require.EqualValuesf(t, 1, p.RecordCount, "packets[%d].RecordCount", i)
	}
}

func TestPacketizeIntelHexFileRejectsMissingColon(t *testing.T) {
	path := writeHexFile(t, "04000000DEADBEEF9A\n")

	_, err := PacketizeIntelHexFile(path, 4096)
	require.Error(t, err)
}
