package archive

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bratomyr/ukur/siri"
)

func TestFileArchiveWritesCompressedJourney(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileArchive(filepath.Join(dir, "messages"))
	require.NoError(t, err)

	journey := &siri.EstimatedVehicleJourney{
		DatedVehicleJourneyRef: "NSB:Journey/801",
		LineRef:                "NSB:Line:L1",
	}
	require.NoError(t, a.WriteJourney(journey))

	entries, err := os.ReadDir(filepath.Join(dir, "messages"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	assert.True(t, strings.HasSuffix(name, ".xml.zst"), "unexpected file name %q", name)
	assert.Contains(t, name, "NSB_Journey_801", "journey ref must be sanitized into the name")

	f, err := os.Open(filepath.Join(dir, "messages", name))
	require.NoError(t, err)
	defer f.Close()
	dec, err := zstd.NewReader(f)
	require.NoError(t, err)
	defer dec.Close()
	data, err := io.ReadAll(dec)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<LineRef>NSB:Line:L1</LineRef>")
}

func TestFileArchiveNamesAreUnique(t *testing.T) {
	dir := t.TempDir()
	a, err := NewFileArchive(dir)
	require.NoError(t, err)

	journey := &siri.EstimatedVehicleJourney{DatedVehicleJourneyRef: "801"}
	require.NoError(t, a.WriteJourney(journey))
	require.NoError(t, a.WriteJourney(journey))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "unknown", safeName(""))
	assert.Equal(t, "NSB_Line_L1", safeName("NSB:Line/L1"))
}

func TestDisabledArchiveIsNoop(t *testing.T) {
	assert.NoError(t, Disabled{}.WriteJourney(&siri.EstimatedVehicleJourney{}))
}
