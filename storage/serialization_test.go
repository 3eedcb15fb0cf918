package storage

import (
	"testing"
	"time"

	"github.com/poiesic/parcelsuggest/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairingSetSerialization(t *testing.T) {
	set := core.NewCachedPairingSet([]core.ParcelPairing{
		{ParcelID: "1234567890", FullAddress: "123 Main St, Boston, MA 02108"},
		{ParcelID: "2222222222", FullAddress: "22 Beacon St, Boston, MA 02108"},
	}, time.Date(2025, time.May, 5, 8, 0, 0, 0, time.UTC))

	data := MarshalPairingSet(set)
	assert.Equal(t, RecordVersion, data[0])

	got, err := UnmarshalPairingSet(data)
	require.NoError(t, err)
	assert.Equal(t, set.Pairings, got.Pairings)
	assert.Equal(t, 2025, got.Year)
	assert.Equal(t, core.CurrentRecordID, got.ID)
}

func TestUnmarshalPairingSetErrors(t *testing.T) {
	set := core.NewCachedPairingSet([]core.ParcelPairing{{ParcelID: "1", FullAddress: "x"}}, time.Now())
	data := MarshalPairingSet(set)

	_, err := UnmarshalPairingSet(nil)
	assert.ErrorIs(t, err, ErrSerializationFailed)

	bad := append([]byte{}, data...)
	bad[0] = 9
	_, err = UnmarshalPairingSet(bad)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = UnmarshalPairingSet(data[:3])
	assert.ErrorIs(t, err, ErrSerializationFailed)
}
