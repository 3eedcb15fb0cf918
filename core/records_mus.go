package core

import (
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
)

// ParcelPairingMUS serializes ParcelPairing in MUS format.
var ParcelPairingMUS = parcelPairingMUS{}

// CachedPairingSetMUS serializes CachedPairingSet in MUS format.
// Timestamps are stored as UTC unix microseconds.
var CachedPairingSetMUS = cachedPairingSetMUS{}

type parcelPairingMUS struct{}

func (s parcelPairingMUS) Marshal(v ParcelPairing, bs []byte) (n int) {
	n = ord.String.Marshal(v.ParcelID, bs)
	n += ord.String.Marshal(v.FullAddress, bs[n:])
	return
}

func (s parcelPairingMUS) Unmarshal(bs []byte) (v ParcelPairing, n int, err error) {
	v.ParcelID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var n1 int
	v.FullAddress, n1, err = ord.String.Unmarshal(bs[n:])
	n += n1
	return
}

func (s parcelPairingMUS) Size(v ParcelPairing) (size int) {
	size = ord.String.Size(v.ParcelID)
	return size + ord.String.Size(v.FullAddress)
}

func (s parcelPairingMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}

type cachedPairingSetMUS struct{}

func (s cachedPairingSetMUS) Marshal(v CachedPairingSet, bs []byte) (n int) {
	n = ord.String.Marshal(v.ID, bs)
	n += varint.Int.Marshal(len(v.Pairings), bs[n:])
	for _, p := range v.Pairings {
		n += ParcelPairingMUS.Marshal(p, bs[n:])
	}
	n += varint.Int64.Marshal(v.Timestamp.UnixMicro(), bs[n:])
	n += varint.Int.Marshal(v.Year, bs[n:])
	return
}

func (s cachedPairingSetMUS) Unmarshal(bs []byte) (v CachedPairingSet, n int, err error) {
	v.ID, n, err = ord.String.Unmarshal(bs)
	if err != nil {
		return
	}
	var (
		n1     int
		length int
	)
	length, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	if length < 0 || length > len(bs)-n {
		// Every pairing takes at least two bytes, so a longer count is corrupt.
		err = ErrInvalidPairingSet
		return
	}
	v.Pairings = make([]ParcelPairing, length)
	for i := range v.Pairings {
		v.Pairings[i], n1, err = ParcelPairingMUS.Unmarshal(bs[n:])
		n += n1
		if err != nil {
			return
		}
	}
	var micros int64
	micros, n1, err = varint.Int64.Unmarshal(bs[n:])
	n += n1
	if err != nil {
		return
	}
	v.Timestamp = time.UnixMicro(micros).UTC()
	v.Year, n1, err = varint.Int.Unmarshal(bs[n:])
	n += n1
	return
}

func (s cachedPairingSetMUS) Size(v CachedPairingSet) (size int) {
	size = ord.String.Size(v.ID)
	size += varint.Int.Size(len(v.Pairings))
	for _, p := range v.Pairings {
		size += ParcelPairingMUS.Size(p)
	}
	size += varint.Int64.Size(v.Timestamp.UnixMicro())
	return size + varint.Int.Size(v.Year)
}

func (s cachedPairingSetMUS) Skip(bs []byte) (n int, err error) {
	_, n, err = s.Unmarshal(bs)
	return
}
