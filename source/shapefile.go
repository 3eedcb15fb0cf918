package source

import (
	"context"
	"fmt"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/poiesic/parcelsuggest/core"
)

// ShapefileReader reads parcel pairings from the attribute table of a parcel
// shapefile. Geometry is ignored.
type ShapefileReader struct {
	// Path is the .shp file; the .dbf must sit next to it.
	Path string

	// IDField names the parcel identifier attribute, e.g. "PID".
	IDField string

	// AddressFields are joined with Separator to form the full address,
	// e.g. ["ST_NUM", "ST_NAME", "CITY", "ZIPCODE"]. Empty values are skipped.
	AddressFields []string

	// Separator defaults to a single space.
	Separator string

	// Progress, if set, is called with the number of records read so far.
	Progress func(read int)
}

var _ PairingReader = (*ShapefileReader)(nil)

// ReadPairings reads every record. Records without a parcel ID are skipped.
func (s *ShapefileReader) ReadPairings(ctx context.Context) ([]core.ParcelPairing, error) {
	r, err := shp.Open(s.Path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	idIdx, addrIdx, err := s.resolveFields(r.Fields())
	if err != nil {
		return nil, err
	}

	sep := s.Separator
	if sep == "" {
		sep = " "
	}

	var (
		pairings []core.ParcelPairing
		parts    = make([]string, 0, len(addrIdx))
		read     int
	)
	for r.Next() {
		if read%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, _ := r.Shape()
		read++

		id := strings.TrimSpace(r.ReadAttribute(row, idIdx))
		if id == "" {
			continue
		}

		parts = parts[:0]
		for _, i := range addrIdx {
			if v := strings.TrimSpace(r.ReadAttribute(row, i)); v != "" {
				parts = append(parts, v)
			}
		}
		pairings = append(pairings, core.ParcelPairing{
			ParcelID:    id,
			FullAddress: strings.Join(parts, sep),
		})

		if s.Progress != nil {
			s.Progress(read)
		}
	}
	return pairings, nil
}

// resolveFields maps configured field names to DBF column positions.
// Field names compare case-insensitively.
func (s *ShapefileReader) resolveFields(fields []shp.Field) (int, []int, error) {
	positions := make(map[string]int, len(fields))
	for i, f := range fields {
		positions[strings.ToUpper(strings.TrimSpace(f.String()))] = i
	}

	lookup := func(name string) (int, error) {
		i, ok := positions[strings.ToUpper(name)]
		if !ok {
			return 0, fmt.Errorf("%w: %s in %s", ErrFieldNotFound, name, s.Path)
		}
		return i, nil
	}

	idIdx, err := lookup(s.IDField)
	if err != nil {
		return 0, nil, err
	}
	addrIdx := make([]int, 0, len(s.AddressFields))
	for _, name := range s.AddressFields {
		i, err := lookup(name)
		if err != nil {
			return 0, nil, err
		}
		addrIdx = append(addrIdx, i)
	}
	return idIdx, addrIdx, nil
}
