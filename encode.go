package marketwatch

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// This file contains the snapshot codec: a versioned, schema-stable JSON
// serialization of a Table plus its fetch timestamp. The format only has
// to round-trip within this implementation; it is not a wire contract.
// Missing prices serialize as JSON null, never as zero.

const snapshotVersion = 1

// to persist a snapshot, we use dedicated local structs with tag annotations.

type jsnapshot struct {
	Version     int       `json:"version"`
	FetchedAt   time.Time `json:"fetched_at"`
	Instruments []string  `json:"instruments"`
	Rows        []jrow    `json:"rows"`
}

type jrow struct {
	On    time.Time                   `json:"on"`
	Close map[string]*decimal.Decimal `json:"close"`
}

// encodeSnapshot writes the versioned JSON form of a snapshot.
func encodeSnapshot(w io.Writer, snap *Snapshot) error {
	js := jsnapshot{
		Version:     snapshotVersion,
		FetchedAt:   snap.FetchedAt.UTC(),
		Instruments: snap.Table.Instruments(),
		Rows:        make([]jrow, 0, snap.Table.Len()),
	}
	for i := 0; i < snap.Table.Len(); i++ {
		row := jrow{On: snap.Table.Stamp(i), Close: make(map[string]*decimal.Decimal, len(js.Instruments))}
		for _, instrument := range js.Instruments {
			if p := snap.Table.price(instrument, i); p.valid {
				value := p.value
				row.Close[instrument] = &value
			} else {
				row.Close[instrument] = nil
			}
		}
		js.Rows = append(js.Rows, row)
	}
	return json.NewEncoder(w).Encode(js)
}

// decodeSnapshot reads a snapshot back, rejecting unknown versions.
func decodeSnapshot(r io.Reader) (*Snapshot, error) {
	var js jsnapshot
	if err := json.NewDecoder(r).Decode(&js); err != nil {
		return nil, fmt.Errorf("corrupt snapshot: %w", err)
	}
	if js.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d, want %d", js.Version, snapshotVersion)
	}
	table := NewTable()
	for _, instrument := range js.Instruments {
		table.columns[instrument] = make([]Price, 0, len(js.Rows))
	}
	for _, row := range js.Rows {
		close := make(map[string]Price, len(row.Close))
		for instrument, value := range row.Close {
			if value != nil {
				close[instrument] = P(*value)
			} else {
				close[instrument] = Missing()
			}
		}
		table.Append(row.On, close)
	}
	return &Snapshot{Table: table, FetchedAt: js.FetchedAt}, nil
}
