package marketwatch

import (
	"testing"
	"time"
)

func TestTableAppendKeepsOrder(t *testing.T) {
	table := NewTable()
	table.Append(day(2), map[string]Price{"AAA": P(102)})
	table.Append(day(0), map[string]Price{"AAA": P(100)})
	table.Append(day(1), map[string]Price{"AAA": P(101)})

	if table.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", table.Len())
	}
	for i := 0; i < 3; i++ {
		if !table.Stamp(i).Equal(day(i)) {
			t.Errorf("Stamp(%d) = %s, want %s", i, table.Stamp(i), day(i))
		}
		if got := table.price("AAA", i); got.Value().IntPart() != int64(100+i) {
			t.Errorf("price(AAA, %d) = %s, want %d", i, got.Value(), 100+i)
		}
	}
}

func TestTableAppendUpdatesInPlace(t *testing.T) {
	table := NewTable()
	table.Append(day(0), map[string]Price{"AAA": P(100), "BBB": P(200)})
	table.Append(day(0), map[string]Price{"AAA": P(105)})

	if table.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", table.Len())
	}
	if got := table.price("AAA", 0); got.Value().IntPart() != 105 {
		t.Errorf("price(AAA, 0) = %s, want 105", got.Value())
	}
	// The instruments left out of the update keep their point.
	if got := table.price("BBB", 0); got.Value().IntPart() != 200 {
		t.Errorf("price(BBB, 0) = %s, want 200", got.Value())
	}
}

func TestTableAppendPadsColumns(t *testing.T) {
	table := NewTable()
	table.Append(day(0), map[string]Price{"AAA": P(100)})
	// BBB joins one row later: its day(0) point must read as missing.
	table.Append(day(1), map[string]Price{"AAA": P(101), "BBB": P(201)})

	if got := table.price("BBB", 0); got.Valid() {
		t.Errorf("price(BBB, 0) = %s, want missing", got.Value())
	}
	if got := table.price("BBB", 1); !got.Valid() || got.Value().IntPart() != 201 {
		t.Errorf("price(BBB, 1) = %v %s, want 201", got.Valid(), got.Value())
	}
	// And AAA reads as missing on a row where only BBB trades.
	table.Append(day(2), map[string]Price{"BBB": P(202)})
	if got := table.price("AAA", 2); got.Valid() {
		t.Errorf("price(AAA, 2) = %s, want missing", got.Value())
	}
}

func TestTableAppendNormalizesUTC(t *testing.T) {
	paris := time.FixedZone("CET", 3600)
	table := NewTable()
	table.Append(day(0).In(paris), map[string]Price{"AAA": P(100)})

	if loc := table.Stamp(0).Location(); loc != time.UTC {
		t.Errorf("Stamp(0) location = %v, want UTC", loc)
	}
	if !table.Stamp(0).Equal(day(0)) {
		t.Errorf("Stamp(0) = %s, want %s", table.Stamp(0), day(0))
	}
}

func TestTableInstruments(t *testing.T) {
	table := NewTable()
	table.Append(day(0), map[string]Price{"ZZZ": P(1), "AAA": P(2), "MMM": P(3)})

	got := table.Instruments()
	want := []string{"AAA", "MMM", "ZZZ"}
	if len(got) != len(want) {
		t.Fatalf("Instruments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Instruments() = %v, want %v", got, want)
		}
	}
}

func TestTableCloneIsIndependent(t *testing.T) {
	table := tableOf("AAA", P(100), P(101))
	clone := table.Clone()

	clone.Append(day(2), map[string]Price{"AAA": P(999), "BBB": P(1)})

	if table.Len() != 2 {
		t.Errorf("source Len() = %d after mutating the clone, want 2", table.Len())
	}
	if table.Has("BBB") {
		t.Error("source gained an instrument through its clone")
	}
}
