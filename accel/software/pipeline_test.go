package software

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/akmonengine/tetquery/accel"
)

func TestTask_VisitsEveryItem(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 8, 100} {
		data := make([]int, 37)
		for i := range data {
			data[i] = i
		}

		var visits [37]atomic.Int32
		if err := task(workers, data, func(i int) { visits[i].Add(1) }); err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		for i := range visits {
			if n := visits[i].Load(); n != 1 {
				t.Errorf("workers=%d: item %d visited %d times", workers, i, n)
			}
		}
	}
}

func TestTask_Empty(t *testing.T) {
	called := false
	if err := task(4, []int(nil), func(int) { called = true }); err != nil {
		t.Fatal(err)
	}
	if called {
		t.Error("fn called on empty data")
	}
}

func TestTask_PanicBecomesFailure(t *testing.T) {
	data := make([]int, 100)
	err := task(4, data, func(int) { panic("boom") })
	if !errors.Is(err, accel.ErrAcceleratorFailure) {
		t.Fatalf("err = %v, want ErrAcceleratorFailure", err)
	}
}

func TestTiles(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		count         int
		want          int
	}{
		{"empty", 65536, 0, 0, 0},
		{"one particle", 65536, 1, 1, 1},
		{"partial row", 65536, 1, 5000, 2},
		{"full row", 65536, 1, 65536, 16},
		{"second row", 65536, 2, 70000, 18},
		{"narrow", 3, 4, 10, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tiles(tt.width, tt.height, tt.count)
			if len(got) != tt.want {
				t.Fatalf("len(tiles) = %d, want %d", len(got), tt.want)
			}

			// Every launch index below count is covered exactly once
			covered := 0
			for _, tl := range got {
				if tl.x0 >= tl.x1 || tl.x1 > tt.width || tl.x1-tl.x0 > tileWidth {
					t.Errorf("invalid tile %+v", tl)
				}
				covered += tl.x1 - tl.x0
			}
			if covered < tt.count {
				t.Errorf("tiles cover %d indices, want at least %d", covered, tt.count)
			}
		})
	}
}
