package software

import (
	"fmt"
	"sync"

	"github.com/akmonengine/tetquery/accel"
)

// tileWidth is the number of launch indices of one row handled by one call.
const tileWidth = 4096

// tile is a horizontal run [x0, x1) of launch row y.
type tile struct {
	y, x0, x1 int
}

// task splits data into one contiguous chunk per worker and waits for all of
// them. A panic in fn aborts the batch: the first one is returned as an
// accelerator failure once every worker has stopped.
func task[T any](workersCount int, data []T, fn func(data T)) error {
	var wg sync.WaitGroup
	var once sync.Once
	var fault error

	dataSize := len(data)
	workersCount = max(1, min(workersCount, dataSize))
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					once.Do(func() {
						fault = fmt.Errorf("%w: kernel fault: %v", accel.ErrAcceleratorFailure, r)
					})
				}
			}()

			for i := start; i < end; i++ {
				fn(data[i])
			}
		}(workerID*chunkSize, min((workerID+1)*chunkSize, dataSize))
	}
	wg.Wait()

	return fault
}

// tiles cuts a width x height launch into tiles, dropping the ones whose first
// launch index is already past count.
func tiles(width, height, count int) []tile {
	out := make([]tile, 0, height*((width+tileWidth-1)/tileWidth))
	for y := 0; y < height; y++ {
		for x0 := 0; x0 < width; x0 += tileWidth {
			if y*width+x0 >= count {
				return out
			}
			out = append(out, tile{y: y, x0: x0, x1: min(x0+tileWidth, width)})
		}
	}
	return out
}
