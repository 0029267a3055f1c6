package feather2d

import (
	"sync/atomic"
	"testing"
)

func TestTask_ProcessesEveryItem(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		items   int
	}{
		{"no items", 4, 0},
		{"single worker", 1, 10},
		{"zero workers", 0, 10},
		{"more workers than items", 8, 3},
		{"uneven chunks", 3, 10},
		{"many items", 4, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items := make([]int, tt.items)
			for i := range items {
				items[i] = i
			}
			visits := make([]int32, tt.items)
			var total atomic.Int32

			task(tt.workers, items, func(item int) {
				atomic.AddInt32(&visits[item], 1)
				total.Add(1)
			})

			if int(total.Load()) != tt.items {
				t.Errorf("processed %d items, want %d", total.Load(), tt.items)
			}
			for i, count := range visits {
				if count != 1 {
					t.Errorf("item %d processed %d times", i, count)
				}
			}
		})
	}
}

func TestTask_SingleWorkerKeepsOrder(t *testing.T) {
	var order []int
	task(1, []int{3, 1, 2}, func(item int) {
		order = append(order, item)
	})

	if len(order) != 3 || order[0] != 3 || order[1] != 1 || order[2] != 2 {
		t.Errorf("order = %v, want [3 1 2]", order)
	}
}
