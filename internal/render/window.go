package render

import (
	"math"
	"sort"
)

// Viewport describes the scroll position of the message list.
type Viewport struct {
	ScrollTop float64 `json:"scrollTop"`
	Height    float64 `json:"height"`
	// ItemHeight is the estimated height of a message, used when Heights
	// does not cover every message.
	ItemHeight float64   `json:"itemHeight"`
	Heights    []float64 `json:"heights,omitempty"`
	Overscan   int       `json:"overscan"`
}

// VisibleRange returns the half-open range [start, end) of messages that
// intersect the viewport, widened by Overscan on each side. An unusable
// viewport materializes everything.
func VisibleRange(total int, v Viewport) (start, end int) {
	if total <= 0 {
		return 0, 0
	}
	if v.Height <= 0 {
		return 0, total
	}

	top := math.Max(v.ScrollTop, 0)
	bottom := top + v.Height

	if len(v.Heights) == total {
		// offsets[i] is the top of message i; offsets[total] is the list height.
		offsets := make([]float64, total+1)
		for i, h := range v.Heights {
			offsets[i+1] = offsets[i] + math.Max(h, 0)
		}
		start = sort.Search(total, func(i int) bool { return offsets[i+1] > top })
		end = sort.Search(total, func(i int) bool { return offsets[i] >= bottom })
	} else {
		if v.ItemHeight <= 0 {
			return 0, total
		}
		start = int(math.Floor(top / v.ItemHeight))
		end = int(math.Ceil(bottom / v.ItemHeight))
	}

	start -= v.Overscan
	end += v.Overscan
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return start, end
}
