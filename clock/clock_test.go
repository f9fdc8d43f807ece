package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowNonDecreasing(t *testing.T) {
	c := New()
	prev := c.Now()
	for i := 0; i < 1000; i++ {
		cur := c.Now()
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestNowSharedAcrossGoroutines(t *testing.T) {
	c := New()
	var wg sync.WaitGroup
	samples := make([][]Ticks, 4)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				samples[idx] = append(samples[idx], c.Now())
			}
		}(i)
	}
	wg.Wait()

	for _, seq := range samples {
		for i := 1; i < len(seq); i++ {
			assert.GreaterOrEqual(t, seq[i], seq[i-1])
		}
	}
}

func TestNowAdvancesOverTime(t *testing.T) {
	c := New()
	first := c.Now()
	time.Sleep(2 * time.Millisecond)
	second := c.Now()
	assert.Greater(t, second, first)
}
