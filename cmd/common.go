package cmd

import (
	"strconv"

	"github.com/Michael-A-Kuykendall/capturecore/queue"
)

func parseQueuePolicy(name string) queue.Policy {
	if name == "queue_n" {
		return queue.QueueN
	}
	return queue.DropOldest
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
