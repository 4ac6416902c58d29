package filestore

import (
	"fmt"
	"io"

	"github.com/VictoriaMetrics/metrics"
)

// channelMetrics holds the per-kind counters exported by the channel.
type channelMetrics struct {
	reads          *metrics.Counter
	writes         *metrics.Counter
	deletes        *metrics.Counter
	heals          *metrics.Counter
	decryptFailed  *metrics.Counter
	ioFailed       *metrics.Counter
	encryptedWrite *metrics.Counter
}

func newChannelMetrics(kind string) channelMetrics {
	c := func(name string) *metrics.Counter {
		return metrics.GetOrCreateCounter(fmt.Sprintf(`devstash_store_%s_total{kind=%q}`, name, kind))
	}
	return channelMetrics{
		reads:          c("reads"),
		writes:         c("writes"),
		deletes:        c("deletes"),
		heals:          c("heals"),
		decryptFailed:  c("decrypt_failures"),
		ioFailed:       c("io_failures"),
		encryptedWrite: c("encrypted_writes"),
	}
}

// WriteMetrics writes every store counter in Prometheus text format.
func WriteMetrics(w io.Writer) {
	metrics.WritePrometheus(w, false)
}
