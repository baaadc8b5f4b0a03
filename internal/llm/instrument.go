package llm

import (
	"context"
	"time"

	"github.com/Kerhoff/liora/internal/metrics"
)

type instrumented struct {
	next     Completer
	provider string
	metrics  *metrics.Metrics
}

// Instrument wraps c so every call records its latency and failures under
// the given provider label.
func Instrument(c Completer, provider string, m *metrics.Metrics) Completer {
	if m == nil {
		return c
	}
	return &instrumented{next: c, provider: provider, metrics: m}
}

func (i *instrumented) Complete(ctx context.Context, prompt, systemInstruction string, attachments []Attachment) (string, error) {
	start := time.Now()
	text, err := i.next.Complete(ctx, prompt, systemInstruction, attachments)
	i.metrics.CompletionDuration.WithLabelValues(i.provider).Observe(time.Since(start).Seconds())
	if err != nil {
		i.metrics.CompletionFailures.WithLabelValues(i.provider).Inc()
	}
	return text, err
}
