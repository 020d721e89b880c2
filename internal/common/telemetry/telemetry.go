// File path: internal/common/telemetry/telemetry.go

// Package telemetry publishes lightweight service counters over expvar and
// offers span-style debug tracing through the shared logger.
package telemetry

import (
	"context"
	"expvar"
	"strings"
	"sync"
	"time"

	"github.com/harborlend/loanbridge/internal/common"
)

type spanKey struct{}

type span struct {
	name  string
	start time.Time
}

var (
	initOnce sync.Once

	chatTurnTotal     *expvar.Int
	chatTurnLatencyMS *expvar.Int

	submissionTotal  *expvar.Int
	submissionFailed *expvar.Int

	uploadAccepted *expvar.Int
	uploadRejected *expvar.Int

	oracleTotal     *expvar.Map
	oracleLatencyMS *expvar.Map
)

func ensureInit() {
	initOnce.Do(func() {
		chatTurnTotal = expvar.NewInt("loanbridge_chat_turns_total")
		chatTurnLatencyMS = expvar.NewInt("loanbridge_chat_turn_latency_ms")

		submissionTotal = expvar.NewInt("loanbridge_submissions_total")
		submissionFailed = expvar.NewInt("loanbridge_submissions_failed")

		uploadAccepted = expvar.NewInt("loanbridge_uploads_accepted")
		uploadRejected = expvar.NewInt("loanbridge_uploads_rejected")

		oracleTotal = expvar.NewMap("loanbridge_oracle_total")
		oracleLatencyMS = expvar.NewMap("loanbridge_oracle_latency_ms")
	})
}

// StartSpan opens a debug trace span; the returned func closes it and logs
// the duration with any extra attributes.
func StartSpan(ctx context.Context, name string) (context.Context, func(attrs ...interface{})) {
	ensureInit()
	sp := &span{name: name, start: time.Now()}
	ctx = context.WithValue(ctx, spanKey{}, sp)
	logger := common.Logger()
	logger.Debug("trace: start", "span", name)
	return ctx, func(attrs ...interface{}) {
		if sp == nil {
			return
		}
		duration := time.Since(sp.start)
		logger.Debug("trace: end", append([]interface{}{"span", name, "dur", duration}, attrs...)...)
	}
}

// RecordTurn counts one processed conversational turn.
func RecordTurn(duration time.Duration) {
	ensureInit()
	chatTurnTotal.Add(1)
	if duration > 0 {
		chatTurnLatencyMS.Add(duration.Milliseconds())
	}
}

// RecordSubmission counts one submission attempt by outcome.
func RecordSubmission(ok bool) {
	ensureInit()
	submissionTotal.Add(1)
	if !ok {
		submissionFailed.Add(1)
	}
}

// RecordUpload counts one upload decision.
func RecordUpload(accepted bool) {
	ensureInit()
	if accepted {
		uploadAccepted.Add(1)
	} else {
		uploadRejected.Add(1)
	}
}

// RecordOracle counts one free-form answer routed by kind ("rates",
// "programs", "model").
func RecordOracle(kind string, duration time.Duration) {
	ensureInit()
	key := strings.TrimSpace(strings.ToLower(kind))
	if key == "" {
		key = "unknown"
	}
	oracleTotal.Add(key, 1)
	if duration > 0 {
		oracleLatencyMS.Add(key, duration.Milliseconds())
	}
}

// SpanDuration reports how long the span carried by ctx has been open.
func SpanDuration(ctx context.Context) time.Duration {
	sp, _ := ctx.Value(spanKey{}).(*span)
	if sp == nil {
		return 0
	}
	return time.Since(sp.start)
}
