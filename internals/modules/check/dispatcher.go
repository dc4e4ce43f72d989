package check

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"

	"pulsewatch/internals/modules/monitor"
	"pulsewatch/pkg/apperror"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Dispatcher routes a monitor snapshot to the executor for its type and
// owns the per-type config validation that gates a monitor's activation.
type Dispatcher struct {
	executors map[monitor.Type]Executor
	fallback  Executor
	validate  *validator.Validate
	logger    *zerolog.Logger

	fallbackHits atomic.Int64
}

type Executor interface {
	Execute(ctx context.Context, snap monitor.Snapshot) Result
}

func NewDispatcher(client *http.Client, logger *zerolog.Logger) *Dispatcher {
	httpExec := NewHTTPExecutor(client, logger)

	return &Dispatcher{
		executors: map[monitor.Type]Executor{
			monitor.TypeHTTP:      httpExec,
			monitor.TypeKeyword:   httpExec,
			monitor.TypePort:      NewPortExecutor(),
			monitor.TypeDNS:       NewDNSExecutor(),
			monitor.TypePing:      NewPingExecutor(),
			monitor.TypeHeartbeat: NewHeartbeatExecutor(),
			monitor.TypeCronjob:   NewCronjobExecutor(),
		},
		fallback: httpExec,
		validate: validator.New(),
		logger:   logger,
	}
}

func (d *Dispatcher) Execute(ctx context.Context, snap monitor.Snapshot) Result {
	exec, ok := d.executors[snap.Type]
	if !ok {
		// backward compatible behavior for types added by newer writers:
		// probe as plain HTTP, but loudly
		count := d.fallbackHits.Add(1)
		d.logger.Warn().
			Str("monitor_id", snap.ID.String()).
			Str("type", string(snap.Type)).
			Int64("fallback_count", count).
			Msg("unknown monitor type, falling back to http executor")
		exec = d.fallback
	}

	return exec.Execute(ctx, snap)
}

// FallbackCount reports how many checks ran through the unknown-type
// HTTP fallback since startup.
func (d *Dispatcher) FallbackCount() int64 {
	return d.fallbackHits.Load()
}

// ValidateConfig rejects a snapshot whose config cannot be executed for
// its type. A monitor must pass this before it is scheduled.
func (d *Dispatcher) ValidateConfig(snap monitor.Snapshot) error {
	const op string = "check.dispatcher.validate_config"

	if snap.IntervalSec < monitor.MinIntervalSec {
		return invalid(op, fmt.Sprintf("interval must be at least %d seconds", monitor.MinIntervalSec))
	}
	if snap.TimeoutMS >= snap.IntervalSec*1000 {
		return invalid(op, "timeout must be shorter than the check interval")
	}

	switch snap.Type {
	case monitor.TypeHTTP:
		if err := d.validate.Var(snap.Target, "required,url"); err != nil {
			return invalid(op, "http monitor requires a valid target url")
		}

	case monitor.TypeKeyword:
		if err := d.validate.Var(snap.Target, "required,url"); err != nil {
			return invalid(op, "keyword monitor requires a valid target url")
		}
		if snap.Keyword == "" {
			return invalid(op, "keyword monitor requires a keyword")
		}
		if err := d.validate.Var(snap.KeywordMode, "omitempty,oneof=contains not_contains"); err != nil {
			return invalid(op, "keyword mode must be contains or not_contains")
		}

	case monitor.TypePort:
		if snap.Target == "" {
			return invalid(op, "port monitor requires a target host")
		}
		if err := d.validate.Var(snap.Port, "min=1,max=65535"); err != nil {
			return invalid(op, "port must be between 1 and 65535")
		}
		if err := d.validate.Var(snap.Protocol, "omitempty,oneof=tcp udp"); err != nil {
			return invalid(op, "protocol must be tcp or udp")
		}

	case monitor.TypeDNS:
		if snap.Target == "" {
			return invalid(op, "dns monitor requires a target domain")
		}
		rt := strings.ToUpper(snap.RecordType)
		if err := d.validate.Var(rt, "omitempty,oneof=A AAAA CNAME MX TXT NS SOA"); err != nil {
			return invalid(op, fmt.Sprintf("unsupported DNS record type %q", snap.RecordType))
		}

	case monitor.TypePing:
		if snap.Target == "" {
			return invalid(op, "ping monitor requires a target host")
		}

	case monitor.TypeHeartbeat:
		if snap.HeartbeatIntervalSec < 1 {
			return invalid(op, "heartbeat monitor requires an expected interval")
		}

	case monitor.TypeCronjob:
		if _, err := cron.ParseStandard(snap.CronExpr); err != nil {
			return invalid(op, fmt.Sprintf("cron expression %q does not parse", snap.CronExpr))
		}

	default:
		// unknown types execute through the http fallback, so hold them
		// to the same bar
		if err := d.validate.Var(snap.Target, "required,url"); err != nil {
			return invalid(op, fmt.Sprintf("monitor type %q requires a valid target url", snap.Type))
		}
	}

	return nil
}

func invalid(op, msg string) error {
	return apperror.New(apperror.InvalidInput, op, nil).WithMessage(msg)
}
