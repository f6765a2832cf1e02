package command

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/trackside/derby-scoreboard-backend/internal/fault"
)

// Request is the command envelope accepted from clients.
type Request struct {
	Type          string         `json:"type,omitempty"`
	Action        string         `json:"action"`
	TransactionID string         `json:"transactionId"`
	Args          map[string]any `json:"args"`
}

// Response is the per-command reply. Data and Error are mutually exclusive.
type Response struct {
	ServerTimestamp string     `json:"serverTimestamp"`
	Action          string     `json:"action"`
	TransactionID   string     `json:"transactionId"`
	Data            any        `json:"data,omitempty"`
	Error           *ErrorBody `json:"error,omitempty"`
}

type ErrorBody struct {
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

// Dispatcher parses envelopes, coerces arguments, invokes handlers, and
// formats replies. Handlers never catch Rule/Bounds errors themselves; the
// dispatcher classifies everything and keeps serving.
type Dispatcher struct {
	reg *Registry
	log *zap.Logger
	now func() time.Time
}

func NewDispatcher(reg *Registry, log *zap.Logger) *Dispatcher {
	return &Dispatcher{reg: reg, log: log, now: time.Now}
}

// Dispatch handles one frame. The returned reply is nil (ok=false) when the
// frame was too malformed to carry a transactionId to echo.
func (d *Dispatcher) Dispatch(frame []byte) ([]byte, bool) {
	var req Request
	if err := json.Unmarshal(frame, &req); err != nil {
		d.log.Info("dropping unparseable frame", zap.Error(err))
		return nil, false
	}
	if req.TransactionID == "" {
		d.log.Info("dropping frame without transactionId", zap.String("action", req.Action))
		return nil, false
	}
	if req.Action == "" {
		return d.reply(req, nil, fault.BadRequest("missing required key %q", "action"))
	}

	cmd, ok := d.reg.Lookup(req.Type, req.Action)
	if !ok {
		return d.reply(req, nil, fault.BadRequest("unknown action %q", req.Action))
	}

	args := make(Args, len(cmd.Params))
	for _, p := range cmd.Params {
		raw, present := req.Args[p.Name]
		if !present {
			if !p.HasDefault {
				return d.reply(req, nil, fault.BadRequest("missing required argument %q", p.Name))
			}
			args[p.Name] = p.Default
			continue
		}
		v, err := coerce(p, raw)
		if err != nil {
			return d.reply(req, nil, err)
		}
		args[p.Name] = v
	}

	data, err := d.invoke(cmd, args)
	return d.reply(req, data, err)
}

// invoke runs the handler, converting panics into internal errors so one bad
// command never takes the loop down.
func (d *Dispatcher) invoke(cmd Command, args Args) (data any, err error) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panicked",
				zap.String("action", cmd.Action), zap.Any("panic", r), zap.Stack("stack"))
			err = fault.Internal("handler for %q failed", cmd.Action)
		}
	}()
	return cmd.Handler(args)
}

func (d *Dispatcher) reply(req Request, data any, err error) ([]byte, bool) {
	resp := Response{
		ServerTimestamp: d.now().UTC().Format(time.RFC3339Nano),
		Action:          req.Action,
		TransactionID:   req.TransactionID,
	}
	if err != nil {
		kind := fault.KindOf(err)
		switch kind {
		case fault.KindBadRequest:
			d.log.Info("bad request", zap.String("action", req.Action), zap.Error(err))
		case fault.KindInternal:
			d.log.Error("internal error", zap.String("action", req.Action), zap.Error(err))
		default:
			d.log.Debug("rejected command", zap.String("action", req.Action), zap.Error(err))
		}
		resp.Error = &ErrorBody{Title: string(kind), Detail: err.Error()}
	} else {
		resp.Data = data
	}

	payload, merr := json.Marshal(resp)
	if merr != nil {
		// Reply data was unserializable; drop it and surface an internal
		// error instead.
		d.log.Error("marshal reply", zap.String("action", req.Action), zap.Error(merr))
		resp.Data = nil
		resp.Error = &ErrorBody{Title: string(fault.KindInternal), Detail: "failed to serialize reply data"}
		payload, merr = json.Marshal(resp)
		if merr != nil {
			return nil, false
		}
	}
	return payload, true
}
