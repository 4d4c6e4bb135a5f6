package logger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type handlerOptions struct {
	level  slog.Leveler
	out    *asyncWriter
	format logFormat
	order  []string
}

// lineHandler is a slog.Handler writing one flat line per record, either JSON
// or key=value, with keys in a stable order.
type lineHandler struct {
	opts   handlerOptions
	preset []field
	prefix string
}

func newLineHandler(opts handlerOptions) *lineHandler {
	if opts.level == nil {
		opts.level = slog.LevelInfo
	}
	if len(opts.order) == 0 {
		opts.order = defaultKeyOrder
	}
	return &lineHandler{opts: opts}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.level.Level()
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.preset = append([]field(nil), h.preset...)
	for _, a := range attrs {
		clone.preset = appendAttr(clone.preset, h.prefix, a)
	}
	return &clone
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func (h *lineHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.opts.out == nil {
		return errors.New("logger: writer not initialized")
	}
	rec := make(map[string]any, 16)
	ts := r.Time.UTC()
	rec["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	rec["level"] = levelName(r.Level)
	if h.opts.format == formatJSON {
		rec["ts_unix_nano"] = ts.UnixNano()
	}

	for _, f := range h.preset {
		rec[f.key] = f.val
	}
	var attrs []field
	r.Attrs(func(a slog.Attr) bool {
		attrs = appendAttr(attrs, h.prefix, a)
		return true
	})
	for _, f := range attrs {
		rec[f.key] = f.val
	}
	for _, f := range contextFields(ctx) {
		if _, set := rec[f.key]; !set {
			rec[f.key] = f.val
		}
	}

	h.finish(rec, r.Message)

	var line []byte
	if h.opts.format == formatJSON {
		var err error
		if line, err = encodeJSON(rec, h.opts.order); err != nil {
			return err
		}
	} else {
		line = encodeKV(rec, h.opts.order)
	}
	return h.opts.out.Write(append(line, '\n'), r.Level >= slog.LevelError)
}

// finish fills defaults, compacts the rid and drops empty or unknown values.
func (h *lineHandler) finish(rec map[string]any, msg string) {
	if rid := text(rec, "rid"); rid != "" {
		if short := CompactRID(rid); short != rid {
			if _, set := rec["rid_full"]; !set && h.opts.format == formatJSON {
				rec["rid_full"] = rid
			}
			rec["rid"] = short
		}
	}
	if text(rec, "event") == "" {
		rec["event"] = "unknown"
		if msg != "" {
			rec["event"] = msg
		}
	}
	if text(rec, "component") == "" {
		rec["component"] = "app"
	}
	if s := strings.ToLower(text(rec, "status")); s != "" {
		rec["status"] = s
	}
	if o := strings.ToLower(text(rec, "outcome")); o != "" {
		if knownOutcome[o] {
			rec["outcome"] = o
		} else {
			delete(rec, "outcome")
		}
	}
	for k, v := range rec {
		if v == nil {
			delete(rec, k)
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			delete(rec, k)
		}
	}
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// appendAttr flattens groups into dotted keys and converts the value.
func appendAttr(dst []field, prefix string, a slog.Attr) []field {
	key := joinKey(prefix, a.Key)
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			dst = appendAttr(dst, key, child)
		}
		return dst
	}
	if key == "" {
		return dst
	}
	if k, val, ok := convert(key, v); ok {
		dst = append(dst, field{k, val})
	}
	return dst
}

func convert(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return key, v.Bool(), true
	case slog.KindInt64:
		return key, v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
		return key, v.Uint64(), true
	case slog.KindFloat64:
		return key, v.Float64(), true
	case slog.KindDuration:
		return durationKey(key), RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return key, nil, false
	case error:
		return key, x.Error(), true
	case string:
		return key, strings.TrimSpace(x), true
	case fmt.Stringer:
		return key, x.String(), true
	default:
		return key, fmt.Sprint(x), true
	}
}

func text(rec map[string]any, key string) string {
	switch v := rec[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// sortedKeys returns the keys named in order first, then the rest sorted.
func sortedKeys(rec map[string]any, order []string) []string {
	keys := make([]string, 0, len(rec))
	listed := make(map[string]bool, len(order))
	for _, k := range order {
		listed[k] = true
		if _, ok := rec[k]; ok {
			keys = append(keys, k)
		}
	}
	head := len(keys)
	for k := range rec {
		if !listed[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys[head:])
	return keys
}

func encodeJSON(rec map[string]any, order []string) ([]byte, error) {
	buf := []byte{'{'}
	for i, k := range sortedKeys(rec, order) {
		val, err := json.Marshal(rec[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendQuote(buf, k)
		buf = append(buf, ':')
		buf = append(buf, val...)
	}
	return append(buf, '}'), nil
}

func encodeKV(rec map[string]any, order []string) []byte {
	var buf []byte
	for i, k := range sortedKeys(rec, order) {
		if i > 0 {
			buf = append(buf, ' ')
		}
		buf = append(buf, k...)
		buf = append(buf, '=')
		s := fmt.Sprint(rec[k])
		if strings.IndexFunc(s, needsQuote) >= 0 {
			buf = strconv.AppendQuote(buf, s)
		} else {
			buf = append(buf, s...)
		}
	}
	return buf
}

func needsQuote(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}
