package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnsupportedParam is returned when an export option name is not in the
// supported set.
var ErrUnsupportedParam = errors.New("unsupported export param")

// ParamError reports an export option that failed validation. The message
// always carries the offending value.
type ParamError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s param %s | you provided %v", e.Param, e.Reason, e.Value)
}

// Supported export option names.
const (
	ParamFromDate = "from_date"
	ParamToDate   = "to_date"
	ParamLimit    = "limit"
	ParamEvent    = "event"
	ParamWhere    = "where"
)

var supportedParams = []string{ParamFromDate, ParamToDate, ParamLimit, ParamEvent, ParamWhere}

var dateRe = regexp.MustCompile(`^(?:19|20)\d\d-(?:0[1-9]|1[0-2])-(?:0[1-9]|[12]\d|3[01])$`)

// Params holds validated export options, each serialized to its wire form.
type Params map[string]string

// NewParams validates the given export options and serializes them into
// their wire form. Option values are dynamically typed the way a config
// file or CLI hands them over:
//
//   - from_date / to_date: YYYY-MM-DD strings that must travel together
//   - limit: an integer
//   - event: a list of event names, serialized to a JSON array string
//   - where: a provider filter expression, passed through unvalidated
//
// An unknown option name fails with ErrUnsupportedParam; a value that
// fails its check fails with a *ParamError naming the value.
func NewParams(opts map[string]any) (Params, error) {
	params := make(Params, len(opts))

	for name, value := range opts {
		switch name {
		case ParamFromDate, ParamToDate:
			date, ok := value.(string)
			if !ok || !dateRe.MatchString(date) {
				return nil, &ParamError{name, value, "should be in the following pattern: YYYY-MM-DD"}
			}
			params[name] = date
		case ParamLimit:
			limit, ok := asInt(value)
			if !ok {
				return nil, &ParamError{name, value, "should be integer"}
			}
			params[name] = strconv.Itoa(limit)
		case ParamEvent:
			names, ok := asStringList(value)
			if !ok {
				return nil, &ParamError{name, value, "should be list"}
			}
			params[name] = encodeNameList(names)
		case ParamWhere:
			params[name] = fmt.Sprintf("%v", value)
		default:
			return nil, fmt.Errorf("%w: %q (supported params are %s)",
				ErrUnsupportedParam, name, strings.Join(supportedParams, ", "))
		}
	}

	_, hasFrom := params[ParamFromDate]
	_, hasTo := params[ParamToDate]
	if hasFrom != hasTo {
		if hasFrom {
			return nil, &ParamError{ParamFromDate, opts[ParamFromDate], "have to be with to_date param"}
		}
		return nil, &ParamError{ParamToDate, opts[ParamToDate], "have to be with from_date param"}
	}

	return params, nil
}

// encodeNameList renders the event-name list the way the provider expects:
// a JSON array string with a comma and space between elements.
func encodeNameList(names []string) string {
	quoted := make([]string, len(names))
	for i, name := range names {
		b, _ := json.Marshal(name)
		quoted[i] = string(b)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		// JSON decodes integers as float64; accept only whole values.
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func asStringList(v any) ([]string, bool) {
	switch list := v.(type) {
	case []string:
		return list, true
	case []any:
		out := make([]string, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	default:
		return nil, false
	}
}
