package table

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Temporal layouts accepted when casting strings.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// Cast coerces a single value to the given type tag. nil (NULL) always casts
// to nil regardless of target type; nullability is enforced separately by the
// reconciler. A value that cannot be represented in the target type returns
// an error naming the value.
func Cast(v any, t Type) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch t {
	case TypeBoolean:
		return castBool(v)
	case TypeInteger:
		n, err := castInt(v)
		if err != nil {
			return nil, err
		}
		if n > math.MaxInt32 || n < math.MinInt32 {
			return nil, fmt.Errorf("value %d overflows INTEGER", n)
		}
		return n, nil
	case TypeBigInt:
		return castInt(v)
	case TypeDouble:
		return castFloat(v)
	case TypeVarchar:
		return Render(v), nil
	case TypeDate:
		ts, err := castTime(v)
		if err != nil {
			return nil, err
		}
		return ts.Truncate(24 * time.Hour), nil
	case TypeTimestamp:
		return castTime(v)
	default:
		return nil, fmt.Errorf("unknown type %q", t)
	}
}

func castBool(v any) (any, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case string:
		b, err := strconv.ParseBool(x)
		if err != nil {
			return nil, fmt.Errorf("cannot cast %q to BOOLEAN", x)
		}
		return b, nil
	case int64:
		return x != 0, nil
	case int:
		return x != 0, nil
	}
	return nil, fmt.Errorf("cannot cast %v (%T) to BOOLEAN", v, v)
}

func castInt(v any) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows BIGINT", x)
		}
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("cannot cast fractional value %v to integer", x)
		}
		return int64(x), nil
	case float32:
		return castInt(float64(x))
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot cast %q to integer", x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cannot cast %v (%T) to integer", v, v)
}

func castFloat(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case string:
		f, err := strconv.ParseFloat(x, 64)
		if err != nil {
			return 0, fmt.Errorf("cannot cast %q to DOUBLE", x)
		}
		return f, nil
	}
	return 0, fmt.Errorf("cannot cast %v (%T) to DOUBLE", v, v)
}

func castTime(v any) (time.Time, error) {
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, timestampLayout, dateLayout} {
			if ts, err := time.Parse(layout, x); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot cast %q to a temporal value", x)
	}
	return time.Time{}, fmt.Errorf("cannot cast %v (%T) to a temporal value", v, v)
}

// Render produces the canonical string form of a value: the same input value
// always renders identically. Used for VARCHAR casts, fingerprinting, and
// key encoding. nil renders as the empty string; callers that must
// distinguish NULL from "" do so out of band.
func Render(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'g', -1, 32)
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}
