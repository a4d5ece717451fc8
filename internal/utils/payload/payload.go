// Package payload reads and builds the google.protobuf.Struct messages carried by
// the gRPC services. Ids travel as decimal strings so uint64 values survive JSON.
package payload

import (
	"math"
	"strconv"

	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/oggyb/matchmaker/internal/errors"
)

// Object is the JSON-shaped map a response is built from.
type Object = map[string]any

// Uint64 reads a required positive id from a string or number field.
func Uint64(req *structpb.Struct, key string) (uint64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, svcErr.InvalidArgument(key + " is required")
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseUint(kind.StringValue, 10, 64)
		if err != nil || n == 0 {
			return 0, svcErr.InvalidArgument(key + " must be a valid uint64")
		}
		return n, nil
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f <= 0 || f != math.Trunc(f) || f > 1<<53 {
			return 0, svcErr.InvalidArgument(key + " must be a valid uint64")
		}
		return uint64(f), nil
	}
	return 0, svcErr.InvalidArgument(key + " must be a string or number")
}

// Int64 reads a required non-zero chat-platform id.
func Int64(req *structpb.Struct, key string) (int64, error) {
	v, ok := req.GetFields()[key]
	if !ok {
		return 0, svcErr.InvalidArgument(key + " is required")
	}
	switch kind := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		n, err := strconv.ParseInt(kind.StringValue, 10, 64)
		if err != nil || n == 0 {
			return 0, svcErr.InvalidArgument(key + " must be a valid int64")
		}
		return n, nil
	case *structpb.Value_NumberValue:
		f := kind.NumberValue
		if f == 0 || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return 0, svcErr.InvalidArgument(key + " must be a valid int64")
		}
		return int64(f), nil
	}
	return 0, svcErr.InvalidArgument(key + " must be a string or number")
}

// String returns the field as a string, or "" when absent.
func String(req *structpb.Struct, key string) string {
	return req.GetFields()[key].GetStringValue()
}

// OptionalString returns nil for absent or empty fields.
func OptionalString(req *structpb.Struct, key string) *string {
	s := String(req, key)
	if s == "" {
		return nil
	}
	return &s
}

// Bool returns the field as a bool, false when absent.
func Bool(req *structpb.Struct, key string) bool {
	return req.GetFields()[key].GetBoolValue()
}

// Has reports whether key is present.
func Has(req *structpb.Struct, key string) bool {
	_, ok := req.GetFields()[key]
	return ok
}

// ID formats an id for a response.
func ID[T ~uint64 | ~int64](id T) string {
	if id < 0 {
		return strconv.FormatInt(int64(id), 10)
	}
	return strconv.FormatUint(uint64(id), 10)
}

// New converts obj to a Struct. Nested lists must be []any.
func New(obj Object) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(obj)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return s, nil
}
