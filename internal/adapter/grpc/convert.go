package grpc

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/simaogato/wealthflow-portfolio/internal/domain"
)

// request reads typed fields out of a Struct request.
// Decimals travel as strings, timestamps as RFC 3339 (or YYYY-MM-DD) strings.
type request struct {
	fields map[string]*structpb.Value
}

func newRequest(s *structpb.Struct) request {
	return request{fields: s.GetFields()}
}

func (r request) str(name string) string {
	v, ok := r.fields[name]
	if !ok {
		return ""
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_StringValue:
		return k.StringValue
	case *structpb.Value_NumberValue:
		return decimal.NewFromFloat(k.NumberValue).String()
	}
	return ""
}

func (r request) user() (domain.UserID, error) {
	user := r.str("user_id")
	if user == "" {
		return "", status.Error(codes.InvalidArgument, "user_id is required")
	}
	return domain.UserID(user), nil
}

// decimal parses an optional decimal field; a missing field is zero
func (r request) decimal(name string) (decimal.Decimal, error) {
	s := r.str(name)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return d, nil
}

// time parses an optional date field; a missing field is the zero time
func (r request) time(name string) (time.Time, error) {
	t, err := domain.ParseDate(r.str(name))
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return t, nil
}

// uuid parses an optional UUID field; a missing field is nil
func (r request) uuid(name string) (*uuid.UUID, error) {
	s := r.str(name)
	if s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "invalid %s format: %v", name, err)
	}
	return &id, nil
}

func (r request) granularity() (domain.Granularity, error) {
	g, err := domain.ParseGranularity(r.str("granularity"))
	if err != nil {
		return "", status.Errorf(codes.InvalidArgument, "%v", err)
	}
	return g, nil
}

// toStruct converts a domain value to a Struct through its JSON form
func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "failed to encode response: %v", err)
	}
	return s, nil
}

// withDisplay adds a formatted "<key>_display" string next to each amount
func withDisplay(s *structpb.Struct, currency string, amounts map[string]decimal.Decimal) {
	for key, amount := range amounts {
		s.Fields[key+"_display"] = structpb.NewStringValue(domain.FormatAmount(amount, currency))
	}
}

// listStruct wraps a list under key, since a Struct response must be an object
func listStruct[T any](key string, items []T) (*structpb.Struct, error) {
	if items == nil {
		items = []T{}
	}
	return toStruct(map[string]any{key: items})
}
