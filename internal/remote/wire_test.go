package remote

import (
	"errors"
	"testing"

	"google.golang.org/protobuf/types/known/structpb"
)

func TestDecodeMessages_Malformed(t *testing.T) {
	cases := map[string]map[string]any{
		"missing field": {},
		"not a list":    {"messages": "nope"},
		"not an object": {"messages": []any{"x"}},
		"bad createdAt": {"messages": []any{map[string]any{"id": "m1", "createdAt": "yesterday"}}},
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			s, err := structpb.NewStruct(raw)
			if err != nil {
				t.Fatalf("NewStruct failed: %v", err)
			}
			if _, err := decodeMessages(s); !errors.Is(err, ErrMalformed) {
				t.Fatalf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestAddMessageInput_OmitsRetryFieldsOnFirstSend(t *testing.T) {
	s, err := encodeAddMessageInput(AddMessageInput{Text: "hi", UserID: "u1"})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if _, ok := s.GetFields()["isRetry"]; ok {
		t.Fatalf("isRetry should be omitted on a first send")
	}
	if _, ok := s.GetFields()["createdAt"]; ok {
		t.Fatalf("createdAt should be omitted on a first send")
	}

	in, err := decodeAddMessageInput(s)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if in.Text != "hi" || in.UserID != "u1" || in.IsRetry || !in.CreatedAt.IsZero() {
		t.Fatalf("unexpected input: %+v", in)
	}
}
