package remote

import (
	"fmt"
	"time"

	"google.golang.org/protobuf/types/known/structpb"
)

// The wire payloads mirror the GraphQL data shapes the chat UI was built
// against: {"users": [...]}, {"messages": [...]} and {"addMessage": {...}}.
const (
	fieldUsers      = "users"
	fieldMessages   = "messages"
	fieldAddMessage = "addMessage"
)

func userValue(u User) map[string]any {
	return map[string]any{
		"id":        u.ID,
		"firstName": u.FirstName,
		"lastName":  u.LastName,
	}
}

func messageValue(m Message) map[string]any {
	return map[string]any{
		"id":        m.ID,
		"text":      m.Text,
		"createdBy": userValue(m.CreatedBy),
		"createdAt": m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func encodeUsers(users []User) (*structpb.Struct, error) {
	list := make([]any, 0, len(users))
	for _, u := range users {
		list = append(list, userValue(u))
	}
	return structpb.NewStruct(map[string]any{fieldUsers: list})
}

func encodeMessages(msgs []Message) (*structpb.Struct, error) {
	list := make([]any, 0, len(msgs))
	for _, m := range msgs {
		list = append(list, messageValue(m))
	}
	return structpb.NewStruct(map[string]any{fieldMessages: list})
}

func encodeAddMessageResult(m Message) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{fieldAddMessage: messageValue(m)})
}

func encodeAddMessageInput(in AddMessageInput) (*structpb.Struct, error) {
	vars := map[string]any{
		"text":   in.Text,
		"userId": in.UserID,
	}
	if in.IsRetry {
		vars["isRetry"] = true
	}
	if !in.CreatedAt.IsZero() {
		vars["createdAt"] = in.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	return structpb.NewStruct(vars)
}

func decodeAddMessageInput(s *structpb.Struct) (AddMessageInput, error) {
	in := AddMessageInput{
		Text:    stringField(s, "text"),
		UserID:  stringField(s, "userId"),
		IsRetry: s.GetFields()["isRetry"].GetBoolValue(),
	}
	if raw := stringField(s, "createdAt"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return AddMessageInput{}, fmt.Errorf("createdAt: %w", err)
		}
		in.CreatedAt = ts
	}
	return in, nil
}

func decodeUsers(s *structpb.Struct) ([]User, error) {
	values, err := listField(s, fieldUsers)
	if err != nil {
		return nil, err
	}
	users := make([]User, 0, len(values))
	for i, v := range values {
		st := v.GetStructValue()
		if st == nil {
			return nil, fmt.Errorf("%w: users[%d] is not an object", ErrMalformed, i)
		}
		users = append(users, decodeUser(st))
	}
	return users, nil
}

func decodeMessages(s *structpb.Struct) ([]Message, error) {
	values, err := listField(s, fieldMessages)
	if err != nil {
		return nil, err
	}
	msgs := make([]Message, 0, len(values))
	for i, v := range values {
		st := v.GetStructValue()
		if st == nil {
			return nil, fmt.Errorf("%w: messages[%d] is not an object", ErrMalformed, i)
		}
		m, err := decodeMessage(st)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func decodeAddMessageResult(s *structpb.Struct) (Message, error) {
	st := s.GetFields()[fieldAddMessage].GetStructValue()
	if st == nil {
		return Message{}, fmt.Errorf("%w: missing %q", ErrMalformed, fieldAddMessage)
	}
	return decodeMessage(st)
}

func decodeUser(s *structpb.Struct) User {
	return User{
		ID:        stringField(s, "id"),
		FirstName: stringField(s, "firstName"),
		LastName:  stringField(s, "lastName"),
	}
}

func decodeMessage(s *structpb.Struct) (Message, error) {
	m := Message{
		ID:   stringField(s, "id"),
		Text: stringField(s, "text"),
	}
	if author := s.GetFields()["createdBy"].GetStructValue(); author != nil {
		m.CreatedBy = decodeUser(author)
	}
	if raw := stringField(s, "createdAt"); raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return Message{}, fmt.Errorf("%w: createdAt: %v", ErrMalformed, err)
		}
		m.CreatedAt = ts
	}
	return m, nil
}

func listField(s *structpb.Struct, name string) ([]*structpb.Value, error) {
	v, ok := s.GetFields()[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing %q", ErrMalformed, name)
	}
	list := v.GetListValue()
	if list == nil {
		return nil, fmt.Errorf("%w: %q is not a list", ErrMalformed, name)
	}
	return list.GetValues(), nil
}

func stringField(s *structpb.Struct, name string) string {
	return s.GetFields()[name].GetStringValue()
}
