package repository

import (
	"encoding/json"
	"fmt"

	"github.com/Shivanand-hulikatti/campus-events/internal/model"
)

// EncodeQuotas renders category quotas as a JSON object; nil becomes "{}".
func EncodeQuotas(q map[string]int) (string, error) {
	if len(q) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(q)
	if err != nil {
		return "", fmt.Errorf("marshal quotas: %w", err)
	}
	return string(b), nil
}

// DecodeQuotas parses a JSON quota object; an empty object yields nil.
func DecodeQuotas(raw string) (map[string]int, error) {
	if raw == "" || raw == "{}" {
		return nil, nil
	}
	var q map[string]int
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return nil, fmt.Errorf("decode quotas: %w", err)
	}
	if len(q) == 0 {
		return nil, nil
	}
	return q, nil
}

func marshalQuotas(q map[string]int) (string, error) { return EncodeQuotas(q) }

func unmarshalQuotas(raw string, e *model.Event) error {
	q, err := DecodeQuotas(raw)
	if err != nil {
		return err
	}
	e.Quotas = q
	return nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
