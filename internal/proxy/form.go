package proxy

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FormMode controls how a JSON body is coerced into form fields.
type FormMode string

const (
	// FormLossy keeps top-level string values and silently drops everything else,
	// including bodies that are not JSON objects.
	FormLossy FormMode = "lossy"
	// FormStrict rejects bodies that are not JSON objects of strings.
	FormStrict FormMode = "strict"
)

// formResult carries the extracted fields plus what was dropped on the way.
type formResult struct {
	fields  map[string]string
	dropped []string
	invalid error
}

// buildFormFields turns a JSON object body into multipart fields.
func buildFormFields(body string, mode FormMode) (formResult, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &obj); err != nil {
		if mode == FormStrict {
			return formResult{}, fmt.Errorf("form body is not a JSON object: %w", err)
		}
		return formResult{fields: map[string]string{}, invalid: err}, nil
	}

	res := formResult{fields: make(map[string]string, len(obj))}
	for k, raw := range obj {
		var s string
		if len(raw) == 0 || raw[0] != '"' {
			res.dropped = append(res.dropped, k)
			continue
		}
		if err := json.Unmarshal(raw, &s); err != nil {
			res.dropped = append(res.dropped, k)
			continue
		}
		res.fields[k] = s
	}
	sort.Strings(res.dropped)

	if mode == FormStrict && len(res.dropped) > 0 {
		return formResult{}, fmt.Errorf("form field %q is not a string", res.dropped[0])
	}
	return res, nil
}
