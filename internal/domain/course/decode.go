package course

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnexpectedShape is returned when a list endpoint answers with neither
// a JSON array nor an object carrying a "results" array.
var ErrUnexpectedShape = errors.New("unexpected response shape")

// normalizeList flattens a list response. The API answers either with a
// bare array or, when paginated, with {"results": [...], ...}.
func normalizeList(body []byte) ([]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty body", ErrUnexpectedShape)
	}

	var items []json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
	case '{':
		var page struct {
			Results []json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, fmt.Errorf("decode page: %w", err)
		}
		if page.Results == nil {
			return nil, fmt.Errorf("%w: object without results", ErrUnexpectedShape)
		}
		items = page.Results
	default:
		return nil, fmt.Errorf("%w: %.20q", ErrUnexpectedShape, trimmed)
	}
	return items, nil
}

// decodeCourses decodes a list response into courses. Entries that are not
// objects or fail to decode are dropped and counted; a duplicated id keeps
// its first occurrence.
func decodeCourses(body []byte) (courses []Course, dropped int, err error) {
	items, err := normalizeList(body)
	if err != nil {
		return nil, 0, err
	}
	courses = make([]Course, 0, len(items))
	seen := make(map[int]bool, len(items))
	for _, raw := range items {
		if !isObject(raw) {
			dropped++
			continue
		}
		var c Course
		if err := json.Unmarshal(raw, &c); err != nil {
			dropped++
			continue
		}
		if seen[c.ID] {
			dropped++
			continue
		}
		seen[c.ID] = true
		courses = append(courses, c)
	}
	return courses, dropped, nil
}

func decodeCategories(body []byte) ([]Category, error) {
	items, err := normalizeList(body)
	if err != nil {
		return nil, err
	}
	cats := make([]Category, 0, len(items))
	for _, raw := range items {
		if !isObject(raw) {
			continue
		}
		var c Category
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, nil
}

// sanitizeObjects decodes a JSON array and keeps only its object elements.
// dropped counts the elements that were not objects, nulls included.
func sanitizeObjects(raw json.RawMessage, field string) (objs []json.RawMessage, dropped int, err error) {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, 0, fmt.Errorf("field %q: %w", field, err)
	}
	objs = items[:0]
	for _, item := range items {
		if isObject(item) {
			objs = append(objs, item)
		} else {
			dropped++
		}
	}
	return objs, dropped, nil
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// refID reads a reference that is either a bare id or an object with an id.
func refID(raw json.RawMessage) (int, bool) {
	var id int
	if err := json.Unmarshal(raw, &id); err == nil {
		return id, true
	}
	var obj struct {
		ID *int `json:"id"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.ID != nil {
		return *obj.ID, true
	}
	return 0, false
}

// refName reads a reference that is either a bare name or an object with a
// username.
func refName(raw json.RawMessage) (string, bool) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name, true
	}
	var obj struct {
		Username *string `json:"username"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Username != nil {
		return *obj.Username, true
	}
	return "", false
}
