// Package course holds the Entity Cache: the client's best-effort mirror of
// the courses and categories owned by the server.
package course

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
)

// Course is a course as the API sends it. A summary (list view) record has
// nil Modules; a full (detail view) record has non-nil Modules.
//
// Fields the client does not model are kept in Extra so that a record
// survives a decode/encode round trip unchanged.
type Course struct {
	ID          int
	Title       string
	Description string
	Category    *int
	Instructor  string
	IsLiked     bool
	LikeCount   int
	IsFavorited bool
	Modules     []Module
	Extra       map[string]json.RawMessage

	// malformed counts modules and lessons dropped while decoding.
	malformed int
}

// Module is an ordered group of lessons.
type Module struct {
	ID      int
	Title   string
	Order   int
	Lessons []Lesson
	Extra   map[string]json.RawMessage

	malformed int
}

// Lesson is a single video lesson.
type Lesson struct {
	ID       int
	Title    string
	Order    int
	VideoURL string
	Extra    map[string]json.RawMessage
}

// Category is a course category.
type Category struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// Malformed returns the number of modules and lessons dropped when c was
// decoded.
func (c *Course) Malformed() int {
	return c.malformed
}

// IsFull reports whether c is a detail record.
func (c *Course) IsFull() bool {
	return c.Modules != nil
}

// Clone returns a deep copy of c.
func (c Course) Clone() Course {
	if c.Category != nil {
		id := *c.Category
		c.Category = &id
	}
	if c.Modules != nil {
		mods := make([]Module, len(c.Modules))
		for i, m := range c.Modules {
			mods[i] = m.clone()
		}
		c.Modules = mods
	}
	c.Extra = maps.Clone(c.Extra)
	return c
}

func (m Module) clone() Module {
	if m.Lessons != nil {
		lessons := slices.Clone(m.Lessons)
		for i := range lessons {
			lessons[i].Extra = maps.Clone(lessons[i].Extra)
		}
		m.Lessons = lessons
	}
	m.Extra = maps.Clone(m.Extra)
	return m
}

// UnmarshalJSON decodes a course object. Modules that are null, not
// objects, or fail to decode are dropped, as are such lessons in each
// module. Malformed reports how many were dropped.
func (c *Course) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data, "course")
	if err != nil {
		return err
	}
	var out Course
	if err := fields.take("id", &out.ID); err != nil {
		return err
	}
	if err := fields.take("title", &out.Title); err != nil {
		return err
	}
	if err := fields.take("description", &out.Description); err != nil {
		return err
	}
	if err := fields.take("is_liked", &out.IsLiked); err != nil {
		return err
	}
	if err := fields.take("like_count", &out.LikeCount); err != nil {
		return err
	}
	if err := fields.take("is_favorited", &out.IsFavorited); err != nil {
		return err
	}
	// category and instructor come either flat or nested depending on the
	// serializer; a shape we do not understand stays in Extra.
	if raw, ok := fields["category"]; ok {
		if id, ok := refID(raw); ok {
			out.Category = &id
			delete(fields, "category")
		} else if isNull(raw) {
			delete(fields, "category")
		}
	}
	if raw, ok := fields["instructor"]; ok {
		if name, ok := refName(raw); ok {
			out.Instructor = name
			delete(fields, "instructor")
		}
	}
	if raw, ok := fields["modules"]; ok {
		delete(fields, "modules")
		if !isNull(raw) {
			objs, dropped, err := sanitizeObjects(raw, "modules")
			if err != nil {
				return err
			}
			out.Modules = make([]Module, 0, len(objs))
			out.malformed = dropped
			for _, obj := range objs {
				var m Module
				if err := json.Unmarshal(obj, &m); err != nil {
					out.malformed++
					continue
				}
				out.malformed += m.malformed
				m.malformed = 0
				out.Modules = append(out.Modules, m)
			}
		}
	}
	out.Extra = fields.rest()
	*c = out
	return nil
}

// MarshalJSON encodes c with its Extra fields.
func (c Course) MarshalJSON() ([]byte, error) {
	obj := extraObject(c.Extra)
	obj.put("id", c.ID)
	obj.put("title", c.Title)
	obj.put("description", c.Description)
	if c.Category != nil {
		obj.put("category", *c.Category)
	}
	if c.Instructor != "" {
		obj.put("instructor", c.Instructor)
	}
	obj.put("is_liked", c.IsLiked)
	obj.put("like_count", c.LikeCount)
	obj.put("is_favorited", c.IsFavorited)
	if c.Modules != nil {
		obj.put("modules", c.Modules)
	}
	return obj.encode()
}

// UnmarshalJSON decodes a module object, dropping malformed lessons. A
// missing or null lessons field decodes as an empty list.
func (m *Module) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data, "module")
	if err != nil {
		return err
	}
	out := Module{Lessons: []Lesson{}}
	if err := fields.take("id", &out.ID); err != nil {
		return err
	}
	if err := fields.take("title", &out.Title); err != nil {
		return err
	}
	if err := fields.take("order", &out.Order); err != nil {
		return err
	}
	if raw, ok := fields["lessons"]; ok {
		delete(fields, "lessons")
		if !isNull(raw) {
			objs, dropped, err := sanitizeObjects(raw, "lessons")
			if err != nil {
				return err
			}
			out.malformed = dropped
			for _, obj := range objs {
				var l Lesson
				if err := json.Unmarshal(obj, &l); err != nil {
					out.malformed++
					continue
				}
				out.Lessons = append(out.Lessons, l)
			}
		}
	}
	out.Extra = fields.rest()
	*m = out
	return nil
}

// MarshalJSON encodes m with its Extra fields.
func (m Module) MarshalJSON() ([]byte, error) {
	obj := extraObject(m.Extra)
	obj.put("id", m.ID)
	obj.put("title", m.Title)
	obj.put("order", m.Order)
	lessons := m.Lessons
	if lessons == nil {
		lessons = []Lesson{}
	}
	obj.put("lessons", lessons)
	return obj.encode()
}

// UnmarshalJSON decodes a lesson object.
func (l *Lesson) UnmarshalJSON(data []byte) error {
	fields, err := decodeObject(data, "lesson")
	if err != nil {
		return err
	}
	var out Lesson
	if err := fields.take("id", &out.ID); err != nil {
		return err
	}
	if err := fields.take("title", &out.Title); err != nil {
		return err
	}
	if err := fields.take("order", &out.Order); err != nil {
		return err
	}
	if err := fields.take("video_url", &out.VideoURL); err != nil {
		return err
	}
	out.Extra = fields.rest()
	*l = out
	return nil
}

// MarshalJSON encodes l with its Extra fields.
func (l Lesson) MarshalJSON() ([]byte, error) {
	obj := extraObject(l.Extra)
	obj.put("id", l.ID)
	obj.put("title", l.Title)
	obj.put("order", l.Order)
	if l.VideoURL != "" {
		obj.put("video_url", l.VideoURL)
	}
	return obj.encode()
}

// object is a decoded JSON object whose known keys are consumed one by one.
type object map[string]json.RawMessage

func decodeObject(data []byte, what string) (object, error) {
	var fields object
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode %s: %w", what, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("decode %s: not an object", what)
	}
	return fields, nil
}

// take decodes key into dst and removes it. Absent and null keys leave dst
// untouched.
func (o object) take(key string, dst any) error {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	delete(o, key)
	if isNull(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("field %q: %w", key, err)
	}
	return nil
}

func (o object) rest() map[string]json.RawMessage {
	if len(o) == 0 {
		return nil
	}
	return map[string]json.RawMessage(o)
}

type encoder struct {
	fields map[string]any
}

func extraObject(extra map[string]json.RawMessage) *encoder {
	e := &encoder{fields: make(map[string]any, len(extra)+10)}
	for k, v := range extra {
		e.fields[k] = v
	}
	return e
}

func (e *encoder) put(key string, v any) {
	e.fields[key] = v
}

func (e *encoder) encode() ([]byte, error) {
	return json.Marshal(e.fields)
}
