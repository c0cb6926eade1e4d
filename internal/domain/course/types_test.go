package course

import (
	"encoding/json"
	"testing"
)

func TestCourse_UnknownFieldsSurviveRoundTrip(t *testing.T) {
	in := `{"id":3,"title":"Go","category":{"id":2,"name":"Backend"},"instructor":{"username":"bob"},
		"price":"19.90","tags":["a","b"],"like_count":1}`

	var c Course
	if err := json.Unmarshal([]byte(in), &c); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if c.Category == nil || *c.Category != 2 {
		t.Errorf("Category = %v, want 2", c.Category)
	}
	if c.Instructor != "bob" {
		t.Errorf("Instructor = %q", c.Instructor)
	}
	if c.IsFull() {
		t.Error("summary decoded as full record")
	}

	out, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(out, &fields); err != nil {
		t.Fatal(err)
	}
	if string(fields["price"]) != `"19.90"` || string(fields["tags"]) != `["a","b"]` {
		t.Errorf("extra fields lost: %s", out)
	}
	if _, ok := fields["modules"]; ok {
		t.Error("summary encoded with modules")
	}
}

func TestCourse_NonObjectRejected(t *testing.T) {
	var c Course
	if err := json.Unmarshal([]byte(`[1]`), &c); err == nil {
		t.Error("array decoded as a course")
	}
	if err := json.Unmarshal([]byte(`{"id":"x"}`), &c); err == nil {
		t.Error("string id decoded without error")
	}
}

func TestModule_NullLessonsBecomeEmpty(t *testing.T) {
	var m Module
	if err := json.Unmarshal([]byte(`{"id":1,"lessons":null}`), &m); err != nil {
		t.Fatal(err)
	}
	if m.Lessons == nil || len(m.Lessons) != 0 {
		t.Errorf("Lessons = %#v", m.Lessons)
	}
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"flat", `[{"id":1},{"id":2}]`, 2, false},
		{"paginated", `{"count":2,"results":[{"id":1},{"id":2}]}`, 2, false},
		{"empty page", `{"results":[]}`, 0, false},
		{"object without results", `{"id":1}`, 0, true},
		{"scalar", `42`, 0, true},
		{"empty", ``, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := normalizeList([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDecodeCourses_DropsMalformedAndDuplicates(t *testing.T) {
	courses, dropped, err := decodeCourses([]byte(`[{"id":1},null,3,{"id":1,"title":"dup"},{"id":2}]`))
	if err != nil {
		t.Fatal(err)
	}
	if len(courses) != 2 || dropped != 3 {
		t.Errorf("courses=%d dropped=%d, want 2 and 3", len(courses), dropped)
	}
}
