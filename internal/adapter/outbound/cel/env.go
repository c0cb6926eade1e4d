package cel

import (
	"path/filepath"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/xu2799/it-platform-frontend/internal/domain/session"
)

// NewRouteEnvironment creates the CEL environment route conditions are
// compiled in. Variables:
//   - authenticated: whether a profile is loaded
//   - user_id, username, role: the profile ("" / 0 when absent)
//   - favorites: the favorited course ids
//   - request_time: evaluation time
//
// Custom functions: glob(pattern, name).
func NewRouteEnvironment() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		ext.Sets(),

		cel.Variable("authenticated", cel.BoolType),
		cel.Variable("user_id", cel.IntType),
		cel.Variable("username", cel.StringType),
		cel.Variable("role", cel.StringType),
		cel.Variable("favorites", cel.ListType(cel.IntType)),
		cel.Variable("request_time", cel.TimestampType),

		// glob: shell pattern match, e.g. glob("test_*", username)
		cel.Function("glob",
			cel.Overload("glob_string_string",
				[]*cel.Type{cel.StringType, cel.StringType},
				cel.BoolType,
				cel.BinaryBinding(func(pattern, name ref.Val) ref.Val {
					p, ok1 := pattern.Value().(string)
					n, ok2 := name.Value().(string)
					if !ok1 || !ok2 {
						return types.Bool(false)
					}
					matched, _ := filepath.Match(p, n)
					return types.Bool(matched)
				}),
			),
		),
	)
}

// BuildActivation maps a profile onto the environment's variables. A nil
// profile yields an unauthenticated activation with zero values.
func BuildActivation(p *session.UserProfile, now time.Time) map[string]any {
	act := map[string]any{
		"authenticated": p != nil,
		"user_id":       int64(0),
		"username":      "",
		"role":          "",
		"favorites":     []int64{},
		"request_time":  now,
	}
	if p == nil {
		return act
	}
	favs := make([]int64, len(p.FavoritedCourses))
	for i, id := range p.FavoritedCourses {
		favs[i] = int64(id)
	}
	act["user_id"] = int64(p.ID)
	act["username"] = p.Username
	act["role"] = string(p.Role)
	act["favorites"] = favs
	return act
}
