package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xu2799/it-platform-frontend/internal/domain/course"
)

var (
	coursesSearch   string
	coursesCategory int
)

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "List courses",
	Long: `List courses, optionally filtered by a search term or category id.

Examples:
  coursekit courses
  coursekit courses --search golang
  coursekit courses --category 2 -o json`,
	Args: cobra.NoArgs,
	RunE: runCourses,
}

var courseCmd = &cobra.Command{
	Use:   "course <id>",
	Short: "Show one course with its modules and lessons",
	Args:  cobra.ExactArgs(1),
	RunE:  runCourse,
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List course categories",
	Args:  cobra.NoArgs,
	RunE:  runCategories,
}

var favoriteCmd = &cobra.Command{
	Use:   "favorite <id>",
	Short: "Toggle a course in or out of your favorites",
	Args:  cobra.ExactArgs(1),
	RunE:  runFavorite,
}

func init() {
	coursesCmd.Flags().StringVarP(&coursesSearch, "search", "s", "", "search term")
	coursesCmd.Flags().IntVar(&coursesCategory, "category", 0, "category id")
	rootCmd.AddCommand(coursesCmd, courseCmd, categoriesCmd, favoriteCmd)
}

func runCourses(cmd *cobra.Command, args []string) error {
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	filter := course.Filter{}.WithSearch(coursesSearch)
	if coursesCategory > 0 {
		filter = filter.WithCategory(coursesCategory)
	}
	courses, err := rt.Courses.FetchCourses(cmd.Context(), filter)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), courses, func(w io.Writer) {
		if len(courses) == 0 {
			fmt.Fprintln(w, "No courses found")
			return
		}
		for _, c := range courses {
			fmt.Fprintf(w, "%4d  %s%s\n", c.ID, c.Title, flags(c))
		}
	})
}

func runCourse(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	c, err := rt.Courses.FetchCourseDetail(cmd.Context(), id)
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), c, func(w io.Writer) {
		fmt.Fprintf(w, "%s%s\n", c.Title, flags(c))
		if c.Instructor != "" {
			fmt.Fprintf(w, "Instructor: %s\n", c.Instructor)
		}
		if c.Description != "" {
			fmt.Fprintf(w, "\n%s\n", c.Description)
		}
		for _, m := range c.Modules {
			fmt.Fprintf(w, "\n%d. %s\n", m.Order, m.Title)
			for _, l := range m.Lessons {
				fmt.Fprintf(w, "   %d.%d %s\n", m.Order, l.Order, l.Title)
			}
		}
	})
}

func runCategories(cmd *cobra.Command, args []string) error {
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	categories, err := rt.Courses.FetchCategories(cmd.Context())
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), categories, func(w io.Writer) {
		for _, c := range categories {
			fmt.Fprintf(w, "%4d  %s\n", c.ID, c.Name)
		}
	})
}

func runFavorite(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	favorited, err := rt.Favorites.Toggle(cmd.Context(), id)
	if err != nil {
		return err
	}
	out := map[string]any{"course_id": id, "favorited": favorited}
	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		if favorited {
			fmt.Fprintf(w, "Course %d added to favorites\n", id)
		} else {
			fmt.Fprintf(w, "Course %d removed from favorites\n", id)
		}
	})
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid course id %q", s)
	}
	return id, nil
}

func flags(c course.Course) string {
	var marks []string
	if c.IsFavorited {
		marks = append(marks, "favorite")
	}
	if c.IsLiked {
		marks = append(marks, "liked")
	}
	if len(marks) == 0 {
		return ""
	}
	return " [" + strings.Join(marks, ", ") + "]"
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
