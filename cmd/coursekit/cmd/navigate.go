package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

var navigateCmd = &cobra.Command{
	Use:   "navigate <route-name|path>",
	Short: "Check whether a view may be opened",
	Long: `Run the navigation guard for a route and print where the client ends up.

The target is a route name such as "profile" or a concrete path such as
"/courses/3". Routes with parameters must be given as paths.

Examples:
  coursekit navigate profile
  coursekit navigate /courses/3/edit -o json`,
	Args: cobra.ExactArgs(1),
	RunE: runNavigate,
}

var routesCmd = &cobra.Command{
	Use:   "routes",
	Short: "List the route table",
	Args:  cobra.NoArgs,
	RunE:  runRoutes,
}

func init() {
	rootCmd.AddCommand(navigateCmd, routesCmd)
}

func runNavigate(cmd *cobra.Command, args []string) error {
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	nav, err := rt.Navigate(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return render(cmd.OutOrStdout(), nav, func(w io.Writer) {
		d := nav.Decision
		switch {
		case d.Allow:
			fmt.Fprintf(w, "Opened %s\n", nav.Path)
		case d.AccessDenied:
			fmt.Fprintf(w, "Access denied to %s, redirected to %s\n", nav.Route.Name, nav.Path)
		default:
			fmt.Fprintf(w, "Redirected to %s (%s)\n", nav.Path, d.Reason)
		}
	})
}

func runRoutes(cmd *cobra.Command, args []string) error {
	rt, cleanup, err := openRuntime(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	routes := rt.Routes.Routes()
	return render(cmd.OutOrStdout(), routes, func(w io.Writer) {
		for _, r := range routes {
			var notes []string
			if r.RequiresAuth {
				notes = append(notes, "auth")
			}
			for _, role := range r.RequiredRoles {
				notes = append(notes, string(role))
			}
			if r.Condition != "" {
				notes = append(notes, "if "+r.Condition)
			}
			fmt.Fprintf(w, "%-22s %-38s %s\n", r.Name, r.Path, strings.Join(notes, " "))
		}
	})
}
