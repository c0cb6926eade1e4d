// Command coursekit is a terminal client for the course platform.
package main

import "github.com/xu2799/it-platform-frontend/cmd/coursekit/cmd"

func main() {
	cmd.Execute()
}
