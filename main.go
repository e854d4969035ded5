// The main package for the outreach executable.
package main

import (
	"github.com/JakeFAU/reddit-outreach/cmd"
)

func main() {
	cmd.Execute()
}
