// The main package for the sitesearch-crawler executable.
package main

import (
	"github.com/JakeFAU/sitesearch-crawler/cmd"
)

func main() {
	cmd.Execute()
}
