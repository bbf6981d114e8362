package main

import "github.com/davidsmithrojas/storefront/internal/cmd"

func main() {
	cmd.Execute()
}
