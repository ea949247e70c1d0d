package main

import "ebay-sales-analytics/cmd"

func main() {
	cmd.Execute()
}
