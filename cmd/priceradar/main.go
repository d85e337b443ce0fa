package main

import "PriceRadar/cmd/priceradar/cmd"

func main() {
	cmd.Execute()
}
