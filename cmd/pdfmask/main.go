package main

import "github.com/MeKo-Tech/pdfmask/cmd/pdfmask/cmd"

func main() {
	cmd.Execute()
}
