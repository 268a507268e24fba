package main

import (
	"os"

	"github.com/ZFlareUI/DevMeet-AI-sub001/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
