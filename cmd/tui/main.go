package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Varun5711/shortbox/cmd/tui/ui"
	"github.com/Varun5711/shortbox/internal/config"
	"github.com/Varun5711/shortbox/internal/rpc"
	tea "github.com/charmbracelet/bubbletea"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Services.URLServiceAddr, "url-service gRPC address")
	flag.Parse()

	client, err := rpc.Dial(*addr, cfg.Services.RequestTimeout)
	if err != nil {
		fmt.Printf("Failed to connect to URL service: %v\n", err)
		os.Exit(1)
	}
	defer client.Close()

	p := tea.NewProgram(
		ui.NewModel(client),
		tea.WithAltScreen(),
	)

	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
