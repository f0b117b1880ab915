// Command tail connects to a chat-notify server and pretty-prints the event
// stream. Development aid: follow your own notifications without a browser.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	URL   string `envconfig:"NOTIFY_URL" default:"http://localhost:6687/events"`
	Token string `envconfig:"NOTIFY_TOKEN" required:"true"`
}

func main() {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		log.Fatalf("Config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, config.URL, nil)
	if err != nil {
		log.Fatalf("Bad URL: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+config.Token)
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream is intentionally endless.
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("Connection failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("Server refused the stream: %s", resp.Status)
	}

	color.Green.Println("Connected, streaming events (Ctrl-C to stop)")

	counts := make(map[string]int)
	scanner := bufio.NewScanner(resp.Body)

	var kind, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			kind = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		case line == "" && kind != "":
			printEvent(kind, data)
			counts[kind]++
			kind, data = "", ""
		}
	}

	fmt.Println()
	printSummary(counts)
}

func printEvent(kind, data string) {
	switch kind {
	case "gap":
		color.Red.Printf("%-16s %s\n", kind, data)
	case "message_created":
		color.Cyan.Printf("%-16s %s\n", kind, data)
	default:
		color.Yellow.Printf("%-16s %s\n", kind, data)
	}
}

func printSummary(counts map[string]int) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Event", "Count"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	for kind, count := range counts {
		table.Append([]string{kind, fmt.Sprintf("%d", count)})
	}
	table.Render()
}
