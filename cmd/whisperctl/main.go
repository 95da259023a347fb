package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/whispernote/whisperd/pkg/client"
)

var (
	socketPath = flag.String("socket", "/tmp/whisperd.sock", "Unix socket path")
	command    = flag.String("cmd", "", "Command to send (e.g., 'STATUS', 'DECODE:/path/rx.wav')")
)

func main() {
	flag.Parse()

	if *socketPath == "" {
		fmt.Fprintf(os.Stderr, "Socket path is required\n")
		os.Exit(1)
	}

	// If no command specified, show interactive help
	if *command == "" {
		if len(flag.Args()) > 0 {
			*command = strings.Join(flag.Args(), " ")
		} else {
			showHelp()
			return
		}
	}

	// Create socket client
	client := client.NewSocketClient(*socketPath)

	// Send command
	response, err := client.SendCommand(*command)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// Print response
	fmt.Printf("%s\n", response.String())
}

func showHelp() {
	fmt.Println("whisperctl - whisperd Control Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  %s [options] <command>\n", os.Args[0])
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -socket <path>    Unix socket path (default: /tmp/whisperd.sock)")
	fmt.Println("  -cmd <command>    Command to send")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  STATUS                        Get daemon status")
	fmt.Println("  ENCODE:<base64> [path]        Encode a payload to a WAV file")
	fmt.Println("  ENCODERF:<base64>             Encode a payload for RF transmission")
	fmt.Println("  DECODE:<path>                 Decode a WAV capture")
	fmt.Println("  TRANSMISSIONS                 Get recent transmissions")
	fmt.Println("  TRANSMISSIONS:10              Get last 10 transmissions")
	fmt.Println("  TRANSMISSIONS:direction:TX    Filter by direction")
	fmt.Println("  PROFILE:get                   Get the active modulation profile")
	fmt.Println("  PROFILE:set:<key>:<value>     Update a profile field")
	fmt.Println("  PING                          Test connection")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Printf("  %s STATUS\n", os.Args[0])
	fmt.Printf("  %s 'ENCODE:eyJhbXQiOjF9 /tmp/tx.wav'\n", os.Args[0])
	fmt.Printf("  %s DECODE:/tmp/rx.wav\n", os.Args[0])
	fmt.Printf("  echo 'STATUS' | nc -U /tmp/whisperd.sock\n")
}
