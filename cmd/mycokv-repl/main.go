// Command mycokv-repl is a minimal interactive client: it dials a running
// mycokv-server, sends each line read from stdin, and prints the reply.
// It is an external collaborator of the server, not part of the engine.
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"

	"github.com/jessevdk/go-flags"
	"golang.org/x/term"
)

type options struct {
	Host string `short:"h" long:"host" description:"server host" value-name:"host" default:"localhost"`
	Port uint16 `short:"p" long:"port" description:"server port" value-name:"port" default:"6922"`
}

func main() {
	var opts options
	parser := flags.NewParser(&opts, flags.Default)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot connect to %s: %s\n", addr, err.Error())
		os.Exit(1)
	}
	defer conn.Close()

	interactive := term.IsTerminal(int(os.Stdin.Fd()))

	stdin := bufio.NewScanner(os.Stdin)
	server := bufio.NewReader(conn)

	for {
		if interactive {
			fmt.Print("mycokv> ")
		}
		if !stdin.Scan() {
			return
		}
		line := stdin.Text()
		if line == "" {
			continue
		}

		if _, err := conn.Write([]byte(line + "\n")); err != nil {
			fmt.Fprintf(os.Stderr, "write failed: %s\n", err.Error())
			return
		}

		reply, err := server.ReadString('\n')
		if err != nil {
			fmt.Fprintf(os.Stderr, "connection closed: %s\n", err.Error())
			return
		}
		fmt.Print(reply)
	}
}
