package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"skillswap/internal/profile"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	asFlag := flag.String("as", "", "participant id to act as (defaults to the profile name)")
	jsonFlag := flag.Bool("json", false, "output raw JSON")
	flag.Parse()

	profileName := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(profileName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	participant := *asFlag
	if participant == "" {
		participant = profileName
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c := newClient(profile.SocketPath(profileName), participant, *jsonFlag)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		c.get(ctx, "/healthz")
	case "connections":
		c.get(ctx, "/v1/connections")
	case "connect":
		requireArgs(args, 2, "swapctl connect <participant>")
		c.post(ctx, "/v1/connections", map[string]string{"to": args[1]})
	case "accept":
		requireArgs(args, 2, "swapctl accept <relationship-id>")
		c.post(ctx, "/v1/connections/"+args[1]+"/accept", nil)
	case "reject":
		requireArgs(args, 2, "swapctl reject <relationship-id>")
		c.post(ctx, "/v1/connections/"+args[1]+"/reject", nil)
	case "cancel":
		requireArgs(args, 2, "swapctl cancel <relationship-id>")
		c.post(ctx, "/v1/connections/"+args[1]+"/cancel", nil)
	case "sync":
		c.post(ctx, "/v1/connections/sync", nil)
	case "send":
		requireArgs(args, 3, "swapctl send <relationship-id> <body>")
		c.post(ctx, "/v1/conversations/"+args[1]+"/messages", map[string]string{"body": args[2]})
	case "messages":
		requireArgs(args, 2, "swapctl messages <relationship-id>")
		c.get(ctx, "/v1/conversations/"+args[1]+"/messages?grouped=true")
	case "notifications":
		c.get(ctx, "/v1/notifications")
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: swapctl [--profile <name>] [--as <participant>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                     Check the daemon")
	fmt.Fprintln(os.Stderr, "  connections                List relationships")
	fmt.Fprintln(os.Stderr, "  connect <participant>      Send a connection request")
	fmt.Fprintln(os.Stderr, "  accept <relationship-id>   Accept a request")
	fmt.Fprintln(os.Stderr, "  reject <relationship-id>   Reject a request")
	fmt.Fprintln(os.Stderr, "  cancel <relationship-id>   Withdraw a sent request")
	fmt.Fprintln(os.Stderr, "  sync                       Pull relationships from the backend")
	fmt.Fprintln(os.Stderr, "  send <relationship-id> <body>  Send a message")
	fmt.Fprintln(os.Stderr, "  messages <relationship-id>  Show the conversation")
	fmt.Fprintln(os.Stderr, "  notifications              Show the notification feed")
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, "usage: "+usage)
		os.Exit(1)
	}
}

// client speaks HTTP over the profile daemon's unix socket.
type client struct {
	http        *http.Client
	participant string
	rawJSON     bool
}

func newClient(socketPath, participant string, rawJSON bool) *client {
	return &client{
		http: &http.Client{
			Transport: &http.Transport{
				DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
					var d net.Dialer
					return d.DialContext(ctx, "unix", socketPath)
				},
			},
		},
		participant: participant,
		rawJSON:     rawJSON,
	}
}

func (c *client) get(ctx context.Context, path string) {
	c.do(ctx, http.MethodGet, path, nil)
}

func (c *client) post(ctx context.Context, path string, body any) {
	c.do(ctx, http.MethodPost, path, body)
}

func (c *client) do(ctx context.Context, method, path string, body any) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://daemon"+path, reader)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	req.Header.Set("X-Participant-ID", c.participant)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot reach daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if c.rawJSON {
		fmt.Println(string(payload))
	} else {
		var pretty bytes.Buffer
		if json.Indent(&pretty, payload, "", "  ") == nil {
			fmt.Println(pretty.String())
		} else {
			fmt.Println(string(payload))
		}
	}
	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}
