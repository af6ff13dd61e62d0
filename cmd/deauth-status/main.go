// Command deauth-status shows the workstation daemon's telemetry, either as
// a one-shot report or as a live view fed by the status stream.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"golang.org/x/term"

	"github.com/BrandonDHaskell/DeAuth/workstation/internal/deauth/types"
)

func main() {
	addr := flag.String("addr", "http://localhost:8080", "daemon HTTP address")
	watch := flag.Bool("watch", false, "follow the live status stream")
	all := flag.Bool("all", false, "list every measurement, not just the last ten")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	r := renderer{width: terminalWidth(), all: *all}

	var err error
	if *watch {
		err = follow(ctx, *addr, r)
	} else {
		err = once(ctx, *addr, r)
	}
	if err != nil && ctx.Err() == nil {
		fmt.Fprintln(os.Stderr, r.errorBox(err, *addr))
		os.Exit(1)
	}
}

func once(ctx context.Context, addr string, r renderer) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(addr, "/")+"/v1/status", nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status endpoint returned %s", resp.Status)
	}

	var snap types.StatusSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}
	fmt.Println(r.render(snap))
	return nil
}

func follow(ctx context.Context, addr string, r renderer) error {
	url := "ws" + strings.TrimPrefix(strings.TrimRight(addr, "/"), "http") + "/v1/status/stream"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(websocket.StatusNormalClosure, "bye") }()

	for {
		var snap types.StatusSnapshot
		if err := wsjson.Read(ctx, conn, &snap); err != nil {
			return err
		}
		// Clear screen and home the cursor before each frame.
		fmt.Print("\033[H\033[2J")
		fmt.Println(r.render(snap))
	}
}

func terminalWidth() int {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return 80
	}
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}
