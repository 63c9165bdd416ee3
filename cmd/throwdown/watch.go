package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/vango-dev/throwdown/internal/errors"
	"github.com/vango-dev/throwdown/pkg/registry"
	"github.com/vango-dev/throwdown/pkg/wire"
)

func watchCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "watch [url]",
		Short: "Stream lifecycle events from an inspect server",
		Long: `Connect to the /events stream of a running inspect server and print
the registry snapshot followed by every lifecycle callback it fires.

The URL defaults to the configured inspect address. http and https URLs
are accepted and rewritten to ws and wss.`,
		Example: `  throwdown watch
  throwdown watch http://127.0.0.1:7070
  throwdown watch --json ws://10.0.0.5:7070/events`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := a.cfg.Inspect.Addr
			if len(args) == 1 {
				target = args[0]
			}
			u, err := eventsURL(target)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runWatch(ctx, u, cmd.OutOrStdout(), asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print one JSON object per frame")

	return cmd
}

// eventsURL turns an address or URL into the websocket URL of the
// events stream.
func eventsURL(target string) (string, error) {
	if !strings.Contains(target, "://") {
		target = "ws://" + target
	}
	u, err := url.Parse(target)
	if err != nil {
		return "", errors.New("E150").WithDetail("Invalid inspect URL " + target).Wrap(err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", errors.New("E150").WithDetail("Unsupported scheme " + u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/events"
	}
	return u.String(), nil
}

func runWatch(ctx context.Context, u string, out io.Writer, asJSON bool) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
		f, err := wire.DecodeFrame(data)
		if err != nil {
			return err
		}
		if err := printFrame(out, f, asJSON); err != nil {
			return err
		}
	}
}

// frameView is the JSON shape of a decoded frame.
type frameView struct {
	Type    string `json:"type"`
	Dropped bool   `json:"dropped,omitempty"`
	Body    any    `json:"body"`
}

func printFrame(w io.Writer, f *wire.Frame, asJSON bool) error {
	var (
		body any
		text string
		err  error
	)
	switch f.Type {
	case wire.FrameHello:
		var h wire.Hello
		if h, err = wire.DecodeHello(f.Payload); err == nil {
			body = h
			text = fmt.Sprintf("connected: protocol v%d, runtime started %s", h.Version, h.Started.Format(time.RFC3339))
		}
	case wire.FrameSnapshot:
		var entries []registry.EntryInfo
		if entries, err = wire.DecodeSnapshot(f.Payload); err == nil {
			body = entries
			var sb strings.Builder
			fmt.Fprintf(&sb, "%d live entries", len(entries))
			for _, e := range entries {
				fmt.Fprintf(&sb, "\n  %-12s %-10s <%s>", e.ID, e.Phase, e.Tag)
			}
			text = sb.String()
		}
	case wire.FrameEvent:
		ev, derr := wire.DecodeEvent(f.Payload)
		if err = derr; err == nil {
			body = map[string]any{"kind": ev.Kind.String(), "id": ev.ID, "tag": ev.Tag, "batch": ev.Batch, "time": ev.Time}
			text = fmt.Sprintf("batch %-3d %-8s %-10s <%s>", ev.Batch, ev.Kind, ev.ID, ev.Tag)
		}
	case wire.FrameError:
		m, derr := wire.DecodeError(f.Payload)
		if err = derr; err == nil {
			body = m
			text = "server error: " + m.Error()
		}
	default:
		return fmt.Errorf("unexpected frame %s", f.Type)
	}
	if err != nil {
		return fmt.Errorf("decode %s frame: %w", f.Type, err)
	}

	dropped := f.Flags.Has(wire.FlagDropped)
	if asJSON {
		return json.NewEncoder(w).Encode(frameView{Type: strings.ToLower(f.Type.String()), Dropped: dropped, Body: body})
	}
	if dropped {
		fmt.Fprintln(w, "(events dropped)")
	}
	_, err = fmt.Fprintln(w, text)
	return err
}
