package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/throwdown/pkg/component"
	"github.com/vango-dev/throwdown/pkg/dom"
	"github.com/vango-dev/throwdown/pkg/inspect"
	"github.com/vango-dev/throwdown/pkg/lifecycle"
	"github.com/vango-dev/throwdown/pkg/registry"
	"github.com/vango-dev/throwdown/pkg/store"
	"github.com/vango-dev/throwdown/pkg/storebind"
)

func demoCmd(a *app) *cobra.Command {
	var (
		steps    int
		interval time.Duration
		keep     bool
		serve    bool
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a counter bound to a store and print its lifecycle",
		Long: `Run a small counter app: a panel component holding two nodes bound
to a reducer store. The demo mounts the panel, clicks the counter a few
times and unmounts the panel again, printing every lifecycle callback.

With --serve the inspect server runs alongside; --keep leaves the panel
mounted and keeps running until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serve {
				a.cfg.Inspect.Enabled = true
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runDemo(ctx, a, cmd.OutOrStdout(), steps, interval, keep)
		},
	}

	cmd.Flags().IntVarP(&steps, "steps", "n", 5, "Number of counter clicks")
	cmd.Flags().DurationVar(&interval, "interval", 200*time.Millisecond, "Delay between clicks")
	cmd.Flags().BoolVar(&keep, "keep", false, "Keep the panel mounted and run until interrupted")
	cmd.Flags().BoolVar(&serve, "serve", false, "Start the inspect server")

	return cmd
}

// panel counts its own renders and wraps its children.
type panel struct {
	out io.Writer
}

func (p *panel) Render(self *component.Instance) *dom.Node {
	mounted, _ := self.GetState()["mounted"].(bool)
	return dom.Section(
		dom.Class("panel"),
		dom.Data("mounted", fmt.Sprint(mounted)),
		dom.P(fmt.Sprint(self.Props()["title"])),
		self.Props().Children(),
	)
}

func (p *panel) OnMount(self *component.Instance) {
	fmt.Fprintf(p.out, "panel %s mounted\n", self.ID())
	if err := self.SetState(registry.State{"mounted": true}); err != nil {
		fmt.Fprintf(p.out, "panel %s: %v\n", self.ID(), err)
	}
}

func (p *panel) OnUpdate(self *component.Instance) {
	fmt.Fprintf(p.out, "panel %s updated\n", self.ID())
}

func (p *panel) OnUnmount(self *component.Instance) {
	fmt.Fprintf(p.out, "panel %s unmounted\n", self.ID())
}

func counterReducer(state, action any) any {
	s := state.(map[string]any)
	next := maps.Clone(s)
	switch action {
	case "increment":
		next["count"] = s["count"].(int) + 1
	case "reset":
		next["count"] = 0
	default:
		return s
	}
	next["last"] = action
	return next
}

func pick(key string) storebind.Projector {
	return func(state any) map[string]any {
		return map[string]any{key: state.(map[string]any)[key]}
	}
}

func runDemo(ctx context.Context, a *app, out io.Writer, steps int, interval time.Duration, keep bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	root := dom.Div(dom.ID("app"))
	parts, err := newRuntime(a.cfg, root, a.logger)
	if err != nil {
		return err
	}
	rt := parts.rt
	rt.OnEvent(func(ev lifecycle.Event) {
		fmt.Fprintf(out, "batch %-3d %-8s %-10s <%s>\n", ev.Batch, ev.Kind, ev.ID, ev.Tag)
	})

	if a.cfg.Inspect.Enabled {
		srv := inspect.New(rt,
			inspect.WithAddr(a.cfg.Inspect.Addr),
			inspect.WithLogger(a.logger),
			inspect.WithGatherer(parts.metrics),
			inspect.WithEventBuffer(a.cfg.Inspect.EventBuffer),
		)
		go func() {
			if err := srv.ListenAndServe(ctx); err != nil {
				a.logger.Error("inspect server failed", "error", err)
				cancel()
			}
		}()
		fmt.Fprintf(out, "inspect server on http://%s\n", a.cfg.Inspect.Addr)
	}

	st := store.New(counterReducer, map[string]any{"count": 0, "last": ""})
	binding := storebind.Bind(rt, st)
	defer binding.Close()

	var click func()
	countNode, err := binding.Map(pick("count"), func(any) any { return "increment" }).
		Connect(func(p *storebind.Bound) *dom.Node {
			click = func() { p.Dispatch("click") }
			return dom.Button(dom.Data("count", fmt.Sprint(p.State()["count"])), "+1")
		})
	if err != nil {
		return err
	}
	lastNode, err := binding.Map(pick("last"), nil).
		Connect(func(p *storebind.Bound) *dom.Node {
			return dom.Span(dom.Data("last", fmt.Sprint(p.State()["last"])))
		})
	if err != nil {
		return err
	}
	_, panelNode, err := component.New(rt, &panel{out: out}, component.Props{"title": "counter"}, countNode, lastNode)
	if err != nil {
		return err
	}

	runErr := make(chan error, 1)
	go func() { runErr <- rt.Run(ctx) }()

	post := func(fn func()) bool {
		if err := rt.Post(fn); err != nil {
			return false
		}
		return true
	}
	post(func() { _ = root.AppendChild(panelNode) })

clicks:
	for range steps {
		select {
		case <-ctx.Done():
			break clicks
		case <-time.After(interval):
			post(func() { click() })
		}
	}

	if !keep {
		post(func() { _ = panelNode.Remove() })
	}
	done := make(chan struct{})
	if post(func() {
		fmt.Fprintf(out, "tree: %s\n", root)
		fmt.Fprintf(out, "live entries: %d\n", rt.Registry().Len())
		close(done)
	}) {
		select {
		case <-done:
		case <-ctx.Done():
		}
	}

	if keep {
		<-ctx.Done()
	}
	cancel()
	if err := <-runErr; err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
