package cli

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kingrea/signroll/internal/eventbridge"
	"github.com/kingrea/signroll/internal/submit"
	"github.com/kingrea/signroll/internal/tui"
)

// SignOptions holds flags for the sign command.
type SignOptions struct {
	Memory bool
}

// NewSignCommand creates the sign command.
func NewSignCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SignOptions{}

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Open the signature form",
		Long: `Open the interactive signature form.

Draw a signature with the mouse, pick a name, and press enter. Signatures
are written to the shared slot database unless --memory is given.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSign(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Memory, "memory", false, "keep signatures in memory only")

	return cmd
}

func runSign(cmd *cobra.Command, rootOpts *RootOptions, opts *SignOptions) error {
	rt, err := openRuntime(rootOpts, opts.Memory)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	origin := uuid.NewString()
	verbosef(cmd, rootOpts, "instance %s using %s", origin, rt.cfg.StorePath())

	var submitOpts []submit.Option
	appOpts := []tui.AppOption{
		tui.WithLogbook(rt.book),
		tui.WithRefreshInterval(rt.cfg.RefreshInterval()),
		tui.WithContext(ctx),
	}
	settings := eventbridge.SettingsFromConfig(rt.cfg)
	if settings.Enabled {
		b, err := startBridge(ctx, rt, settings, origin)
		if err != nil {
			rt.diag.Printf("sign: bridge unavailable: %v", err)
			rt.book.Warn("Bridge unavailable · %v", err)
		} else {
			defer b.Close()
			submitOpts = append(submitOpts, submit.WithNotifier(b.notifier))
			appOpts = append(appOpts, tui.WithEvents(b.sub.Events))
			verbosef(cmd, rootOpts, "bridge listening on %s, %d peer(s)", b.server.BaseURL(), len(settings.Peers))
		}
	}

	app := tui.NewApp(rt.service(submitOpts...), rt.store, rt.surface, appOpts...)
	p := tea.NewProgram(app,
		tea.WithAltScreen(),       // Use alternate screen buffer (like vim does)
		tea.WithMouseCellMotion(), // Report drags so the pad can draw
		tea.WithReportFocus(),     // Losing focus ends a stroke
	)
	if _, err := p.Run(); err != nil {
		return WrapExitError(ExitFailure, "run form", err)
	}
	return nil
}

// bridge bundles the running server, its router subscription, and the
// notifier for outgoing events.
type bridge struct {
	server   *eventbridge.Server
	sub      eventbridge.Subscription
	notifier *eventbridge.Notifier
}

func startBridge(ctx context.Context, rt *runtime, settings eventbridge.Settings, origin string) (*bridge, error) {
	router := eventbridge.NewRouter(
		eventbridge.RouterWithOrigin(origin),
		eventbridge.RouterWithLogger(rt.diag),
	)
	server := eventbridge.NewServer(settings,
		eventbridge.WithProcessor(router),
		eventbridge.WithStatusProvider(eventbridge.StatusProviderFunc(func(ctx context.Context) (eventbridge.RosterStatus, error) {
			return rt.status(ctx), nil
		})),
		eventbridge.WithLogger(rt.diag),
	)
	if err := server.Start(ctx); err != nil {
		return nil, err
	}
	notifier := eventbridge.NewNotifier(settings, origin, rt.store.Key(), rt.store.Revision,
		eventbridge.NotifierWithLogger(rt.diag))
	return &bridge{server: server, sub: router.Subscribe(), notifier: notifier}, nil
}

func (b *bridge) Close() {
	b.sub.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = b.server.Shutdown(ctx)
}
