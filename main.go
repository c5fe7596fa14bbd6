package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"RoomBoard/internal/config"
	"RoomBoard/internal/engine"
	"RoomBoard/internal/export"
	boardnet "RoomBoard/internal/net"
	"RoomBoard/internal/render"
	"RoomBoard/internal/server"
	"RoomBoard/internal/store"
	"RoomBoard/internal/ui"
)

const (
	CustomURLScheme = "roomboard://"
	defaultConfig   = "roomboard.toml"
	discoverTimeout = 3 * time.Second
)

func main() {
	args := os.Args[1:]
	cmd := "draw"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}
	// a share link opens the board on that server
	if strings.HasPrefix(cmd, CustomURLScheme) {
		args = append([]string{"-server", "http://" + strings.TrimSuffix(strings.TrimPrefix(cmd, CustomURLScheme), "/")}, args...)
		cmd = "draw"
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "draw":
		err = runDraw(args)
	case "export":
		err = runExport(args)
	default:
		fmt.Fprintf(os.Stderr, "usage: %s [serve|draw|export] [flags]\n", os.Args[0])
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", cmd, err)
	}
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", defaultConfig, "config file")
	addr := fs.String("addr", "", "listen address")
	fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, ctx := errgroup.WithContext(ctx)

	hub := server.NewHub()
	opts := []server.Option{server.WithOrigin(cfg.Server.Origin)}
	var backend store.Backend = store.NewMemoryBackend()
	if cfg.Server.RedisAddr != "" {
		rb, err := store.DialRedis(ctx, cfg.Server.RedisAddr, cfg.Server.RedisDB)
		if err != nil {
			return err
		}
		defer rb.Close()
		backend = rb
		relay := server.NewRedisRelay(rb.Redis(), hub)
		opts = append(opts, server.WithNotifier(relay))
		g.Go(func() error { return relay.Run(ctx) })
	} else {
		log.Println("[SERVER] No redis configured, shapes are kept in memory")
	}

	srv := server.New(store.NewService(backend), hub, opts...)
	g.Go(func() error { return srv.ListenAndServe(ctx, cfg.Server.Addr) })

	if cfg.Server.Advertise {
		port, err := boardnet.PortOf(cfg.Server.Addr)
		if err != nil {
			return err
		}
		if ip, err := boardnet.GetOutgoingIP(); err == nil {
			log.Printf("[SERVER] Share link: %s", boardnet.ShareLink(ip, port))
		}
		g.Go(func() error {
			if err := boardnet.AdvertiseUntil(ctx, port); err != nil {
				log.Printf("[MDNS] Advertising disabled: %v", err)
			}
			return nil
		})
	}
	return g.Wait()
}

type clientFlags struct {
	configPath   *string
	server       *string
	workspace    *string
	user         *string
	conversation *string
}

func addClientFlags(fs *flag.FlagSet) clientFlags {
	return clientFlags{
		configPath:   fs.String("config", defaultConfig, "config file"),
		server:       fs.String("server", "", "board server URL (empty discovers one on the LAN)"),
		workspace:    fs.String("workspace", "", "workspace id"),
		user:         fs.String("user", "", "user id"),
		conversation: fs.String("conversation", "", "conversation to attach a new room to"),
	}
}

// load merges the flags over the config file.
func (f clientFlags) load() (config.Config, error) {
	cfg, err := config.Load(*f.configPath)
	if err != nil {
		return cfg, err
	}
	for dst, v := range map[*string]string{
		&cfg.Client.ServerURL:    *f.server,
		&cfg.Client.Workspace:    *f.workspace,
		&cfg.Client.User:         *f.user,
		&cfg.Client.Conversation: *f.conversation,
	} {
		if v != "" {
			*dst = v
		}
	}
	if cfg.Client.User == "" {
		cfg.Client.User = "guest-" + uuid.NewString()[:8]
		log.Printf("[UI] No user configured, drawing as %s", cfg.Client.User)
	}
	if cfg.Client.ServerURL == "" {
		url, err := boardnet.Discover(discoverTimeout)
		if err != nil {
			return cfg, err
		}
		cfg.Client.ServerURL = url
	}
	return cfg, nil
}

// join resolves the caller's membership and the workspace room.
func join(ctx context.Context, client *store.Client, cfg config.ClientConfig) (store.RoomContext, error) {
	member, err := client.Join(ctx, cfg.Workspace)
	if err != nil {
		return store.RoomContext{}, fmt.Errorf("join workspace %s: %w", cfg.Workspace, err)
	}
	room, err := client.ResolveRoom(ctx, cfg.Workspace, cfg.Conversation)
	if err != nil {
		return store.RoomContext{}, fmt.Errorf("resolve room: %w", err)
	}
	return store.RoomContext{
		RoomID:         room.ID,
		WorkspaceID:    cfg.Workspace,
		MemberID:       member.ID,
		ConversationID: room.ConversationID,
	}, nil
}

func runDraw(args []string) error {
	fs := flag.NewFlagSet("draw", flag.ExitOnError)
	flags := addClientFlags(fs)
	fs.Parse(args)

	cfg, err := flags.load()
	if err != nil {
		return err
	}
	style, err := cfg.Render.Style()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	client := store.NewClient(cfg.Client.ServerURL, cfg.Client.User)
	room, err := join(ctx, client, cfg.Client)
	if err != nil {
		return err
	}

	app := ui.NewApp("RoomBoard - "+cfg.Client.Workspace, float32(cfg.Client.Width), float32(cfg.Client.Height), cfg.Render.StrokeWidth)
	board := app.Board()
	eng := engine.New(ctx, room, client,
		engine.WithRenderer(render.New(style)),
		engine.WithOnChange(board.Changed),
		engine.WithOnError(board.ShowError),
	)
	board.SetPainter(eng)
	eng.Attach(board)
	board.SetStatus(fmt.Sprintf("Connected to %s as %s", cfg.Client.ServerURL, cfg.Client.User))

	go watch(ctx, client, eng, board)

	app.Run(eng, cfg.Client.ServerURL)
	cancel()
	eng.Close()
	eng.Wait()
	return nil
}

// watch reloads the snapshot on every change event, reconnecting until ctx is done.
func watch(ctx context.Context, client *store.Client, eng *engine.Engine, board *ui.BoardWidget) {
	for {
		err := client.Watch(ctx, eng.Room().RoomID, func(store.Event) {
			rctx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			eng.Reload(rctx)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			log.Printf("[UI] Live updates interrupted: %v", err)
			board.SetStatus("Live updates interrupted, retrying")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
}

func runExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	flags := addClientFlags(fs)
	out := fs.String("out", "board.pdf", "output file")
	fs.Parse(args)

	cfg, err := flags.load()
	if err != nil {
		return err
	}
	style, err := cfg.Render.Style()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	client := store.NewClient(cfg.Client.ServerURL, cfg.Client.User)
	room, err := join(ctx, client, cfg.Client)
	if err != nil {
		return err
	}

	var loadErr error
	eng := engine.New(ctx, room, client, engine.WithOnError(func(err error) { loadErr = err }))
	defer eng.Close()
	if loadErr != nil {
		return loadErr
	}

	f, err := os.Create(*out)
	if err != nil {
		return fmt.Errorf("create %s: %w", *out, err)
	}
	defer f.Close()
	shapes := eng.Shapes()
	if err := export.WritePDF(f, shapes, style, float64(cfg.Client.Width), float64(cfg.Client.Height)); err != nil {
		return err
	}
	log.Printf("Exported %d shapes to %s", len(shapes), *out)
	return nil
}
