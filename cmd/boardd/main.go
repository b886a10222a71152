// boardd is the firmware-side daemon for an electronic chessboard: it watches the board's
// sensor grid, drives the board-interaction state machine, runs an embedded chess engine for
// solo play, and serves the remote-peer protocol to a companion app over TCP or WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/herohde/livechess-go/pkg/livechess"
	"github.com/seekerror/build"
	"github.com/seekerror/logw"

	"github.com/herohde/boardd/internal/storage"
	"github.com/herohde/boardd/pkg/board/fen"
	"github.com/herohde/boardd/pkg/engine"
	"github.com/herohde/boardd/pkg/eval"
	"github.com/herohde/boardd/pkg/orchestrator"
	"github.com/herohde/boardd/pkg/remotepeer"
	"github.com/herohde/boardd/pkg/search"
	"github.com/herohde/boardd/pkg/sensor"
)

var version = build.NewVersion(0, 1, 0)

var (
	sim      = flag.Bool("simulated", false, "Use an in-memory simulated board instead of a LiveChess eBoard")
	serial   = flag.String("serial", "auto", "eBoard selection by serial number (default: auto), ignored if -simulated")
	dataDir  = flag.String("data_dir", "boardd-data", "Directory for persisted settings and game history (badger + PGN archive)")
	addr     = flag.String("addr", ":8080", "Listen address for the remote-peer protocol (raw TCP)")
	httpAddr = flag.String("http_addr", ":8081", "Listen address for the remote-peer protocol over WebSocket")
	bookPath = flag.String("book", "", "Optional opening book file, one line of space-separated coordinate moves (e.g. e2e4 e7e5) per row")
	upgrader = websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096}
)

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: boardd [options]

BOARDD drives an electronic chessboard: sensor grid, LEDs, embedded engine and remote-peer link.
Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logw.Infof(ctx, "boardd %v starting", version)

	store, err := storage.Open(*dataDir+"/db", *dataDir+"/pgn")
	if err != nil {
		logw.Exitf(ctx, "Open storage failed: %v", err)
	}
	defer store.Close()

	src, err := newSensorSource(ctx)
	if err != nil {
		logw.Exitf(ctx, "Board setup failed: %v", err)
	}

	book, err := loadBook(*bookPath)
	if err != nil {
		logw.Exitf(ctx, "Load book failed: %v", err)
	}

	s := search.AlphaBeta{
		Eval: search.Quiescence{
			Eval: search.StaticEvaluator{Eval: eval.Material{}},
		},
	}
	e := engine.New(ctx, "boardd", "herohde", s)
	adapter := orchestrator.NewEngineAdapter(e, book)

	server := remotepeer.NewServer(nil)
	o := orchestrator.New(src, store, adapter, server)
	server.SetHandler(o)

	o.SetShutdownHandler(func(ctx context.Context) {
		logw.Infof(ctx, "Shutdown requested by WaitingToPowerOff, stopping")
		cancel()
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ln, err := net.Listen("tcp", *addr)
	if err != nil {
		logw.Exitf(ctx, "Listen on %v failed: %v", *addr, err)
	}
	go func() {
		if err := server.Serve(ctx, ln); err != nil && ctx.Err() == nil {
			logw.Errorf(ctx, "Serve(%v) failed: %v", *addr, err)
		}
	}()

	httpSrv := &http.Server{
		Addr: *httpAddr,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws, err := upgrader.Upgrade(w, r, nil)
			if err != nil {
				logw.Errorf(ctx, "WebSocket upgrade failed: %v", err)
				return
			}
			server.HandleConn(ctx, remotepeer.NewWebSocketConn(ws))
		}),
	}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logw.Errorf(ctx, "ListenAndServe(%v) failed: %v", *httpAddr, err)
		}
	}()

	go func() {
		<-ctx.Done()
		_ = ln.Close()
		_ = httpSrv.Close()
	}()

	if err := o.Run(ctx); err != nil && ctx.Err() == nil {
		logw.Exitf(ctx, "Run failed: %v", err)
	}
}

// newSensorSource establishes the physical board connection, mirroring cmd/livechess-uci's own
// AutoDetect/NewFeed/Setup sequence, or falls back to an in-memory Simulated source for bench
// testing without hardware.
func newSensorSource(ctx context.Context) (sensor.Source, error) {
	if *sim {
		return sensor.NewSimulated(sensor.StartingSquares), nil
	}

	id := livechess.EBoardSerial(*serial)
	if id == "auto" {
		auto, err := livechess.AutoDetect(ctx, livechess.DefaultClient)
		if err != nil {
			return nil, fmt.Errorf("autodetect: %w", err)
		}
		id = auto
	}

	client, events, err := livechess.NewFeed(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("feed for %v: %w", id, err)
	}
	if err := client.Setup(ctx, fen.Initial); err != nil {
		return nil, fmt.Errorf("setup board %v: %w", id, err)
	}

	return sensor.NewLiveChess(ctx, client, events), nil
}

func loadBook(path string) (engine.Book, error) {
	if path == "" {
		return engine.NewBook(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read book %v: %w", path, err)
	}

	var lines []engine.Line
	for _, s := range strings.Split(string(data), "\n") {
		if fields := strings.Fields(s); len(fields) > 0 {
			lines = append(lines, engine.Line(fields))
		}
	}
	return engine.NewBook(lines)
}
