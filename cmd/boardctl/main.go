package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/sensor"
	"github.com/seekerror/logw"
)

var liftSettle = flag.Duration("lift_settle", 150*time.Millisecond, "Delay between lifting and placing a piece for -move, mimicking a human hand")

func init() {
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, `usage: boardctl [options]

BOARDCTL drives a simulated electronic chessboard from stdin commands, standing in for
pkg/sensor.LiveChess so pkg/orchestrator's state machine can be exercised without hardware.

Commands (one per line):
  move <uci>         lift the piece at <uci>'s from-square, then place it on the to-square
                      after -lift_settle (e.g. "move e2e4")
  led <sq> <mode>     set a single square's LED; mode is one of off, solid, slow, fast
  reset               restore the starting position
  show                print the current occupancy grid
  quit                exit

Options:
`)
		flag.PrintDefaults()
	}
}

func main() {
	flag.Parse()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := sensor.NewSimulated(sensor.StartingSquares)
	occ := sensor.StartingSquares

	go func() {
		err := sensor.Watch(ctx, s, func(occ sensor.Occupancy) {
			fmt.Printf("%v\n", s)
		})
		if err != nil && ctx.Err() == nil {
			logw.Errorf(ctx, "Watch stopped: %v", err)
		}
	}()

	fmt.Printf("%v\n", s)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := dispatch(ctx, s, &occ, line); err != nil {
			if errors.Is(err, errQuit) {
				return
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
	}
}

var errQuit = errors.New("quit")

// dispatch runs one REPL command. occ tracks the occupancy boardctl itself last pushed via
// Set, since Simulated.ScanBoard blocks until the next Set and so cannot be polled for the
// "current" position -- the background Watch goroutine in main is already the one goroutine
// consuming each ScanBoard update.
func dispatch(ctx context.Context, s *sensor.Simulated, occ *sensor.Occupancy, line string) error {
	fields := strings.Fields(line)

	switch fields[0] {
	case "quit", "exit":
		return errQuit

	case "show":
		fmt.Printf("%v\n", s)
		return nil

	case "reset":
		*occ = sensor.StartingSquares
		s.Set(*occ)
		return nil

	case "move":
		if len(fields) != 2 {
			return fmt.Errorf("usage: move <uci>, e.g. move e2e4")
		}
		return doMove(s, occ, fields[1])

	case "led":
		if len(fields) != 3 {
			return fmt.Errorf("usage: led <square> <off|solid|slow|fast>")
		}
		return doLED(ctx, s, fields[1], fields[2])

	default:
		return fmt.Errorf("unrecognized command: %v", fields[0])
	}
}

// doMove replays a move as two separate sensor readings, lift then place, the same two-step
// shape a physical board reports and pkg/orchestrator's playerMoveFromSquareState/
// completeMoveState expect. occ is boardctl's own record of what it last set, updated in place.
func doMove(s *sensor.Simulated, occ *sensor.Occupancy, uci string) error {
	m, err := board.ParseMove(uci)
	if err != nil {
		return err
	}

	lifted := *occ &^ board.BitMask(m.From)
	s.Set(lifted)
	time.Sleep(*liftSettle)

	placed := lifted | board.BitMask(m.To)
	s.Set(placed)
	*occ = placed
	return nil
}

func doLED(ctx context.Context, s *sensor.Simulated, squareStr, mode string) error {
	sq, err := board.ParseSquareStr(squareStr)
	if err != nil {
		return err
	}
	mask := board.BitMask(sq)

	var constant, slow, fast sensor.Occupancy
	switch mode {
	case "off":
	case "solid":
		constant = mask
	case "slow":
		slow = mask
	case "fast":
		fast = mask
	default:
		return fmt.Errorf("unrecognized LED mode: %v (want off, solid, slow, or fast)", mode)
	}
	return s.SetLEDs(ctx, constant, slow, 0, fast, 0)
}
