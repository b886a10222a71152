package orchestrator

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/herohde/boardd/pkg/board"
	"github.com/herohde/boardd/pkg/engine"
	"github.com/herohde/boardd/pkg/rules"
	"github.com/herohde/boardd/pkg/search"
	"github.com/herohde/boardd/pkg/search/searchctl"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
)

// MaxNormalSkill is the skill level, out of 20, above which the engine always plays at full
// strength and instead spends extra wall-clock time thinking.
const MaxNormalSkill = 8

// strengthDepth maps skill 1..MaxNormalSkill to a search depth limit: weaker skill levels
// search shallower, in addition to the flat 1-second soft time budget every level in this
// range gets. Indexed by skill-1.
var strengthDepth = [MaxNormalSkill]uint{1, 4, 7, 10, 13, 16, 18, 20}

// softTimeControl builds a searchctl.TimeControl whose Limits() soft cutoff equals want for
// either color, regardless of game clock semantics: Limits computes soft = remainder/(2*moves)
// with moves = Moves+1, so Moves=1 and remainder=4*want yields soft=want exactly.
func softTimeControl(want time.Duration) searchctl.TimeControl {
	remainder := 4 * want
	return searchctl.TimeControl{White: remainder, Black: remainder, Moves: 1}
}

// EngineAdapter wraps pkg/engine.Engine plus an opening book behind the single asynchronous
// operation the CalculateEngineMove state needs: given a game, eventually produce one move.
type EngineAdapter struct {
	e    *engine.Engine
	book engine.Book
	rand *rand.Rand
}

func NewEngineAdapter(e *engine.Engine, book engine.Book) *EngineAdapter {
	if book == nil {
		book = engine.NoBook
	}
	return &EngineAdapter{e: e, book: book, rand: rand.New(rand.NewSource(1))}
}

// Query asynchronously computes a move for g's current position at g's configured skill, then
// invokes onDone on a new goroutine (never the caller's). onDone is always called exactly once,
// with a non-nil error if no move could be produced. The caller is expected to post onDone's
// body back onto its own single-goroutine event loop rather than mutate shared state directly.
func (a *EngineAdapter) Query(ctx context.Context, g *rules.Game, onDone func(board.Move, error)) {
	go a.query(ctx, g, onDone)
}

func (a *EngineAdapter) query(ctx context.Context, g *rules.Game, onDone func(board.Move, error)) {
	skill := g.EngineSkill()
	if skill <= 0 {
		skill = 20
	}

	odds := float64(skill) / MaxNormalSkill
	if a.rand.Float64() < odds {
		if moves, err := a.book.Find(ctx, g.FEN()); err != nil {
			logw.Errorf(ctx, "Book lookup failed for %v: %v", g.FEN(), err)
		} else if len(moves) > 0 {
			time.Sleep(200 * time.Millisecond)
			onDone(moves[a.rand.Intn(len(moves))], nil)
			return
		}
	}

	var depth uint
	var think time.Duration
	if skill <= MaxNormalSkill {
		depth = strengthDepth[skill-1]
		think = time.Second
	} else {
		depth = 20
		think = time.Duration(skill-7) * time.Second
	}

	if err := a.e.Reset(ctx, g.FEN()); err != nil {
		onDone(board.Move{}, err)
		return
	}

	out, err := a.e.Analyze(ctx, searchctl.Options{
		DepthLimit:  lang.Some(depth),
		TimeControl: lang.Some(softTimeControl(think)),
	})
	if err != nil {
		onDone(board.Move{}, err)
		return
	}

	var last search.PV
	for pv := range out {
		last = pv
	}

	if len(last.Moves) == 0 {
		onDone(board.Move{}, errNoMove)
		return
	}
	onDone(last.Moves[0], nil)
}

var errNoMove = errors.New("engine produced no move")
