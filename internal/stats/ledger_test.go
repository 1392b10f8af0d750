package stats

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestRecord_Cashout(t *testing.T) {
	var r Record
	r.RecordCashout(50, 99)

	if r.Wins != 1 || r.TotalGames != 1 {
		t.Errorf("wins=%d totalGames=%d, want 1 and 1", r.Wins, r.TotalGames)
	}
	if r.TotalBet != 50 || r.TotalWon != 99 {
		t.Errorf("totalBet=%v totalWon=%v, want 50 and 99", r.TotalBet, r.TotalWon)
	}
	if r.Net != 49 || r.Profit != 49 {
		t.Errorf("net=%v profit=%v, want 49 and 49", r.Net, r.Profit)
	}
	if r.Loss != 0 {
		t.Errorf("loss = %v, want 0", r.Loss)
	}
}

func TestRecord_CashoutBelowStake(t *testing.T) {
	var r Record
	r.RecordCashout(100, 99)

	if r.Net != -1 {
		t.Errorf("net = %v, want -1", r.Net)
	}
	if r.Profit != 0 || r.Loss != 0 {
		t.Errorf("profit=%v loss=%v, want 0 and 0", r.Profit, r.Loss)
	}
}

func TestRecord_Loss(t *testing.T) {
	var r Record
	r.RecordLoss(50)

	if r.Losses != 1 || r.TotalGames != 1 {
		t.Errorf("losses=%d totalGames=%d, want 1 and 1", r.Losses, r.TotalGames)
	}
	if r.Loss != 50 || r.Net != -50 || r.TotalBet != 50 {
		t.Errorf("loss=%v net=%v totalBet=%v, want 50 -50 50", r.Loss, r.Net, r.TotalBet)
	}
}

func TestLedger_TotalsTrackAllPlayers(t *testing.T) {
	l := NewLedger(nil, zap.NewNop())

	l.RecordCashout("alice", 50, 99)
	l.RecordLoss("bob", 20)
	l.RecordLoss("alice", 10)

	alice := l.Get("alice")
	if alice.Wins != 1 || alice.Losses != 1 || alice.TotalGames != 2 {
		t.Errorf("alice = %+v", alice)
	}
	totals := l.Totals()
	if totals.TotalGames != totals.Wins+totals.Losses {
		t.Errorf("totalGames %d != wins %d + losses %d", totals.TotalGames, totals.Wins, totals.Losses)
	}
	if totals.TotalGames != 3 || totals.TotalBet != 80 {
		t.Errorf("totals = %+v, want 3 games and 80 bet", totals)
	}
	if got := l.Get("nobody"); got != (Record{}) {
		t.Errorf("Get(nobody) = %+v, want zero", got)
	}
}

func TestLedger_Top(t *testing.T) {
	l := NewLedger(nil, zap.NewNop())
	l.RecordCashout("a", 10, 30)
	l.RecordLoss("b", 10)
	l.RecordCashout("c", 10, 50)

	top := l.Top(2)
	if len(top) != 2 {
		t.Fatalf("len(Top(2)) = %d, want 2", len(top))
	}
	if top[0].ParticipantID != "c" || top[1].ParticipantID != "a" {
		t.Errorf("Top(2) = %v, %v; want c, a", top[0].ParticipantID, top[1].ParticipantID)
	}
}

func TestLedger_FileBackendSurvivesRestart(t *testing.T) {
	backend, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error: %v", err)
	}

	l := NewLedger(backend, zap.NewNop())
	l.RecordCashout("alice", 50, 99)
	l.RecordLoss("bob", 50)

	reopened := NewLedger(backend, zap.NewNop())
	if got := reopened.Get("alice"); got.Wins != 1 || got.TotalWon != 99 {
		t.Errorf("alice after reload = %+v", got)
	}
	if got := reopened.Get("bob"); got.Losses != 1 || got.Net != -50 {
		t.Errorf("bob after reload = %+v", got)
	}
	if got := reopened.Totals(); got.TotalGames != 2 || got.TotalBet != 100 {
		t.Errorf("totals after reload = %+v", got)
	}
}

type failingBackend struct{}

func (failingBackend) Load(context.Context) (Snapshot, error) {
	return Snapshot{}, errors.New("disk gone")
}

func (failingBackend) Save(context.Context, string, Record, Record) error {
	return errors.New("disk gone")
}

func TestLedger_PersistenceFailureIsSwallowed(t *testing.T) {
	l := NewLedger(failingBackend{}, zap.NewNop())
	l.RecordLoss("alice", 5)

	if got := l.Get("alice"); got.Losses != 1 {
		t.Errorf("alice = %+v, want one loss kept in memory", got)
	}
}

func TestRecord_WinRate(t *testing.T) {
	if got := (Record{}).WinRate(); got != 0 {
		t.Errorf("WinRate() of empty = %v, want 0", got)
	}
	r := Record{Wins: 1, Losses: 3, TotalGames: 4}
	if got := r.WinRate(); got != 0.25 {
		t.Errorf("WinRate() = %v, want 0.25", got)
	}
}
