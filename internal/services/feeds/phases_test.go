package feeds

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/archon-research/feedquery/internal/domain/entity"
	"github.com/archon-research/feedquery/internal/pkg/blockchain/codec"
	"github.com/archon-research/feedquery/internal/ports/outbound"
	"github.com/archon-research/feedquery/internal/testutil"
)

var testProxy = common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")

func aggregatorAddress(phase int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0xa990 + phase)))
}

// proxySetup describes the phases of a proxy on the mock node. A phase missing
// from slots reverts; a zero address models an unset slot.
type proxySetup struct {
	phaseID  uint16
	current  common.Address
	slots    map[uint16]common.Address
	versions map[common.Address]int64 // missing aggregators revert on version()
}

// install registers the proxy and returns the phases passed to phaseAggregators, in call order.
func (f *fixture) install(t *testing.T, p proxySetup) func() []uint16 {
	t.Helper()
	f.node.Return(testProxy, f.sel(codec.PhaseID), testutil.PackPhaseID(t, p.phaseID))
	f.node.Return(testProxy, f.sel(codec.Aggregator), testutil.PackAddress(t, p.current))

	var mu sync.Mutex
	var asked []uint16
	f.node.Handle(testProxy, f.sel(codec.PhaseAggregators), func(data []byte) ([]byte, bool) {
		phase := uint16(new(big.Int).SetBytes(data[4:36]).Uint64())
		mu.Lock()
		asked = append(asked, phase)
		mu.Unlock()
		addr, ok := p.slots[phase]
		if !ok {
			return nil, true
		}
		return testutil.PackAddress(t, addr), false
	})

	for addr, v := range p.versions {
		f.node.Return(addr, f.sel(codec.Version), testutil.PackVersion(t, v))
	}

	return func() []uint16 {
		mu.Lock()
		defer mu.Unlock()
		return append([]uint16(nil), asked...)
	}
}

func TestPhases_EnumeratesEachEarlierPhaseOnceInOneBatch(t *testing.T) {
	f := newFixture(t)
	asked := f.install(t, proxySetup{
		phaseID: 5,
		current: aggregatorAddress(5),
		slots: map[uint16]common.Address{
			1: aggregatorAddress(1),
			3: {},
			4: aggregatorAddress(4),
		},
		versions: map[common.Address]int64{
			aggregatorAddress(1): 2,
			aggregatorAddress(4): 4,
			aggregatorAddress(5): 6,
		},
	})

	report, err := f.svc.Phases(context.Background(), testProxy)
	if err != nil {
		t.Fatalf("Phases() error = %v", err)
	}

	got := asked()
	want := []uint16{1, 2, 3, 4}
	if len(got) != len(want) {
		t.Fatalf("phaseAggregators called for %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("phaseAggregators call %d = phase %d, want %d", i, got[i], want[i])
		}
	}

	// phaseId, aggregator, one enumerate batch, one version batch.
	if f.node.Requests() != 4 {
		t.Errorf("round trips = %d, want 4", f.node.Requests())
	}
	if f.node.LastBatchSize() != 3 {
		t.Errorf("version batch size = %d, want 3", f.node.LastBatchSize())
	}

	if report.PhaseID != 5 {
		t.Errorf("PhaseID = %d, want 5", report.PhaseID)
	}

	wantRecords := []struct {
		phase   uint16
		version int64
		current bool
	}{
		{1, 2, false},
		{4, 4, false},
		{5, 6, true},
	}
	if len(report.Records) != len(wantRecords) {
		t.Fatalf("len(Records) = %d, want %d", len(report.Records), len(wantRecords))
	}
	for i, w := range wantRecords {
		rec := report.Records[i]
		if rec.PhaseID != w.phase || rec.Version.Int64() != w.version || rec.Current != w.current {
			t.Errorf("Records[%d] = phase %d version %s current %v, want phase %d version %d current %v",
				i, rec.PhaseID, rec.Version, rec.Current, w.phase, w.version, w.current)
		}
		if rec.Aggregator != aggregatorAddress(int(w.phase)) {
			t.Errorf("Records[%d].Aggregator = %s", i, rec.Aggregator.Hex())
		}
	}

	if len(report.Failures) != 2 {
		t.Fatalf("len(Failures) = %d, want 2: %+v", len(report.Failures), report.Failures)
	}
	if report.Failures[0].Phase != 2 || !errors.Is(report.Failures[0].Err, outbound.ErrCallReverted) {
		t.Errorf("Failures[0] = %+v, want phase 2 reverted", report.Failures[0])
	}
	if report.Failures[1].Phase != 3 || !errors.Is(report.Failures[1].Err, ErrUnsetPhase) {
		t.Errorf("Failures[1] = %+v, want phase 3 unset", report.Failures[1])
	}

	current, ok := report.Current()
	if !ok || current.PhaseID != 5 {
		t.Errorf("Current() = %+v, %v; want phase 5", current, ok)
	}
}

func TestPhases_SinglePhaseSkipsEnumeration(t *testing.T) {
	f := newFixture(t)
	asked := f.install(t, proxySetup{
		phaseID:  1,
		current:  aggregatorAddress(1),
		versions: map[common.Address]int64{aggregatorAddress(1): 4},
	})

	report, err := f.svc.Phases(context.Background(), testProxy)
	if err != nil {
		t.Fatalf("Phases() error = %v", err)
	}
	if len(asked()) != 0 {
		t.Errorf("phaseAggregators called for %v, want none", asked())
	}
	if f.node.Requests() != 3 {
		t.Errorf("round trips = %d, want 3", f.node.Requests())
	}
	if len(report.Records) != 1 || !report.Records[0].Current {
		t.Errorf("Records = %+v, want the current phase only", report.Records)
	}
}

func TestPhases_VersionFailureIsReported(t *testing.T) {
	f := newFixture(t)
	f.install(t, proxySetup{
		phaseID:  2,
		current:  aggregatorAddress(2),
		slots:    map[uint16]common.Address{1: aggregatorAddress(1)},
		versions: map[common.Address]int64{aggregatorAddress(2): 4},
	})

	report, err := f.svc.Phases(context.Background(), testProxy)
	if err != nil {
		t.Fatalf("Phases() error = %v", err)
	}
	if len(report.Records) != 2 {
		t.Fatalf("len(Records) = %d, want 2", len(report.Records))
	}
	if report.Records[0].Version != nil {
		t.Errorf("Records[0].Version = %s, want nil", report.Records[0].Version)
	}
	if len(report.Failures) != 1 || report.Failures[0].Aggregator != aggregatorAddress(1) {
		t.Errorf("Failures = %+v, want the phase 1 aggregator", report.Failures)
	}
}

func TestPhases_Errors(t *testing.T) {
	t.Run("proxy without phases", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Phases(context.Background(), testProxy)
		if !errors.Is(err, outbound.ErrCallReverted) {
			t.Errorf("Phases() error = %v, want ErrCallReverted", err)
		}
		if err != nil && !strings.Contains(err.Error(), "current aggregator of "+testProxy.Hex()) {
			t.Errorf("Phases() error = %v, want it to name the proxy's current aggregator", err)
		}
	})

	t.Run("phase zero", func(t *testing.T) {
		f := newFixture(t)
		f.install(t, proxySetup{phaseID: 0, current: aggregatorAddress(1)})
		if _, err := f.svc.Phases(context.Background(), testProxy); err == nil {
			t.Error("expected error for phase 0")
		}
	})

	t.Run("transport failure aborts", func(t *testing.T) {
		f := newFixture(t)
		f.install(t, proxySetup{phaseID: 3, current: aggregatorAddress(3)})
		f.node.FailNextRequest()
		_, err := f.svc.Phases(context.Background(), testProxy)
		var transportErr *outbound.TransportError
		if !errors.As(err, &transportErr) {
			t.Errorf("Phases() error = %v, want *TransportError", err)
		}
	})
}

func TestAboveV2(t *testing.T) {
	records := []entity.PhaseRecord{
		{PhaseID: 1, Version: big.NewInt(1)},
		{PhaseID: 2, Version: big.NewInt(2)},
		{PhaseID: 3, Version: big.NewInt(3)},
		{PhaseID: 4, Version: nil},
		{PhaseID: 5, Version: big.NewInt(4)},
	}

	got := AboveV2(records)
	want := []uint16{3, 5}
	if len(got) != len(want) {
		t.Fatalf("AboveV2() = %+v, want phases %v", got, want)
	}
	for i, rec := range got {
		if rec.PhaseID != want[i] {
			t.Errorf("AboveV2()[%d].PhaseID = %d, want %d", i, rec.PhaseID, want[i])
		}
	}

	if len(AboveV2(nil)) != 0 {
		t.Error("AboveV2(nil) is not empty")
	}
}
