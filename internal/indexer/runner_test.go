package indexer

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"poolGraph/internal/model"
)

type fakeSource struct {
	chainID    int64
	head       uint64
	logs       []types.Log
	filterErrs int
	tsCalls    map[uint64]int
	ranges     []BlockRange
}

func (f *fakeSource) GetChainID(context.Context) (*big.Int, error) {
	return big.NewInt(f.chainID), nil
}

func (f *fakeSource) LatestBlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func (f *fakeSource) BlockTimestamp(_ context.Context, number uint64) (uint64, error) {
	if f.tsCalls == nil {
		f.tsCalls = make(map[uint64]int)
	}
	f.tsCalls[number]++
	return 1_700_000_000 + number*12, nil
}

func (f *fakeSource) FilterLogs(_ context.Context, from, to uint64, _ []common.Address, _ []common.Hash) ([]types.Log, error) {
	if f.filterErrs > 0 {
		f.filterErrs--
		return nil, errors.New("rpc timeout")
	}
	f.ranges = append(f.ranges, BlockRange{From: from, To: to})
	var out []types.Log
	for _, log := range f.logs {
		if log.BlockNumber >= from && log.BlockNumber <= to {
			out = append(out, log)
		}
	}
	return out, nil
}

type recordingSink struct {
	batches [][]model.LogRecord
	err     error
}

func (s *recordingSink) PutLogBatch(_ context.Context, logs []model.LogRecord) error {
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, append([]model.LogRecord(nil), logs...))
	return nil
}

func chainLog(block uint64, index uint) types.Log {
	return types.Log{
		Address:     common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		Topics:      []common.Hash{common.HexToHash("0x01")},
		Data:        []byte{0x01},
		BlockNumber: block,
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(block)),
		TxHash:      common.HexToHash("0xbeef"),
		Index:       index,
	}
}

func testRunConfig(t *testing.T, from, to uint64) RunConfig {
	return RunConfig{
		FromBlock:         from,
		ToBlock:           to,
		Addresses:         []common.Address{common.HexToAddress("0xaa")},
		BatchSize:         2,
		CheckpointPath:    filepath.Join(t.TempDir(), "checkpoint.json"),
		CheckpointEnabled: true,
		MaxRetries:        2,
		RetryBackoff:      time.Millisecond,
	}
}

func TestRunnerDeliversSortedBatches(t *testing.T) {
	source := &fakeSource{
		chainID:    1,
		filterErrs: 1,
		logs: []types.Log{
			chainLog(11, 3),
			chainLog(10, 7),
			chainLog(11, 0),
			chainLog(11, 0),
			chainLog(12, 1),
		},
	}
	sink := &recordingSink{}
	cfg := testRunConfig(t, 10, 12)

	if err := NewRunner(cfg, source, sink, nil).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(sink.batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(sink.batches))
	}
	first := sink.batches[0]
	if len(first) != 3 {
		t.Fatalf("expected duplicate dropped, got %d records", len(first))
	}
	wantOrder := []model.Cursor{{BlockNumber: 10, LogIndex: 7}, {BlockNumber: 11, LogIndex: 0}, {BlockNumber: 11, LogIndex: 3}}
	for i, want := range wantOrder {
		if got := first[i].Cursor(); got != want {
			t.Fatalf("record %d: got %+v want %+v", i, got, want)
		}
	}
	if first[0].Timestamp != 1_700_000_120 || first[0].ChainID != 1 {
		t.Fatalf("unexpected record: %+v", first[0])
	}
	if source.tsCalls[11] != 1 {
		t.Fatalf("expected one timestamp lookup for block 11, got %d", source.tsCalls[11])
	}

	cp, ok, err := NewCheckpointStore(cfg.CheckpointPath, true).Load()
	if err != nil || !ok {
		t.Fatalf("load checkpoint: ok=%v err=%v", ok, err)
	}
	if cp.LastProcessedBlock != 12 {
		t.Fatalf("expected checkpoint at 12, got %d", cp.LastProcessedBlock)
	}
}

func TestRunnerResumesFromCheckpoint(t *testing.T) {
	source := &fakeSource{chainID: 1, head: 15}
	cfg := testRunConfig(t, 10, 0)
	if err := NewCheckpointStore(cfg.CheckpointPath, true).Save(1, 12); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	if err := NewRunner(cfg, source, &recordingSink{}, nil).Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(source.ranges) == 0 || source.ranges[0].From != 13 {
		t.Fatalf("expected resume at 13, got %+v", source.ranges)
	}
	if last := source.ranges[len(source.ranges)-1]; last.To != 15 {
		t.Fatalf("expected sync to head 15, got %+v", last)
	}
}

func TestRunnerRejectsForeignCheckpoint(t *testing.T) {
	cfg := testRunConfig(t, 10, 12)
	if err := NewCheckpointStore(cfg.CheckpointPath, true).Save(5, 11); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}
	err := NewRunner(cfg, &fakeSource{chainID: 1}, &recordingSink{}, nil).Run(context.Background())
	if err == nil {
		t.Fatalf("expected chain mismatch error")
	}
}

func TestRunnerStopsOnStorageError(t *testing.T) {
	source := &fakeSource{chainID: 1, logs: []types.Log{chainLog(10, 0)}}
	cfg := testRunConfig(t, 10, 12)
	sink := &recordingSink{err: errors.New("disk full")}

	err := NewRunner(cfg, source, sink, nil).Run(context.Background())
	if err == nil {
		t.Fatalf("expected storage error")
	}
	if _, ok, _ := NewCheckpointStore(cfg.CheckpointPath, true).Load(); ok {
		t.Fatalf("checkpoint must not advance past a failed batch")
	}
}

func TestRunnerRequiresAddresses(t *testing.T) {
	cfg := testRunConfig(t, 1, 2)
	cfg.Addresses = nil
	if err := NewRunner(cfg, &fakeSource{chainID: 1}, &recordingSink{}, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected missing address error")
	}
}

type fixedResume struct {
	block uint64
	ok    bool
	err   error
}

func (f fixedResume) ResumeBlock(context.Context) (uint64, bool, error) {
	return f.block, f.ok, f.err
}

func TestRunnerResumesFromSink(t *testing.T) {
	cases := []struct {
		name     string
		resume   fixedResume
		wantFrom uint64
	}{
		{name: "ahead of start", resume: fixedResume{block: 13, ok: true}, wantFrom: 13},
		{name: "behind start", resume: fixedResume{block: 4, ok: true}, wantFrom: 10},
		{name: "nothing stored", resume: fixedResume{block: 13}, wantFrom: 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			source := &fakeSource{chainID: 1}
			cfg := testRunConfig(t, 10, 15)
			cfg.CheckpointEnabled = false
			cfg.Resume = tc.resume

			if err := NewRunner(cfg, source, &recordingSink{}, nil).Run(context.Background()); err != nil {
				t.Fatalf("run: %v", err)
			}
			if len(source.ranges) == 0 || source.ranges[0].From != tc.wantFrom {
				t.Fatalf("expected first range from %d, got %+v", tc.wantFrom, source.ranges)
			}
		})
	}
}

func TestRunnerResumeErrorAborts(t *testing.T) {
	source := &fakeSource{chainID: 1}
	cfg := testRunConfig(t, 10, 12)
	cfg.Resume = fixedResume{err: errors.New("connection refused")}

	if err := NewRunner(cfg, source, &recordingSink{}, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected resume error")
	}
	if len(source.ranges) != 0 {
		t.Fatalf("no logs should be fetched, got %+v", source.ranges)
	}
}
