package experiment

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/inference-sim/qswitch-sim/sim"
)

// csvHeader is the fixed part of the aggregate CSV; per-leaf state rate columns follow.
var csvHeader = []string{
	"scenario", "runs", "seed", "num_leaves", "connect_size", "buffer_size", "states",
	"mean_capacity", "stderr_capacity", "mean_fidelity", "stderr_fidelity",
	"analytical_capacity", "analytical_model",
}

// WriteCSV writes one row per aggregate. Per-leaf columns are named node1_state_rate,
// node2_state_rate, ... up to the largest leaf count; scenarios with fewer leaves leave them
// empty.
func WriteCSV(w io.Writer, aggs []Aggregate) error {
	maxLeaves := 0
	for _, a := range aggs {
		maxLeaves = max(maxLeaves, len(a.LeafStateRates))
	}
	header := append([]string(nil), csvHeader...)
	for i := 0; i < maxLeaves; i++ {
		header = append(header, sim.DefaultLeafName(sim.LeafID(i))+"_state_rate")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, a := range aggs {
		row := []string{
			a.Scenario,
			strconv.Itoa(a.Runs),
			strconv.FormatInt(a.Seed, 10),
			strconv.Itoa(a.NumLeaves),
			strconv.Itoa(a.ConnectSize),
			strconv.Itoa(a.BufferSize),
			strconv.Itoa(a.States),
			formatFloat(a.Capacity.Mean),
			formatFloat(a.Capacity.StdErr),
			formatFloat(a.Fidelity.Mean),
			formatFloat(a.Fidelity.StdErr),
			formatFloat(a.AnalyticalCapacity),
			a.AnalyticalModel,
		}
		for i := 0; i < maxLeaves; i++ {
			if i < len(a.LeafStateRates) {
				row = append(row, formatFloat(a.LeafStateRates[i].Mean))
			} else {
				row = append(row, "")
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// RecordDump is the msgpack form of one run's state records.
type RecordDump struct {
	RunID   string        `msgpack:"run_id"`
	Seed    int64         `msgpack:"seed"`
	Elapsed int64         `msgpack:"elapsed_ticks"`
	Records []DumpedState `msgpack:"records"`
}

// DumpedState is one StateRecord in a RecordDump.
type DumpedState struct {
	Time         int64   `msgpack:"t"`
	Participants []int   `msgpack:"leaves"`
	Fidelity     float64 `msgpack:"fidelity"`
	Ages         []int64 `msgpack:"ages"`
}

// NewRecordDump snapshots the records of res.
func NewRecordDump(res *sim.Result) RecordDump {
	d := RecordDump{RunID: res.RunID, Seed: res.Seed, Elapsed: res.Elapsed}
	for rec := range res.Records() {
		ds := DumpedState{Time: rec.Time, Fidelity: rec.Fidelity, Ages: rec.Ages}
		ds.Participants = make([]int, len(rec.Participants))
		for i, id := range rec.Participants {
			ds.Participants[i] = int(id)
		}
		d.Records = append(d.Records, ds)
	}
	return d
}

// WriteRecords writes one msgpack RecordDump per result, back to back.
func WriteRecords(w io.Writer, results []*sim.Result) error {
	enc := msgpack.NewEncoder(w)
	for _, res := range results {
		if err := enc.Encode(NewRecordDump(res)); err != nil {
			return fmt.Errorf("encoding run %s: %w", res.RunID, err)
		}
	}
	return nil
}

// ReadRecords reads every RecordDump written by WriteRecords.
func ReadRecords(r io.Reader) ([]RecordDump, error) {
	dec := msgpack.NewDecoder(r)
	var dumps []RecordDump
	for {
		var d RecordDump
		err := dec.Decode(&d)
		if errors.Is(err, io.EOF) {
			return dumps, nil
		}
		if err != nil {
			return nil, fmt.Errorf("decoding record dump %d: %w", len(dumps), err)
		}
		dumps = append(dumps, d)
	}
}
