package service

import (
	"sync/atomic"
)

// PipelineStats counts the bytes flowing through the agent. Counters are
// cumulative and only grow; the registry derives rates from deltas.
type PipelineStats struct {
	inputBytes  uint64
	outputBytes uint64
}

func NewPipelineStats() *PipelineStats {
	return &PipelineStats{}
}

// AddInputBytes records bytes received by the agent's inputs.
func (p *PipelineStats) AddInputBytes(n uint64) {
	atomic.AddUint64(&p.inputBytes, n)
}

// AddOutputBytes records bytes delivered by the agent's outputs.
func (p *PipelineStats) AddOutputBytes(n uint64) {
	atomic.AddUint64(&p.outputBytes, n)
}

func (p *PipelineStats) InputBytesTotal() float64 {
	return float64(atomic.LoadUint64(&p.inputBytes))
}

func (p *PipelineStats) OutputBytesTotal() float64 {
	return float64(atomic.LoadUint64(&p.outputBytes))
}
