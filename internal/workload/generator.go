package workload

import (
	"math/rand"
	"time"
)

// OpType tags an Operation.
type OpType int

const (
	Read OpType = iota
	Write
)

func (t OpType) String() string {
	if t == Write {
		return "write"
	}
	return "read"
}

// Operation is a single read or write. Payload is only set for writes.
type Operation struct {
	Type    OpType
	Key     int
	Payload Payload
}

// Quotas splits operations between reads and writes by weight. The rounding
// remainder goes to reads so that reads+writes == operations.
func Quotas(operations int, readWeight, writeWeight float64) (reads, writes int) {
	sum := readWeight + writeWeight
	if operations <= 0 || sum <= 0 {
		return 0, 0
	}
	writes = int(float64(operations) * writeWeight / sum)
	if writes > operations {
		writes = operations
	}
	if writes < 0 {
		writes = 0
	}
	return operations - writes, writes
}

// Params describes the batches a Generator produces.
type Params struct {
	Operations int
	Reads      float64
	Writes     float64
	KeyRange   int
	DataType   DataType
	DataSize   int
}

// Generator produces batches of operations. It is not safe for concurrent use;
// every worker owns one.
type Generator struct {
	p          Params
	readQuota  int
	writeQuota int
	rnd        *rand.Rand
}

// NewGenerator returns a generator seeded with seed, or with the clock when
// seed is zero.
func NewGenerator(p Params, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r, w := Quotas(p.Operations, p.Reads, p.Writes)
	return &Generator{
		p:          p,
		readQuota:  r,
		writeQuota: w,
		rnd:        rand.New(rand.NewSource(seed)),
	}
}

// Quotas returns the per-batch read and write counts.
func (g *Generator) Quotas() (reads, writes int) {
	return g.readQuota, g.writeQuota
}

// Key draws a key uniformly from [1, KeyRange].
func (g *Generator) Key() int {
	if g.p.KeyRange <= 1 {
		return 1
	}
	return g.rnd.Intn(g.p.KeyRange) + 1
}

// Batch returns exactly Operations operations with a random interleaving of
// reads and writes that honours the quotas.
func (g *Generator) Batch() []Operation {
	total := g.readQuota + g.writeQuota
	ops := make([]Operation, 0, total)
	quota := [2]int{g.readQuota, g.writeQuota}

	for len(ops) < total {
		arm := g.rnd.Intn(2)
		if quota[arm] <= 0 {
			continue
		}
		quota[arm]--

		key := g.Key()
		if arm == 0 {
			ops = append(ops, Operation{Type: Read, Key: key})
			continue
		}
		ops = append(ops, Operation{
			Type:    Write,
			Key:     key,
			Payload: Datagen(key, g.p.DataType, g.p.DataSize),
		})
	}
	return ops
}
