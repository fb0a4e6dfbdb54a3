package simulation

import (
	"fmt"
	"strings"
)

// Discipline describes the buffer of a queue.
type Discipline struct {
	Bounded  bool
	Capacity int // only meaningful when Bounded
}

// Unbounded returns the M/M/1 discipline.
func Unbounded() Discipline {
	return Discipline{}
}

// BoundedBy returns the M/M/1/K discipline with capacity k.
func BoundedBy(k int) Discipline {
	return Discipline{Bounded: true, Capacity: k}
}

func (d Discipline) String() string {
	if !d.Bounded {
		return "M/M/1"
	}
	return fmt.Sprintf("M/M/1/%d", d.Capacity)
}

// Stats are the running estimators produced at an observation.
type Stats struct {
	MeanOccupancy   float64 // E[N]
	IdleProbability float64 // P_idle
	LossRatio       float64 // P_loss, valid only if LossDefined
	LossDefined     bool
}

// Queue is the FIFO buffer of one simulation run. It stores the length of
// each admitted packet; the head is the packet in service.
type Queue struct {
	discipline Discipline
	contents   []float64

	admitted int // offered packets, including dropped ones
	dropped  int

	occupancySum int
	idleCount    int
}

// NewQueue creates an empty queue with the given discipline.
func NewQueue(d Discipline) *Queue {
	return &Queue{discipline: d}
}

// Discipline returns the queue discipline.
func (q *Queue) Discipline() Discipline {
	return q.discipline
}

// Admit offers a packet to the queue. It returns false when a bounded queue
// is full; the packet still counts as offered.
func (q *Queue) Admit(length float64) bool {
	q.admitted++
	if q.discipline.Bounded && len(q.contents) >= q.discipline.Capacity {
		q.dropped++
		return false
	}
	q.contents = append(q.contents, length)
	return true
}

// ServeNext removes and returns the head packet. It is a no-op on an empty
// queue.
func (q *Queue) ServeNext() (float64, bool) {
	if len(q.contents) == 0 {
		return 0, false
	}
	head := q.contents[0]
	q.contents[0] = 0
	q.contents = q.contents[1:]
	return head, true
}

// Head returns the length of the packet in service without removing it.
func (q *Queue) Head() (float64, bool) {
	if len(q.contents) == 0 {
		return 0, false
	}
	return q.contents[0], true
}

// IsEmpty reports whether the queue holds no packets.
func (q *Queue) IsEmpty() bool {
	return len(q.contents) == 0
}

// Len returns the number of packets in the queue.
func (q *Queue) Len() int {
	return len(q.contents)
}

// Admitted returns the number of packets offered so far.
func (q *Queue) Admitted() int {
	return q.admitted
}

// Dropped returns the number of packets refused by a full buffer.
func (q *Queue) Dropped() int {
	return q.dropped
}

// Sample records one observation and returns the running estimators over
// the first k observations. k must already count this observation; k == 0
// records nothing and returns zero estimators.
func (q *Queue) Sample(k int) Stats {
	stats := Stats{LossDefined: q.discipline.Bounded}
	if k <= 0 {
		return stats
	}

	q.occupancySum += len(q.contents)
	if len(q.contents) == 0 {
		q.idleCount++
	}

	stats.MeanOccupancy = float64(q.occupancySum) / float64(k)
	stats.IdleProbability = float64(q.idleCount) / float64(k)
	if q.discipline.Bounded && q.admitted > 0 {
		stats.LossRatio = float64(q.dropped) / float64(q.admitted)
	}
	return stats
}

func (q *Queue) String() string {
	var sb strings.Builder
	sb.WriteString(q.discipline.String())
	sb.WriteString("[")
	for i, l := range q.contents {
		sb.WriteString(fmt.Sprintf("%.0f", l))
		if i < len(q.contents)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("]")
	return sb.String()
}
