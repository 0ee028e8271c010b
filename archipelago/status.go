package archipelago

import "fmt"

// Status mirrors detour's bitset status pattern: a high-level outcome bit
// plus a detail code, so query failures can be tested with bitwise masks
// instead of type assertions (spec §7).
type Status uint32

const (
	Failure    Status = 1 << 31
	Success    Status = 1 << 30
	InProgress Status = 1 << 29

	StatusDetailMask = 0x0fffffff

	OutOfRange              = 1 << 0
	NavDataDirty            = 1 << 1
	NoPathFound             = 1 << 2
	NonPositiveNodeTypeCost = 1 << 3
	InvalidSampleDistance   = 1 << 4
	InvalidNodeTypeCost     = 1 << 5
)

func (s Status) Error() string {
	if s&Failure == 0 {
		return "success"
	}
	switch s & StatusDetailMask {
	case OutOfRange:
		return "point out of range"
	case NavDataDirty:
		return "nav data dirty: call Update before querying"
	case NoPathFound:
		return "no path found"
	case NonPositiveNodeTypeCost:
		return "node type cost must be > 0"
	case InvalidSampleDistance:
		return "invalid sample distance"
	case InvalidNodeTypeCost:
		return "invalid node type cost"
	default:
		return fmt.Sprintf("unspecified error 0x%x", uint32(s))
	}
}

func (s Status) Succeeded() bool { return s&Success != 0 }
func (s Status) Failed() bool    { return s&Failure != 0 }

func fail(detail Status) Status { return Failure | detail }
