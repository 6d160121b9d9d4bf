package chatsync

// ProcessedCapacity bounds how many message ids are remembered for
// duplicate suppression.
const ProcessedCapacity = 100

// ProcessedLog is a fixed-capacity FIFO of message ids. It is a value:
// Add returns a new log and leaves the receiver untouched.
type ProcessedLog struct {
	IDs  [ProcessedCapacity]string `json:"ids"`
	Head int                       `json:"head"` // index of the oldest id
	Size int                       `json:"size"`
}

// Contains reports whether id is in the log.
func (l ProcessedLog) Contains(id string) bool {
	for i := 0; i < l.Size; i++ {
		if l.IDs[(l.Head+i)%ProcessedCapacity] == id {
			return true
		}
	}
	return false
}

// Add appends id, evicting the oldest entry when the log is full.
func (l ProcessedLog) Add(id string) ProcessedLog {
	if l.Size < ProcessedCapacity {
		l.IDs[(l.Head+l.Size)%ProcessedCapacity] = id
		l.Size++
		return l
	}
	l.IDs[l.Head] = id
	l.Head = (l.Head + 1) % ProcessedCapacity
	return l
}

// Len returns the number of ids held.
func (l ProcessedLog) Len() int {
	return l.Size
}

// Oldest returns the id that will be evicted next.
func (l ProcessedLog) Oldest() (string, bool) {
	if l.Size == 0 {
		return "", false
	}
	return l.IDs[l.Head], true
}
