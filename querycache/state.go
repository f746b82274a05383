package querycache

import (
	"time"
)

// Status is the lifecycle position of a query entry.
type Status int

const (
	// StatusIdle means the entry exists but has never been fetched.
	StatusIdle Status = iota
	// StatusLoading means the first fetch is in flight and no value exists yet.
	StatusLoading
	// StatusSuccess means the last settled fetch succeeded.
	StatusSuccess
	// StatusError means the last settled fetch failed. Data may still hold
	// the previous successful value.
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	}
	return "unknown"
}

// State is a snapshot of a query entry.
type State[T any] struct {
	Key       string
	Status    Status
	Data      T
	HasData   bool
	Err       error
	UpdatedAt time.Time
	// Fetching is true while any fetch for the entry is in flight,
	// including background refetches of an entry that already has data.
	Fetching bool
}

func convert[T any](st State[any]) State[T] {
	out := State[T]{
		Key:       st.Key,
		Status:    st.Status,
		HasData:   st.HasData,
		Err:       st.Err,
		UpdatedAt: st.UpdatedAt,
		Fetching:  st.Fetching,
	}
	if v, ok := st.Data.(T); ok {
		out.Data = v
	}
	return out
}
