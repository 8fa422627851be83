package logging

import (
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Replication field helpers

func Component(name string) Field {
	return String("component", name)
}

// Site identifies the local or remote site by its environment ID
func Site(eid int) Field {
	return Int("site", eid)
}

func Master(eid int) Field {
	return Int("master", eid)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Policy(p string) Field {
	return String("policy", p)
}

func Generation(gen uint64) Field {
	return Uint64("generation", gen)
}

func Term(term uint64) Field {
	return Uint64("term", term)
}

// Votes records the sizing handed to the vote primitive
func Votes(nsites, nvotes int) Field {
	return Any("votes", map[string]int{"nsites": nsites, "nvotes": nvotes})
}

func ElectionID(id string) Field {
	return String("election_id", id)
}

func Addr(addr string) Field {
	return String("addr", addr)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}
