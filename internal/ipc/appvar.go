package ipc

import (
	"encoding/json"
	"errors"
	"strconv"
)

// AppVarKind tags how an AppVar's bytes should be interpreted, resolving
// the ambiguity in the original design (which tried to opportunistically
// deserialize any stored value and guess its shape). Every value stored
// through SetAppVar carries its kind; GetAppVar never has to guess.
type AppVarKind int

const (
	KindString AppVarKind = iota
	KindInt64
	KindBool
	KindJSON // arbitrary composite value, JSON-encoded by the caller
	KindRaw  // opaque bytes, caller-defined interpretation
)

// AppVar is a tagged value stored in the region's application key/value
// map. Composite values are JSON-encoded before storage; the core defines
// no further schema.
type AppVar struct {
	Kind  AppVarKind
	Bytes []byte
}

// NewStringVar builds a string-tagged AppVar.
func NewStringVar(s string) AppVar { return AppVar{Kind: KindString, Bytes: []byte(s)} }

// NewJSONVar marshals v to JSON and tags it KindJSON.
func NewJSONVar(v interface{}) (AppVar, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return AppVar{}, err
	}
	return AppVar{Kind: KindJSON, Bytes: b}, nil
}

// NewRawVar tags opaque bytes KindRaw, storing them verbatim.
func NewRawVar(b []byte) AppVar {
	cp := make([]byte, len(b))
	copy(cp, b)
	return AppVar{Kind: KindRaw, Bytes: cp}
}

// NewInt64Var builds an int64-tagged AppVar.
func NewInt64Var(n int64) AppVar {
	return AppVar{Kind: KindInt64, Bytes: []byte(strconv.FormatInt(n, 10))}
}

// NewBoolVar builds a bool-tagged AppVar.
func NewBoolVar(b bool) AppVar {
	return AppVar{Kind: KindBool, Bytes: []byte(strconv.FormatBool(b))}
}

// String returns the value as a string if tagged KindString.
func (v AppVar) String() (string, bool) {
	if v.Kind != KindString {
		return "", false
	}
	return string(v.Bytes), true
}

// Int64 returns the value as an int64 if tagged KindInt64.
func (v AppVar) Int64() (int64, bool) {
	if v.Kind != KindInt64 {
		return 0, false
	}
	n, err := strconv.ParseInt(string(v.Bytes), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Bool returns the value as a bool if tagged KindBool.
func (v AppVar) Bool() (bool, bool) {
	if v.Kind != KindBool {
		return false, false
	}
	b, err := strconv.ParseBool(string(v.Bytes))
	if err != nil {
		return false, false
	}
	return b, true
}

// JSON unmarshals a KindJSON value into out. Any other kind is an error.
func (v AppVar) JSON(out interface{}) error {
	if v.Kind != KindJSON {
		return errors.New("ipc: app var is not tagged KindJSON")
	}
	return json.Unmarshal(v.Bytes, out)
}

// GetAppVar reads a value from the region's map. Per spec, callers may opt
// into per-call locking; when lock is false the caller is expected to
// already hold the region's mutex (e.g. as part of a larger transaction).
func (r *Region) GetAppVar(name string, lock bool) (AppVar, bool) {
	if lock {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	v, ok := r.appVars[name]
	return v, ok
}

// SetAppVar writes a value verbatim into the region's map.
func (r *Region) SetAppVar(name string, v AppVar, lock bool) {
	if lock {
		r.mu.Lock()
		defer r.mu.Unlock()
	}
	r.appVars[name] = v
}
