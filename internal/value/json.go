package value

import "encoding/json"

// MarshalJSON produces the untagged (naked) JSON form: the native Go value,
// with no wrapper indicating which Kind produced it.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Native())
}
