package manipulate

import "github.com/benedoc-inc/pdfwm/core/parse"

// copyValue returns a deep copy of obj. References are moved to generation
// zero, the only generation the writer emits. Stream data is shared since
// it is never modified.
func copyValue(obj parse.Object) parse.Object {
	switch v := obj.(type) {
	case parse.Dict:
		return copyDict(v)
	case parse.Array:
		out := make(parse.Array, len(v))
		for i, item := range v {
			out[i] = copyValue(item)
		}
		return out
	case parse.Reference:
		return parse.Reference{Number: v.Number}
	case *parse.Stream:
		return &parse.Stream{Dict: copyDict(v.Dict), Raw: v.Raw}
	case parse.String:
		return append(parse.String(nil), v...)
	default:
		return v
	}
}

func copyDict(d parse.Dict) parse.Dict {
	out := make(parse.Dict, len(d))
	for k, v := range d {
		out[k] = copyValue(v)
	}
	return out
}

// visitRefs calls fn for every reference inside obj
func visitRefs(obj parse.Object, fn func(parse.Reference)) {
	switch v := obj.(type) {
	case parse.Reference:
		fn(v)
	case parse.Dict:
		for _, item := range v {
			visitRefs(item, fn)
		}
	case parse.Array:
		for _, item := range v {
			visitRefs(item, fn)
		}
	case *parse.Stream:
		visitRefs(v.Dict, fn)
	}
}
