package wcif

import "encoding/json"

// Extension is a namespaced block of tool specific data attached to a
// document node. Data is kept raw and only decoded by the package that owns
// the namespace.
type Extension struct {
	ID      string          `json:"id"`
	SpecURL string          `json:"specUrl"`
	Data    json.RawMessage `json:"data"`
}

// FindExtension returns the extension with the given id, or nil.
func FindExtension(extensions []Extension, id string) *Extension {
	for i := range extensions {
		if extensions[i].ID == id {
			return &extensions[i]
		}
	}
	return nil
}

// SetExtension returns a copy of extensions with ext inserted or replacing the
// entry that has the same id.
func SetExtension(extensions []Extension, ext Extension) []Extension {
	out := make([]Extension, 0, len(extensions)+1)
	replaced := false
	for _, e := range extensions {
		if e.ID == ext.ID {
			out = append(out, ext)
			replaced = true
			continue
		}
		out = append(out, e)
	}
	if !replaced {
		out = append(out, ext)
	}
	return out
}
