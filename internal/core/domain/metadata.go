package domain

import "strings"

// PluginMetadata is the ordered list of classes carrying the marker annotation.
type PluginMetadata struct {
	// Classes holds qualified class names, e.g. "com.x.Foo", in resolution order.
	Classes []string
}

// Bytes renders the metadata file content: one name per line, each terminated by a newline.
// An empty list renders as an empty file.
func (m PluginMetadata) Bytes() []byte {
	if len(m.Classes) == 0 {
		return []byte{}
	}
	var b strings.Builder
	for _, c := range m.Classes {
		b.WriteString(c)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}
