package llm

// Field types understood by every backend. Providers with richer type
// systems map these onto their own vocabulary.
const (
	TypeString      = "string"
	TypeStringArray = "string-array"
)

// Field describes one property of the expected response object.
type Field struct {
	Name        string
	Type        string
	Required    bool
	Description string
}

// Schema declares the shape of the JSON object the model must return.
type Schema struct {
	Fields []Field
}

// Required lists the names of all required fields in declaration order.
func (s Schema) Required() []string {
	out := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}
