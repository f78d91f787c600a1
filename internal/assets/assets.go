package assets

var defaultLoader = NewEmbeddedLoader()

// LoadStyle loads a built-in CSS style by name.
func LoadStyle(name string) (string, error) {
	return defaultLoader.LoadStyle(name)
}

// LoadTemplate loads a built-in HTML template by name.
func LoadTemplate(name string) (string, error) {
	return defaultLoader.LoadTemplate(name)
}

// MustLoadTemplate is LoadTemplate for package initialization of built-in
// templates. It panics when name is not embedded.
func MustLoadTemplate(name string) string {
	content, err := LoadTemplate(name)
	if err != nil {
		panic(err)
	}
	return content
}
