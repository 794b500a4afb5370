package fhir

import "github.com/gofhir/fhir/r4"

// Extensions is an extension list with lookup helpers. Resource extension fields
// convert to it directly: Extensions(study.Extension).
type Extensions []r4.Extension

// StringExtension builds a valueString extension
func StringExtension(url, value string) r4.Extension {
	return r4.Extension{Url: url, ValueString: &value}
}

// IntegerExtension builds a valueInteger extension
func IntegerExtension(url string, value int) r4.Extension {
	return r4.Extension{Url: url, ValueInteger: &value}
}

// Find returns the first extension with url
func (e Extensions) Find(url string) (r4.Extension, bool) {
	for _, x := range e {
		if x.Url == url {
			return x, true
		}
	}
	return r4.Extension{}, false
}

// FindAll returns every extension with url
func (e Extensions) FindAll(url string) []r4.Extension {
	var out []r4.Extension
	for _, x := range e {
		if x.Url == url {
			out = append(out, x)
		}
	}
	return out
}

// String returns the valueString of the first extension with url
func (e Extensions) String(url string) (string, bool) {
	x, ok := e.Find(url)
	if !ok || x.ValueString == nil {
		return "", false
	}
	return *x.ValueString, true
}

// Integer returns the valueInteger of the first extension with url
func (e Extensions) Integer(url string) (int, bool) {
	x, ok := e.Find(url)
	if !ok || x.ValueInteger == nil {
		return 0, false
	}
	return *x.ValueInteger, true
}
