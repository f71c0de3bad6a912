package importer

import "html"

// LastPassParser reads LastPass CSV exports:
// url,username,password,totp,extra,name,grouping,fav
//
// LastPass HTML-escapes some characters; values are unescaped.
type LastPassParser struct{}

// Source returns SourceLastPass.
func (p *LastPassParser) Source() Source { return SourceLastPass }

// Parse reads a LastPass CSV export.
func (p *LastPassParser) Parse(data []byte) (*Result, error) {
	b := newBuilder()
	err := readCSV(data, b, []string{"name", "password"}, func(location string, get func(string) string) {
		value := func(col string) string { return html.UnescapeString(get(col)) }
		if get("url") == "http://sn" {
			b.skip(value("name"), "secure note")
			return
		}
		b.add(location, value("name"), value("username"), value("url"), value("password"))
	})
	if err != nil {
		return nil, err
	}
	return b.result, nil
}
