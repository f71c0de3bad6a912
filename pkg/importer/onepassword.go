package importer

// OnePasswordParser reads 1Password CSV exports:
// Title,Website,Username,Password,OTPAuth,Favorite,Archived,Tags,Notes
type OnePasswordParser struct{}

// Source returns Source1Password.
func (p *OnePasswordParser) Source() Source { return Source1Password }

// Parse reads a 1Password CSV export.
func (p *OnePasswordParser) Parse(data []byte) (*Result, error) {
	b := newBuilder()
	err := readCSV(data, b, []string{"title", "password"}, func(location string, get func(string) string) {
		if get("archived") == "true" {
			b.skip(get("title"), "archived")
			return
		}
		b.add(location, get("title"), get("username"), get("website"), get("password"))
	})
	if err != nil {
		return nil, err
	}
	return b.result, nil
}
