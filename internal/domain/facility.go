package domain

// Facility is a leisure centre the site sells slots for.
type Facility struct {
	Key         string
	Slug        string
	DisplayName string
}

var facilities = []Facility{
	{Key: "hendon", Slug: "hendon-leisure-centre", DisplayName: "Hendon Leisure Centre"},
	{Key: "copthall", Slug: "barnet-copthall-leisure-centre", DisplayName: "Barnet Copthall"},
	{Key: "burnt-oak", Slug: "barnet-burnt-oak-leisure-centre", DisplayName: "Barnet Burnt Oak"},
}

// LookupFacility accepts either the short key or the full site slug.
func LookupFacility(s string) (Facility, bool) {
	for _, f := range facilities {
		if f.Key == s || f.Slug == s {
			return f, true
		}
	}
	return Facility{}, false
}

func Facilities() []Facility {
	return append([]Facility(nil), facilities...)
}
