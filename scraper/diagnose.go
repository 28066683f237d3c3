package scraper

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PageDiagnosis summarizes a rendered page when the export control could
// not be found, to tell a changed layout apart from a page with no data.
type PageDiagnosis struct {
	Title     string
	TableRows int // data rows across all tables
	Matches   int // elements matching the control selector, any text
}

// Diagnose inspects html. Unparseable input yields a zero diagnosis.
func Diagnose(html, selector string) PageDiagnosis {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return PageDiagnosis{}
	}

	d := PageDiagnosis{
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		TableRows: doc.Find("table tbody tr").Length(),
	}
	if selector != "" {
		d.Matches = doc.Find(selector).Length()
	}
	return d
}

func (d PageDiagnosis) String() string {
	return fmt.Sprintf("page %q has %d table rows and %d elements matching the control selector",
		d.Title, d.TableRows, d.Matches)
}
