// Package langaudit checks that web pages declare the language their text is
// written in. It reads URLs from a CSV file, audits each page's html lang
// attribute against the detected text language and writes a result CSV.
package langaudit

import (
	"context"
	"fmt"
	"html"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/abadojack/whatlanggo"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"

	webhttp "github.com/KamdynS/agent-contrib/tools/http"
)

// ChromeUserAgent is sent with every page request.
const ChromeUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// MinTextChars is the shortest visible text worth detecting.
const MinTextChars = 50

// MaxBodyBytes caps how much of a page is parsed.
const MaxBodyBytes = 5 << 20

const (
	InsufficientText = "insufficient_text"
	DetectionError   = "detection_error"
	InvalidTag       = "invalid"
)

const (
	StatusCritical = "Critical"
	StatusFix      = "Fix"
	StatusKeep     = "Keep"
	StatusError    = "Error"
)

// Columns are the result columns in output order.
var Columns = []string{
	"response_status", "current_url", "html_lang_raw", "lang_extracted",
	"lang_detected", "match_found", "iana_valid", "status", "recommendation",
}

// Result is the audit of one URL.
type Result struct {
	URL            string
	ResponseStatus string
	CurrentURL     string
	HTMLLangRaw    string
	HasLang        bool
	LangExtracted  string
	LangDetected   string
	MatchFound     bool
	IANAValid      bool
	Status         string
	Recommendation string
}

// Row renders r in Columns order.
func (r Result) Row() []string {
	return []string{
		r.ResponseStatus, r.CurrentURL, r.HTMLLangRaw, r.LangExtracted,
		r.LangDetected, strconv.FormatBool(r.MatchFound), strconv.FormatBool(r.IANAValid),
		r.Status, r.Recommendation,
	}
}

// Tag is a parsed html lang value.
type Tag struct {
	Valid      bool
	Base       string
	Normalized string
}

// ParseTag validates raw as a BCP 47 tag. Surrounding whitespace makes a tag
// invalid but is ignored when extracting the base language.
func ParseTag(raw string) Tag {
	trimmed := strings.TrimSpace(raw)
	t, err := language.Parse(trimmed)
	out := Tag{
		Valid: err == nil && trimmed == raw && !strings.Contains(raw, "_"),
	}
	if t == language.Und && err != nil {
		out.Base = InvalidTag
		out.Normalized = strings.ToLower(trimmed)
		return out
	}
	base, _ := t.Base()
	out.Base = base.String()
	out.Normalized = t.String()
	return out
}

// Advise maps an audit to its status and recommendation.
func Advise(hasLang bool, raw string, match bool, tag Tag) (status, recommendation string) {
	switch {
	case !hasLang || raw == "":
		return StatusCritical, "HTML lang attribute is missing."
	case !match:
		return StatusCritical, "The detected text language does not match the HTML tag."
	case raw != strings.TrimSpace(raw):
		return StatusFix, fmt.Sprintf("Syntax error (whitespace). Change '%s' to '%s'", raw, tag.Normalized)
	case !tag.Valid:
		return StatusFix, fmt.Sprintf("Invalid BCP 47 syntax. Change '%s' to '%s'", raw, tag.Normalized)
	case raw != tag.Normalized:
		return StatusKeep, fmt.Sprintf("Valid, but standard suggests '%s'", tag.Normalized)
	}
	return StatusKeep, "Perfect"
}

var textPolicy = func() *bluemonday.Policy {
	p := bluemonday.StrictPolicy()
	p.AddSpaceWhenStrippingTag(true)
	return p
}()

// VisibleText returns the page text without scripts, styles and noscript
// blocks, whitespace collapsed.
func VisibleText(doc *goquery.Document) string {
	doc.Find("script, style, noscript").Remove()
	markup, err := doc.Html()
	if err != nil {
		return strings.Join(strings.Fields(doc.Text()), " ")
	}
	return strings.Join(strings.Fields(html.UnescapeString(textPolicy.Sanitize(markup))), " ")
}

// DetectLanguage returns the ISO 639-1 code of text, or DetectionError.
func DetectLanguage(text string) string {
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return DetectionError
	}
	return strings.ToLower(code)
}

func sameBase(tagBase, detected string) bool {
	if tagBase == "" || tagBase == InvalidTag {
		return false
	}
	d, err := language.Parse(detected)
	if err != nil {
		return false
	}
	base, _ := d.Base()
	return base.String() == tagBase
}

// Auditor fetches and audits pages.
type Auditor struct {
	Client *http.Client
}

// NewAuditor returns an auditor with a 10s timeout.
func NewAuditor() *Auditor {
	return &Auditor{Client: webhttp.NewClient(10*time.Second, 0)}
}

// Audit checks one page. Transport failures are recorded in the result.
func (a *Auditor) Audit(ctx context.Context, rawURL string) Result {
	res := Result{URL: rawURL, CurrentURL: rawURL}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failed(res, err)
	}
	req.Header.Set("User-Agent", ChromeUserAgent)
	resp, err := a.Client.Do(req)
	if err != nil {
		return failed(res, err)
	}
	defer resp.Body.Close()

	res.CurrentURL = resp.Request.URL.String()
	res.ResponseStatus = strconv.Itoa(resp.StatusCode)
	// The final request carries the response that redirected to it.
	if resp.Request.Response != nil {
		res.ResponseStatus += "_redirected"
	}
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, MaxBodyBytes))
	if err != nil {
		return failed(res, err)
	}

	var tag Tag
	res.HTMLLangRaw, res.HasLang = doc.Find("html").First().Attr("lang")
	if res.HasLang {
		tag = ParseTag(res.HTMLLangRaw)
		res.IANAValid = tag.Valid
		res.LangExtracted = tag.Base
	}

	text := VisibleText(doc)
	if len(text) < MinTextChars {
		res.LangDetected = InsufficientText
	} else {
		res.LangDetected = DetectLanguage(text)
		res.MatchFound = res.LangDetected != DetectionError && sameBase(tag.Base, res.LangDetected)
	}
	res.Status, res.Recommendation = Advise(res.HasLang, res.HTMLLangRaw, res.MatchFound, tag)
	return res
}

func failed(res Result, err error) Result {
	res.ResponseStatus = "error"
	res.Status = StatusError
	res.Recommendation = err.Error()
	return res
}
