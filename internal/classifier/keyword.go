package classifier

import (
	"context"
	"regexp"
	"strings"

	"github.com/edgard/zmanimbot/internal/zmanim"
)

type keywordRule struct {
	zman    zmanim.Zman
	pattern *regexp.Regexp
}

// keywordRules is checked in order; the first match wins.
var keywordRules = []keywordRule{
	{zmanim.ZmanAlot, regexp.MustCompile(`עלות|first\s*light|dawn|alot`)},
	{zmanim.ZmanNetz, regexp.MustCompile(`הנץ|זריחה|sunrise`)},
	{zmanim.ZmanSofZmanShema, regexp.MustCompile(`שמע|shema`)},
	{zmanim.ZmanSofZmanTefila, regexp.MustCompile(`תפילה|tefila|prayer`)},
	{zmanim.ZmanChatzot, regexp.MustCompile(`חצות|midday|chatz(?:o|)t(?:os)?`)},
	{zmanim.ZmanMinchaGedola, regexp.MustCompile(`מנחה גדולה|big mincha|mincha gedola`)},
	{zmanim.ZmanPlag, regexp.MustCompile(`פלג|plag`)},
	{zmanim.ZmanShkia, regexp.MustCompile(`שקיעה|sunset`)},
	{zmanim.ZmanTzet, regexp.MustCompile(`צאת הכוכבים|nightfall|stars`)},
}

var (
	allPattern = regexp.MustCompile(`זמני היום|כל הזמנים|זמנים|zmanim`)

	// RE2 word boundaries are ASCII only, so Hebrew needs explicit ones.
	tomorrowPattern = regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(?:מחר|tomorrow)(?:$|[^\p{L}\p{N}_])`)
)

// Keywords is the deterministic fast path over Hebrew and English keywords.
type Keywords struct{}

// Match implements Matcher.
func (Keywords) Match(_ context.Context, text string) (zmanim.Query, bool) {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return zmanim.Query{}, false
	}

	target := zmanim.Today
	if tomorrowPattern.MatchString(text) {
		target = zmanim.Tomorrow
	}

	if allPattern.MatchString(text) {
		return zmanim.Query{Type: zmanim.QueryAll, Target: target}, true
	}
	for _, rule := range keywordRules {
		if rule.pattern.MatchString(text) {
			return zmanim.Query{Type: zmanim.QuerySpecific, Zman: rule.zman, Target: target}, true
		}
	}
	return zmanim.Query{}, false
}
