package humanity

import (
	"regexp"
	"strings"
)

// botPatterns are user agent fragments of crawlers, previewers, headless
// browsers and HTTP libraries.
var botPatterns = []string{
	"bot",
	"crawl",
	"spider",
	"slurp",
	"scrape",
	"archiver",
	"facebookexternalhit",
	"facebookcatalog",
	"pinterest",
	"embedly",
	"quora link preview",
	"bingpreview",
	"mediapartners-google",
	"adsbot-google",
	"apis-google",
	"feedfetcher",
	"google-read-aloud",
	"googleweblight",
	"google-inspectiontool",
	"yandex",
	"baiduspider",
	"duckduckgo",
	"headlesschrome",
	"phantomjs",
	"lighthouse",
	"pagespeed",
	"ptst",
	"gtmetrix",
	"pingdom",
	"uptime",
	"curl",
	"wget",
	"python-requests",
	"python-urllib",
	"go-http-client",
	"java/",
	"okhttp",
	"axios",
	"node-fetch",
	"httpclient",
	"libwww-perl",
}

var botRegex = compileBotRegex(botPatterns)

func compileBotRegex(patterns []string) *regexp.Regexp {
	quoted := make([]string, len(patterns))
	for i, p := range patterns {
		quoted[i] = regexp.QuoteMeta(p)
	}
	return regexp.MustCompile(`(?i)(` + strings.Join(quoted, "|") + `)`)
}

// MatchesBot reports whether userAgent looks like an automated client
func MatchesBot(userAgent string) bool {
	return botRegex.MatchString(userAgent)
}
