package resume

import (
	"regexp"
	"strings"
)

// VAKeywords is the virtual-assistant keyword set used for ATS scoring and
// keyword suggestions.
var VAKeywords = []string{
	"virtual assistant", "administrative support", "calendar management",
	"email management", "scheduling", "data entry", "crm", "customer service",
	"project coordination", "travel coordination", "expense management",
	"social media", "content management", "bookkeeping", "invoicing",
	"asana", "trello", "monday.com", "slack", "zoom", "google workspace",
	"microsoft office", "excel", "powerpoint", "ghl", "gohighlevel",
}

// ActionVerbs are the strong leading verbs content scoring rewards.
var ActionVerbs = []string{
	"managed", "coordinated", "led", "developed", "implemented", "optimized",
	"streamlined", "organized", "executed", "facilitated", "achieved",
	"increased", "reduced", "improved", "created", "designed", "established",
	"maintained", "analyzed", "processed", "handled", "supported", "assisted",
}

// metricRe matches numbers, percentages, and dollar amounts inside a bullet.
var metricRe = regexp.MustCompile(`\d+[%$]?|\$\d+|[+-]\d+%`)

// StartsWithActionVerb reports whether the bullet's first word is a strong
// action verb.
func StartsWithActionVerb(bullet string) bool {
	fields := strings.Fields(bullet)
	if len(fields) == 0 {
		return false
	}
	first := strings.ToLower(strings.TrimRight(fields[0], ".,!?"))
	for _, verb := range ActionVerbs {
		if first == verb {
			return true
		}
	}
	return false
}

// HasQuantifiableMetric reports whether the bullet contains a number,
// percentage, or dollar amount.
func HasQuantifiableMetric(bullet string) bool {
	return metricRe.MatchString(bullet)
}

// IsStrongBullet reports whether a bullet already reads well: it leads with an
// action verb, carries a metric, and sits in a reasonable length band. Strong
// bullets are skipped by the improver.
func IsStrongBullet(bullet string) bool {
	n := len(bullet)
	return StartsWithActionVerb(bullet) && strings.ContainsAny(bullet, "0123456789") && n > 50 && n < 200
}
