package triage

import (
	"regexp"
	"strings"
)

// Patient-facing text must be plain: classifier output is rendered in SMS
// and plain-text UI surfaces, so rich-text markers are stripped uniformly
// no matter which mode produced the text.
var (
	reBold      = regexp.MustCompile(`\*\*(.*?)\*\*`)
	reItalic    = regexp.MustCompile(`\*(.*?)\*`)
	reUnderline = regexp.MustCompile(`__(.*?)__`)
	reEmphasis  = regexp.MustCompile(`_(.*?)_`)
	reCode      = regexp.MustCompile("`(.*?)`")
	reHeading   = regexp.MustCompile(`#{1,6}\s`)
	reLink      = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reBullet    = regexp.MustCompile(`(?m)^\s*[-*+]\s`)
	reNumbered  = regexp.MustCompile(`(?m)^\s*\d+\.\s`)
	reBlankRuns = regexp.MustCompile(`\n\s*\n`)
)

// StripMarkup removes markdown-style formatting from text, keeping the
// visible content.
func StripMarkup(text string) string {
	out := reBold.ReplaceAllString(text, "$1")
	out = reItalic.ReplaceAllString(out, "$1")
	out = reUnderline.ReplaceAllString(out, "$1")
	out = reEmphasis.ReplaceAllString(out, "$1")
	out = reCode.ReplaceAllString(out, "$1")
	out = reHeading.ReplaceAllString(out, "")
	out = reLink.ReplaceAllString(out, "$1")
	out = reBullet.ReplaceAllString(out, "")
	out = reNumbered.ReplaceAllString(out, "")
	out = reBlankRuns.ReplaceAllString(out, "\n")
	return strings.TrimSpace(out)
}
