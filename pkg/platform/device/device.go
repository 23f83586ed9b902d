// Package device summarises User-Agent headers for audit and activity logs.
package device

import (
	"fmt"
	"strings"

	"github.com/mssola/useragent"
)

// Describe renders a short "Browser on OS" summary of a User-Agent
// header. Unparseable agents are returned unchanged; an empty agent yields "".
func Describe(ua string) string {
	ua = strings.TrimSpace(ua)
	if ua == "" {
		return ""
	}
	parsed := useragent.New(ua)
	name, version := parsed.Browser()
	if parsed.Bot() {
		return "bot: " + name
	}
	if name == "" {
		return ua
	}
	if major, _, ok := strings.Cut(version, "."); ok {
		version = major
	}
	browser := strings.TrimSpace(name + " " + version)
	summary := browser
	if os := parsed.OS(); os != "" {
		summary = fmt.Sprintf("%s on %s", browser, os)
	}
	if parsed.Mobile() {
		summary += " (mobile)"
	}
	return summary
}
