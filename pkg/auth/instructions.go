package auth

import (
	"fmt"
	"io"
	"strings"
)

// WriteCookieGuide prints how to copy the LinkedIn session cookies out of a browser
func WriteCookieGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"LINKEDIN SESSION COOKIE GUIDE",
		rule,
		"",
		"profilescout reads LinkedIn search pages with your own logged-in session.",
		"It never logs in for you and never works around access checks.",
		"",
		"1. Log in at https://www.linkedin.com in your usual browser.",
		"2. Open Developer Tools (F12, or Cmd+Option+I on macOS).",
		"3. Chrome/Edge: Application > Cookies > https://www.linkedin.com",
		"   Firefox:     Storage > Cookies > https://www.linkedin.com",
		"4. Copy the value of these cookies:",
		"",
		"   li_at        required, long opaque token starting with AQ",
		"   JSESSIONID   optional, looks like \"ajax:1234567890123456789\"",
		"",
		"5. Store them:",
		"",
		"   profilescout auth login --name work",
		"",
		"   or skip the copying and read them from a local browser profile:",
		"",
		"   profilescout auth import --name work",
		"",
		"For containers set " + EnvLiAt + " (and optionally " + EnvJSessionID + ").",
		"",
		"WARNING: li_at grants full access to the account. Never share it.",
		"The cookie expires when you log out; store a fresh one when runs start",
		"failing with an authentication error.",
		rule,
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
