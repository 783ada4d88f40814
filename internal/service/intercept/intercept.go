// Package intercept answers a few recognised questions locally so they never
// reach the model.
package intercept

import "strings"

// Attribution is the canned answer for questions about who made the bot.
const Attribution = "This chatbot was created by Build Fast with AI."

var triggers = []string{
	"who built this chatbot",
	"who created this chatbot",
}

// Match reports the canned reply for input, if any trigger phrase occurs in
// it regardless of case.
func Match(input string) (string, bool) {
	normalized := strings.ToLower(input)
	for _, trigger := range triggers {
		if strings.Contains(normalized, trigger) {
			return Attribution, true
		}
	}
	return "", false
}
